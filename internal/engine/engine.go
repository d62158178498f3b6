// Package engine runs the display duty cycle:
// clock phase, optional custom text, weather metrics.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/segclock/hardware/segment_display"
	"github.com/temoto/segclock/internal/clock"
	"github.com/temoto/segclock/internal/render"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

const tick = time.Second

type TimeSource interface {
	// Offset of true time from local clock, zero on failure.
	Offset(ctx context.Context) time.Duration
}

type WeatherSource interface {
	Fetch(ctx context.Context) (weather.Reading, error)
}

type Engine struct {
	c       Config
	log     *log2.Log
	port    segment_display.Port
	cache   *render.Cache
	ts      TimeSource
	ws      WeatherSource
	sleeper Sleeper
	alive   *alive.Alive

	counter     CycleCounter
	offset      time.Duration
	reading     *weather.Reading
	customAt    time.Time
	customShown bool
	onWeather   func(weather.Reading)
}

// NewEngine accepts nil ws when weather is not configured.
func NewEngine(c Config, port segment_display.Port, ts TimeSource, ws WeatherSource, log *log2.Log) *Engine {
	c.defaults()
	if port == nil {
		port = segment_display.NewHeadless()
	}
	return &Engine{
		c:       c,
		log:     log,
		port:    port,
		cache:   render.NewCache(port),
		ts:      ts,
		ws:      ws,
		sleeper: RealSleeper,
		alive:   alive.NewAlive(),
		counter: NewCycleCounter(c.RefreshCycles),
	}
}

func (self *Engine) SetSleeper(s Sleeper) { self.sleeper = s }

// SetWeatherFunc is called with every successfully fetched reading.
func (self *Engine) SetWeatherFunc(f func(weather.Reading)) { self.onWeather = f }

// Reading returns cached weather, nil when empty.
func (self *Engine) Reading() *weather.Reading { return self.reading }
func (self *Engine) Counter() int              { return self.counter.Value() }
func (self *Engine) Writes() int               { return self.cache.Writes() }

// Run repeats duty cycles until ctx is done or Shutdown.
// Display is cleared on exit. Faults inside cycle are logged, followed by cooldown.
func (self *Engine) Run(ctx context.Context) error {
	if !self.alive.Add(1) {
		return nil
	}
	defer self.alive.Done()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-self.alive.StopChan():
			cancel()
		case <-ctx.Done():
		}
	}()

	self.cache.Clear()
	self.port.SetBrightness(self.c.Brightness)
	defer self.cache.Clear()

	for ctx.Err() == nil {
		err := self.safeCycle(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		self.log.Error(errors.Annotate(err, "engine cycle"))
		self.cache.Invalidate()
		if self.sleeper.Sleep(ctx, self.c.Cooldown) != nil {
			break
		}
	}
	self.log.Debugf("engine: stopped")
	return nil
}

// Shutdown stops Run, waits for it to return and blanks display.
func (self *Engine) Shutdown() {
	self.alive.Stop()
	self.alive.Wait()
	self.port.Clear()
}

func (self *Engine) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = errors.Errorf("panic: %v", x)
		}
	}()
	return self.Cycle(ctx)
}

// Cycle runs one duty cycle. Not safe for concurrent use with Run.
func (self *Engine) Cycle(ctx context.Context) error {
	if err := self.clockPhase(ctx); err != nil {
		return errors.Annotate(err, "clock phase")
	}
	if err := self.customPhase(ctx); err != nil {
		return errors.Annotate(err, "custom text phase")
	}
	if err := self.weatherPhase(ctx); err != nil {
		return errors.Annotate(err, "weather phase")
	}
	self.counter.Next()
	return nil
}

func (self *Engine) clockPhase(ctx context.Context) error {
	now := func() clock.Reading { return clock.ReadingOf(self.sleeper.Now().Add(self.offset)) }
	show := func(r clock.Reading, force bool) {
		if self.cache.MinuteChanged(r.Minute) || force {
			self.cache.Render(render.FormatClock(r, self.c.TimeMode))
		}
	}

	// time goes on display before network query, using previous offset
	show(now(), true)
	colon := true
	self.port.SetColon(colon)
	next := self.sleeper.Now()
	if self.ts != nil {
		self.offset = self.ts.Offset(ctx)
		show(now(), true)
	}

	ticks := int(self.c.TimeDisplay / tick)
	for i := 0; i < ticks; i++ {
		next = next.Add(tick)
		if err := self.sleeper.Sleep(ctx, next.Sub(self.sleeper.Now())); err != nil {
			return err
		}
		colon = !colon
		self.port.SetColon(colon)
		show(now(), false)
	}
	self.port.SetColon(false)
	return nil
}

func (self *Engine) customPhase(ctx context.Context) error {
	ct := self.c.Custom
	if !ct.active() {
		return nil
	}
	now := self.sleeper.Now()
	if self.customShown && now.Sub(self.customAt) < ct.Interval {
		return nil
	}
	self.customAt, self.customShown = now, true
	self.log.Debugf("engine: custom text %q", ct.Text)
	self.cache.Scroll(ct.Text, self.c.ScrollDelay)
	return self.sleeper.Sleep(ctx, ct.Duration)
}

func (self *Engine) weatherPhase(ctx context.Context) error {
	if self.ws == nil {
		return nil
	}
	if self.reading == nil || self.counter.Value() == 0 {
		r, err := self.ws.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// already logged by source
			self.reading = nil
		} else {
			self.reading = &r
			if self.onWeather != nil {
				self.onWeather(r)
			}
		}
	}
	if self.reading == nil {
		return nil
	}
	if self.c.Smooth {
		return self.scrollWeather(*self.reading)
	}
	return self.pageWeather(ctx, *self.reading)
}

type metric struct {
	label string
	value string
	hold  time.Duration
}

func (self *Engine) pageWeather(ctx context.Context, r weather.Reading) error {
	ms := []metric{
		{"Out", render.FormatTemperature(r.Temperature, r.Unit), self.c.TempDisplay},
		{"feel", render.FormatTemperature(r.FeelsLike, r.Unit), self.c.FeelsLikeDisplay},
	}
	for _, m := range ms {
		self.cache.Scroll(m.label, self.c.LabelDelay)
		if err := self.sleeper.Sleep(ctx, self.c.LabelPause); err != nil {
			return err
		}
		self.cache.Render(m.value)
		if err := self.sleeper.Sleep(ctx, m.hold); err != nil {
			return err
		}
	}
	// humidity label fits into value
	self.cache.Render(render.FormatHumidity(r.Humidity, self.c.HumidityStyle))
	return self.sleeper.Sleep(ctx, self.c.HumidityDisplay)
}

func (self *Engine) scrollWeather(r weather.Reading) error {
	texts := []string{
		render.ScrollText("Out", render.FormatTemperature(r.Temperature, r.Unit)),
		render.ScrollText("FEEL", render.FormatTemperature(r.FeelsLike, r.Unit)),
		render.ScrollText("rH", render.HumidityValue(r.Humidity, self.c.HumidityStyle)),
	}
	for _, s := range texts {
		self.cache.Scroll(s, self.c.ScrollDelay)
	}
	return nil
}

func (self *Engine) String() string {
	return fmt.Sprintf("engine(counter=%d/%d weather=%v)", self.counter.Value(), self.c.RefreshCycles, self.reading)
}
