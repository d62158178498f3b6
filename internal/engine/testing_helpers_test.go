package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/temoto/segclock/hardware/segment_display"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

// fakeSleeper advances virtual time instead of blocking.
type fakeSleeper struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	stopAt time.Time
	cancel context.CancelFunc
}

func newFakeSleeper(start time.Time) *fakeSleeper { return &fakeSleeper{now: start} }

func (self *fakeSleeper) Now() time.Time {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.now
}

func (self *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	self.mu.Lock()
	if d > 0 {
		self.now = self.now.Add(d)
	}
	self.sleeps = append(self.sleeps, d)
	stop := self.cancel != nil && !self.now.Before(self.stopAt)
	self.mu.Unlock()
	if stop {
		self.cancel()
	}
	return ctx.Err()
}

func (self *fakeSleeper) advance(d time.Duration) {
	self.mu.Lock()
	self.now = self.now.Add(d)
	self.mu.Unlock()
}

// stopAfter cancels context on first Sleep at or after virtual time start+d.
func (self *fakeSleeper) stopAfter(d time.Duration, cancel context.CancelFunc) {
	self.mu.Lock()
	self.stopAt = self.now.Add(d)
	self.cancel = cancel
	self.mu.Unlock()
}

// recordPort logs every call as text event, scroll consumes virtual time.
type recordPort struct {
	mu      sync.Mutex
	sleeper *fakeSleeper
	events  []string
	work    time.Duration // virtual cost of SetColon
}

var _ segment_display.Port = &recordPort{}

func (self *recordPort) add(format string, args ...interface{}) {
	self.mu.Lock()
	self.events = append(self.events, fmt.Sprintf(format, args...))
	self.mu.Unlock()
}

func (self *recordPort) Print(text string) { self.add("print %s", text) }

func (self *recordPort) SetColon(on bool) {
	self.add("colon %t", on)
	if self.sleeper != nil && self.work != 0 {
		self.sleeper.advance(self.work)
	}
}
func (self *recordPort) SetBrightness(v float64) {
	self.add("brightness %.1f", v)
}
func (self *recordPort) Clear() { self.add("clear") }
func (self *recordPort) Scroll(text string, step time.Duration) {
	self.add("scroll %s", text)
	if self.sleeper != nil {
		self.sleeper.advance(time.Duration(len(text)) * step)
	}
}

func (self *recordPort) Events() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]string(nil), self.events...)
}

func (self *recordPort) Reset() {
	self.mu.Lock()
	self.events = nil
	self.mu.Unlock()
}

func (self *recordPort) Count(prefix string) int {
	n := 0
	for _, e := range self.Events() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type fakeTime struct {
	offset time.Duration
	calls  int
}

func (self *fakeTime) Offset(context.Context) time.Duration {
	self.calls++
	return self.offset
}

// slowTime spends virtual time in Offset, like unreachable NTP server.
type slowTime struct {
	sleeper *fakeSleeper
	port    *recordPort
	cost    time.Duration
	offset  time.Duration
	calls   int
}

func (self *slowTime) Offset(context.Context) time.Duration {
	self.calls++
	self.port.add("ntp")
	self.sleeper.advance(self.cost)
	return self.offset
}

// fakeWeather returns results in order, last one repeats.
type fakeWeather struct {
	results []weatherResult
	calls   int
}

type weatherResult struct {
	r     weather.Reading
	err   error
	panic bool
}

func (self *fakeWeather) Fetch(ctx context.Context) (weather.Reading, error) {
	i := self.calls
	if i >= len(self.results) {
		i = len(self.results) - 1
	}
	self.calls++
	res := self.results[i]
	if res.panic {
		panic("weather source exploded")
	}
	return res.r, res.err
}

type testEnv struct {
	e       *Engine
	port    *recordPort
	sleeper *fakeSleeper
	ts      *fakeTime
	ws      *fakeWeather
}

var testStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEnv(t testing.TB, c Config, results ...weatherResult) *testEnv {
	env := &testEnv{
		sleeper: newFakeSleeper(testStart),
		ts:      &fakeTime{},
		ws:      &fakeWeather{results: results},
	}
	env.port = &recordPort{sleeper: env.sleeper}
	var ws WeatherSource
	if len(results) != 0 {
		ws = env.ws
	}
	env.e = NewEngine(c, env.port, env.ts, ws, log2.NewTest(t, log2.LDebug))
	env.e.SetSleeper(env.sleeper)
	return env
}

func okWeather(temp, feel int, rh uint) weatherResult {
	return weatherResult{r: weather.Reading{Temperature: temp, FeelsLike: feel, Humidity: rh, Unit: weather.Celsius}}
}
