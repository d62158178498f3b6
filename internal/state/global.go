package state

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/segclock/internal/clock"
	"github.com/temoto/segclock/internal/engine"
	"github.com/temoto/segclock/internal/tele"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

type Global struct {
	Alive    *alive.Alive
	Config   *Config
	Hardware hardware
	Log      *log2.Log
	Tele     tele.Teler
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log, teler tele.Teler) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  teler,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, ContextKey, g)

	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	if cfg.Log.Debug {
		g.Log.SetLevel(log2.LDebug)
	}

	if err := cfg.Validate(); err != nil {
		return errors.Annotate(err, "config")
	}

	// Since tele is remote error reporting mechanism, it must be inited before anything else
	if err := g.Tele.Init(ctx, g.Log, g.Config.Tele); err != nil {
		return errors.Annotate(err, "tele init")
	}
	g.Log.SetErrorFunc(g.Tele.Error)

	g.watchSignals()
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

// watchSignals turns SIGINT/SIGTERM into Stop().
func (g *Global) watchSignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			g.Log.Infof("signal=%v, stopping", sig)
			g.Stop()
		case <-g.Alive.StopChan():
		}
	}()
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		// log error func forwards to tele
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Tele.Close()
		g.Log.Fatal(errors.ErrorStack(err))
		os.Exit(1)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

func (g *Global) TimeSource() *clock.Source {
	cfg := &g.Config.Ntp
	return clock.NewSource(cfg.PreferredServer, time.Duration(cfg.TimeoutSec)*time.Second, g.Log)
}

func (g *Global) WeatherClient() *weather.Client {
	return weather.NewClient(g.Config.WeatherConfig(), g.Log)
}

// NewEngine wires configured sources, display and telemetry.
func (g *Global) NewEngine() *engine.Engine {
	disp, err := g.Display()
	if err != nil {
		g.Error(err, "display unavailable, running headless")
	}
	e := engine.NewEngine(g.Config.EngineConfig(), disp, g.TimeSource(), g.WeatherClient(), g.Log)
	e.SetWeatherFunc(g.Tele.Weather)
	return e
}
