package clock

import (
	"context"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/segclock/cmd/segclock/subcmd"
	"github.com/temoto/segclock/helpers"
	"github.com/temoto/segclock/internal/state"
	"github.com/temoto/segclock/internal/tele"
)

var Mod = subcmd.Mod{Name: "clock", Usage: "show time and weather (default)", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	g.Log.Infof("ntp=%q weather zip=%s refresh_cycles=%d display=ht16k33:%t",
		config.Ntp.PreferredServer, config.Weather.Zip, config.Weather.RefreshCycles, config.Hardware.HT16K33.Enable)

	if !g.Alive.Add(1) {
		return nil
	}
	defer g.Alive.Done()

	e := g.NewEngine()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-g.Alive.StopChan()
		subcmd.SdNotify(daemon.SdNotifyStopping)
		e.Shutdown()
	}()

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Tele.State(tele.StateRunning)
	g.Log.Infof("clock running")
	err := e.Run(ctx)
	g.Stop()
	<-done

	errs := []error{err, g.CloseHardware()}
	g.Tele.Close()
	return errors.Annotate(helpers.FoldErrors(errs), "clock")
}
