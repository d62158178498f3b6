package diag

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/segclock/cmd/segclock/subcmd"
	"github.com/temoto/segclock/internal/state"
	"github.com/temoto/segclock/internal/weather"
)

var WeatherMod = subcmd.Mod{Name: "weather-test", Usage: "fetch weather once with configured credentials", Main: WeatherMain}

func WeatherMain(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	config.Tele.Enabled = false
	if err := g.Init(ctx, config); err != nil {
		return errors.Annotate(err, "weather-test")
	}

	r := &report{w: os.Stdout}
	reading, err := g.WeatherClient().Fetch(ctx)
	if err != nil {
		err = errors.Annotatef(err, "kind=%s", weather.Kind(err))
	}
	r.add(fmt.Sprintf("weather zip=%s", config.Weather.Zip), err)
	if err == nil {
		fmt.Fprintf(r.w, "  %s\n", reading.String())
	}

	src := g.TimeSource()
	if src.Server() != "" {
		fmt.Fprintf(r.w, "  ntp server=%s time=%s offset=%v\n",
			src.Server(), src.Now(ctx).Format(time.RFC3339), src.Offset(ctx))
	}
	return r.summary("weather-test")
}
