package state

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/segclock/helpers"
	"github.com/temoto/segclock/internal/clock"
	"github.com/temoto/segclock/internal/engine"
	"github.com/temoto/segclock/internal/render"
	"github.com/temoto/segclock/internal/tele"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

const DefaultConfigPath = "/etc/segclock/segclock.hcl"

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Weather struct {
		ApiKey        string `hcl:"api_key" validate:"required,ne=your_api_key_here,ne=your_openweathermap_api_key_here"` // secret
		Zip           string `hcl:"zip" validate:"required,numeric,len=5"`
		Endpoint      string `hcl:"endpoint" validate:"omitempty,url"`
		TimeoutSec    int    `hcl:"timeout_sec" validate:"min=1,max=60"`
		Attempts      int    `hcl:"attempts" validate:"min=1,max=10"`
		RetryDelaySec int    `hcl:"retry_delay_sec" validate:"min=1,max=60"`
		RefreshCycles int    `hcl:"refresh_cycles" validate:"min=1,max=1000"`
	} `hcl:"weather"`

	Display struct {
		TimeFormat    string   `hcl:"time_format" validate:"oneof=12 24"`
		TempUnit      string   `hcl:"temp_unit" validate:"oneof=C F"`
		SmoothScroll  bool     `hcl:"smooth_scroll"`
		Brightness    *float64 `hcl:"brightness" validate:"required,gte=0,lte=1"`
		HumidityStyle string   `hcl:"humidity_style" validate:"oneof=rh percent"`
		ScrollDelayMs int      `hcl:"scroll_delay_ms" validate:"min=10,max=2000"`
		LabelDelayMs  int      `hcl:"label_delay_ms" validate:"min=10,max=2000"`
		LabelPauseSec int      `hcl:"label_pause_sec" validate:"min=1,max=60"`
	} `hcl:"display"`

	Ntp struct {
		PreferredServer string `hcl:"preferred_server"`
		TimeoutSec      int    `hcl:"timeout_sec" validate:"min=1,max=60"`
	} `hcl:"ntp"`

	Cycle struct {
		TimeDisplay      int `hcl:"time_display" validate:"min=1,max=60"`
		TempDisplay      int `hcl:"temp_display" validate:"min=1,max=60"`
		FeelsLikeDisplay int `hcl:"feels_like_display" validate:"min=1,max=60"`
		HumidityDisplay  int `hcl:"humidity_display" validate:"min=1,max=60"`
	} `hcl:"cycle"`

	CustomText struct {
		Enabled         bool   `hcl:"enabled"`
		Text            string `hcl:"text" validate:"max=50,required_if=Enabled true"`
		IntervalMinutes int    `hcl:"interval_minutes" validate:"min=1,max=1440"`
		DisplayDuration int    `hcl:"display_duration" validate:"min=1,max=60"`
	} `hcl:"custom_text"`

	Hardware struct {
		HT16K33 struct {
			Enable  bool   `hcl:"enable"`
			Bus     string `hcl:"bus"`
			Address *int   `hcl:"address" validate:"omitempty,min=3,max=119"`
		} `hcl:"ht16k33"`
	} `hcl:"hardware"`

	Tele tele.Config `hcl:"tele"`

	Log struct {
		Debug bool `hcl:"debug"`
	} `hcl:"log"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	// content may contain secrets, keep it out of error text
	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig parses sources in order, later values overwrite earlier.
// Unset values get defaults. Result is not validated, see Validate().
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		if err := osfs.SetBase(dir); err != nil {
			return nil, errors.Trace(err)
		}
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	c.defaults()
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

func (c *Config) defaults() {
	setInt := func(p *int, def int) {
		if *p == 0 {
			*p = def
		}
	}
	setString := func(p *string, def string) {
		if *p == "" {
			*p = def
		}
	}
	setInt(&c.Weather.TimeoutSec, int(weather.DefaultTimeout/time.Second))
	setInt(&c.Weather.Attempts, weather.DefaultAttempts)
	setInt(&c.Weather.RetryDelaySec, int(weather.DefaultDelay/time.Second))
	setInt(&c.Weather.RefreshCycles, engine.DefaultRefreshCycles)
	setString(&c.Display.TimeFormat, "12")
	setString(&c.Display.TempUnit, "C")
	setString(&c.Display.HumidityStyle, string(render.HumidityRH))
	if c.Display.Brightness == nil {
		b := 0.8
		c.Display.Brightness = &b
	}
	setInt(&c.Display.ScrollDelayMs, int(engine.DefaultScrollDelay/time.Millisecond))
	setInt(&c.Display.LabelDelayMs, int(engine.DefaultLabelDelay/time.Millisecond))
	setInt(&c.Display.LabelPauseSec, 2)
	setInt(&c.Ntp.TimeoutSec, int(clock.DefaultTimeout/time.Second))
	setInt(&c.Cycle.TimeDisplay, 2)
	setInt(&c.Cycle.TempDisplay, 3)
	setInt(&c.Cycle.FeelsLikeDisplay, 3)
	setInt(&c.Cycle.HumidityDisplay, 2)
	setInt(&c.CustomText.IntervalMinutes, 15)
	setInt(&c.CustomText.DisplayDuration, 3)
	setString(&c.Tele.ClientId, "segclock")
}

var validate = validator.New()

// Validate checks all value ranges, error lists every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Annotate(err, "config validate")
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, errors.NotValidf("config: %s", describeFieldError(fe)))
	}
	return helpers.FoldErrors(errs)
}

func describeFieldError(fe validator.FieldError) string {
	// Config.Weather.ApiKey -> weather.apikey
	name := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", name)
	case "ne":
		return fmt.Sprintf("%s is not configured (placeholder value)", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "max", "lte":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be <= %s", name, fe.Param())
	case "len", "numeric":
		return fmt.Sprintf("%s must be 5 digits", name)
	}
	return fmt.Sprintf("%s failed check %s=%s", name, fe.Tag(), fe.Param())
}

func (c *Config) TimeMode() clock.Mode {
	m, _ := clock.ParseMode(c.Display.TimeFormat)
	return m
}

func (c *Config) TempUnit() weather.Unit {
	u, _ := weather.ParseUnit(c.Display.TempUnit)
	return u
}

func (c *Config) WeatherConfig() weather.Config {
	return weather.Config{
		Endpoint: c.Weather.Endpoint,
		APIKey:   c.Weather.ApiKey,
		Zip:      c.Weather.Zip,
		Unit:     c.TempUnit(),
		Timeout:  helpers.IntSecondDefault(c.Weather.TimeoutSec, weather.DefaultTimeout),
		Attempts: c.Weather.Attempts,
		Backoff: helpers.Backoff{
			Min: helpers.IntSecondDefault(c.Weather.RetryDelaySec, weather.DefaultDelay),
			Max: helpers.IntSecondDefault(c.Weather.RetryDelaySec, weather.DefaultDelay),
			K:   1,
		},
	}
}

func (c *Config) EngineConfig() engine.Config {
	style, _ := render.ParseHumidityStyle(c.Display.HumidityStyle)
	ec := engine.Config{
		TimeDisplay:      time.Duration(c.Cycle.TimeDisplay) * time.Second,
		TempDisplay:      time.Duration(c.Cycle.TempDisplay) * time.Second,
		FeelsLikeDisplay: time.Duration(c.Cycle.FeelsLikeDisplay) * time.Second,
		HumidityDisplay:  time.Duration(c.Cycle.HumidityDisplay) * time.Second,
		TimeMode:         c.TimeMode(),
		HumidityStyle:    style,
		Smooth:           c.Display.SmoothScroll,
		ScrollDelay:      helpers.IntMillisecondDefault(c.Display.ScrollDelayMs, engine.DefaultScrollDelay),
		LabelDelay:       helpers.IntMillisecondDefault(c.Display.LabelDelayMs, engine.DefaultLabelDelay),
		LabelPause:       time.Duration(c.Display.LabelPauseSec) * time.Second,
		RefreshCycles:    c.Weather.RefreshCycles,
		Custom: engine.CustomText{
			Enabled:  c.CustomText.Enabled,
			Text:     c.CustomText.Text,
			Interval: time.Duration(c.CustomText.IntervalMinutes) * time.Minute,
			Duration: time.Duration(c.CustomText.DisplayDuration) * time.Second,
		},
	}
	if c.Display.Brightness != nil {
		ec.Brightness = *c.Display.Brightness
	}
	return ec
}
