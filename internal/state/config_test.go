package state

import (
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/segclock/hardware/segment_display"
	"github.com/temoto/segclock/internal/clock"
	"github.com/temoto/segclock/internal/render"
	"github.com/temoto/segclock/internal/tele"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"defaults", TestConfigBase, func(t testing.TB, c *Config) {
			assert.Equal(t, "12", c.Display.TimeFormat)
			assert.Equal(t, clock.Mode12, c.TimeMode())
			assert.Equal(t, weather.Celsius, c.TempUnit())
			assert.Equal(t, 0.8, *c.Display.Brightness)
			assert.Equal(t, 2, c.Cycle.TimeDisplay)
			assert.Equal(t, 3, c.Cycle.TempDisplay)
			assert.Equal(t, 3, c.Cycle.FeelsLikeDisplay)
			assert.Equal(t, 2, c.Cycle.HumidityDisplay)
			assert.Equal(t, 10, c.Weather.RefreshCycles)
			assert.Equal(t, 15, c.CustomText.IntervalMinutes)
			assert.Equal(t, "", c.Ntp.PreferredServer)
			assert.False(t, c.Hardware.HT16K33.Enable)
			assert.Nil(t, c.Hardware.HT16K33.Address)
		}, ""},

		{"full", TestConfigBase + `
display { time_format = "24" temp_unit = "F" smooth_scroll = true brightness = 0 humidity_style = "percent" }
ntp { preferred_server = "192.168.1.1" timeout_sec = 2 }
cycle { time_display = 10 temp_display = 4 feels_like_display = 5 humidity_display = 6 }
custom_text { enabled = true text = "HAPPY BIRTHDAY" interval_minutes = 1 display_duration = 7 }
hardware { ht16k33 { enable = true bus = "1" address = 113 } }
log { debug = true }`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, 0.0, *c.Display.Brightness)
				assert.Equal(t, 113, *c.Hardware.HT16K33.Address)
				assert.Equal(t, "1", c.Hardware.HT16K33.Bus)
				ec := c.EngineConfig()
				assert.Equal(t, clock.Mode24, ec.TimeMode)
				assert.Equal(t, render.HumidityPercent, ec.HumidityStyle)
				assert.True(t, ec.Smooth)
				assert.Equal(t, 10*time.Second, ec.TimeDisplay)
				assert.Equal(t, 4*time.Second, ec.TempDisplay)
				assert.Equal(t, 5*time.Second, ec.FeelsLikeDisplay)
				assert.Equal(t, 6*time.Second, ec.HumidityDisplay)
				assert.Equal(t, 2*time.Second, ec.LabelPause)
				assert.Equal(t, 120*time.Millisecond, ec.ScrollDelay)
				assert.Equal(t, time.Minute, ec.Custom.Interval)
				assert.Equal(t, 7*time.Second, ec.Custom.Duration)
				assert.True(t, ec.Custom.Enabled)
				wc := c.WeatherConfig()
				assert.Equal(t, weather.Fahrenheit, wc.Unit)
				assert.Equal(t, 10*time.Second, wc.Timeout)
				assert.Equal(t, 5*time.Second, wc.Backoff.Delay(1))
				assert.Equal(t, 5*time.Second, wc.Backoff.Delay(2))
			}, ""},

		{"include-normalize", TestConfigBase + `include "./empty" {}`, nil, ""},

		{"include-optional", `
include "weather-creds" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "12345", c.Weather.Zip)
			}, ""},

		{"include-overwrites", TestConfigBase + `include "weather-creds" {}`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "12345", c.Weather.Zip)
				assert.Equal(t, "from-include", c.Weather.ApiKey)
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-missing", TestConfigBase + `include "non-exist" {}`, nil, "config required name=non-exist"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-placeholder", `weather { api_key = "your_api_key_here" zip = "94107" }`, nil, "weather.apikey is not configured"},
		{"error-api-key-empty", `weather { zip = "94107" }`, nil, "weather.apikey is required"},
		{"error-zip", `weather { api_key = "k" zip = "9410" }`, nil, "weather.zip must be 5 digits"},
		{"error-zip-alpha", `weather { api_key = "k" zip = "your_zip_code_here" }`, nil, "weather.zip must be 5 digits"},
		{"error-time-format", TestConfigBase + `display { time_format = "13" }`, nil, "display.timeformat must be one of [12 24]"},
		{"error-temp-unit", TestConfigBase + `display { temp_unit = "K" }`, nil, "display.tempunit must be one of [C F]"},
		{"error-brightness", TestConfigBase + `display { brightness = 1.5 }`, nil, "display.brightness must be <= 1"},
		{"error-cycle", TestConfigBase + `cycle { time_display = 61 }`, nil, "cycle.timedisplay must be <= 60"},
		{"error-interval", TestConfigBase + `custom_text { interval_minutes = 1441 }`, nil, "customtext.intervalminutes must be <= 1440"},
		{"error-custom-text-long", TestConfigBase + `custom_text { text = "` + strings.Repeat("A", 51) + `" }`, nil, "customtext.text must be at most 50 characters"},
		{"error-custom-text-empty", TestConfigBase + `custom_text { enabled = true }`, nil, "customtext.text is required"},
		{"error-tele-broker", TestConfigBase + `tele { enable = true }`, nil, "tele.mqttbroker is required"},
		{"error-multiple", `weather { api_key = "k" zip = "1" } display { temp_unit = "K" }`, nil, "display.tempunit"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			t.Parallel()
			log := log2.NewTest(t, log2.LDebug)
			fs := NewMockFullReader(map[string]string{
				"test-inline":   c.input,
				"empty":         "",
				"weather-creds": `weather { api_key = "from-include" zip = "12345" }`,
				"include-loop":  `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if err == nil {
				err = cfg.Validate()
			}
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, cfg)
				}
			} else {
				require.Error(t, err)
				if !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	cfg := MustReadConfig(log, NewMockFullReader(map[string]string{"c": `weather { api_key = "your_api_key_here" }`}), "c")
	env := map[string]string{
		EnvWeatherApiKey:    "from-env",
		EnvWeatherZip:       "10001",
		EnvTeleMqttPassword: "mqtt-secret",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "from-env", cfg.Weather.ApiKey)
	assert.Equal(t, "10001", cfg.Weather.Zip)
	assert.Equal(t, "mqtt-secret", cfg.Tele.MqttPassword)
}

func TestGlobalDisplay(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		_, g := NewTestContext(t, TestConfigBase)
		d, err := g.Display()
		require.NoError(t, err)
		assert.IsType(t, segment_display.Headless{}, d)
		e := g.NewEngine()
		require.NotNil(t, e)
	})

	t.Run("mock", func(t *testing.T) {
		_, g := NewTestContext(t, TestConfigBase+`hardware { ht16k33 { enable = true } }`)
		dev := new(segment_display.MockDevicer)
		g.Hardware.HT16K33.dev = dev
		d, err := g.Display()
		require.NoError(t, err)
		d.Print("1234")
		assert.Equal(t, 1, dev.WriteCount())
		again, _ := g.Display()
		assert.Same(t, d, again)
	})
}

func TestGlobalStop(t *testing.T) {
	t.Parallel()

	ctx, g := NewTestContext(t, TestConfigBase)
	assert.Same(t, g, GetGlobal(ctx))
	g.Alive.Add(1)
	go func() {
		<-g.Alive.StopChan()
		g.Alive.Done()
	}()
	assert.True(t, g.StopWait(time.Second))
	assert.False(t, g.Alive.IsRunning())
}

func TestGlobalErrorForwardsToTele(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	rec := &recordTeler{}
	ctx, g := NewContext(log, rec)
	g.MustInit(ctx, MustReadConfig(log, NewMockFullReader(map[string]string{"c": TestConfigBase}), "c"))
	defer g.Stop()
	g.Error(errors.New("i2c gone"), "display op=%s", "print")
	require.Len(t, rec.errs, 1)
	assert.Equal(t, "display op=print: i2c gone", rec.errs[0].Error())
}

type recordTeler struct {
	tele.Noop
	errs []error
}

func (self *recordTeler) Error(e error) { self.errs = append(self.errs, e) }
