package engine

import (
	"time"

	"github.com/temoto/segclock/internal/clock"
	"github.com/temoto/segclock/internal/render"
)

const (
	DefaultScrollDelay   = 120 * time.Millisecond
	DefaultLabelDelay    = 200 * time.Millisecond
	DefaultLabelPause    = 2 * time.Second
	DefaultCooldown      = 5 * time.Second
	DefaultRefreshCycles = 10
)

type CustomText struct {
	Enabled  bool
	Text     string
	Interval time.Duration
	Duration time.Duration
}

func (c CustomText) active() bool { return c.Enabled && c.Text != "" }

// Config is read only after NewEngine.
type Config struct {
	TimeDisplay      time.Duration
	TempDisplay      time.Duration
	FeelsLikeDisplay time.Duration
	HumidityDisplay  time.Duration

	TimeMode      clock.Mode
	HumidityStyle render.HumidityStyle
	// Smooth selects one combined marquee per weather metric instead of label/value pages.
	Smooth      bool
	Brightness  float64
	ScrollDelay time.Duration
	LabelDelay  time.Duration
	LabelPause  time.Duration

	RefreshCycles int
	Cooldown      time.Duration
	Custom        CustomText
}

func (c *Config) defaults() {
	if c.TimeMode == 0 {
		c.TimeMode = clock.Mode12
	}
	if c.HumidityStyle == "" {
		c.HumidityStyle = render.HumidityRH
	}
	if c.ScrollDelay <= 0 {
		c.ScrollDelay = DefaultScrollDelay
	}
	if c.LabelDelay <= 0 {
		c.LabelDelay = DefaultLabelDelay
	}
	if c.LabelPause <= 0 {
		c.LabelPause = DefaultLabelPause
	}
	if c.RefreshCycles <= 0 {
		c.RefreshCycles = DefaultRefreshCycles
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
}

// CycleCounter counts duty cycles modulo weather refresh period.
type CycleCounter struct {
	n      int
	period int
}

func NewCycleCounter(period int) CycleCounter {
	if period < 1 {
		period = 1
	}
	return CycleCounter{period: period}
}

func (self *CycleCounter) Value() int { return self.n }

// Next returns true when counter wrapped to 0.
func (self *CycleCounter) Next() bool {
	self.n = (self.n + 1) % self.period
	return self.n == 0
}
