package render

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/segclock/internal/clock"
	"github.com/temoto/segclock/internal/weather"
)

type HumidityStyle string

const (
	HumidityRH      HumidityStyle = "rh"      // rH55
	HumidityPercent HumidityStyle = "percent" // 55%
)

func ParseHumidityStyle(s string) (HumidityStyle, error) {
	switch HumidityStyle(strings.ToLower(s)) {
	case "", HumidityRH:
		return HumidityRH, nil
	case HumidityPercent:
		return HumidityPercent, nil
	}
	return "", errors.NotValidf("humidity style=%q", s)
}

// FormatClock gives 4 cells: hour right-aligned in 2 cells, minute zero padded.
func FormatClock(r clock.Reading, mode clock.Mode) string {
	return fmt.Sprintf("%2d%02d", clock.DisplayHour(r.Hour, mode), r.Minute)
}

// FormatTemperature is full text without truncation, e.g. "-12C", suitable for scroll.
func FormatTemperature(t int, unit weather.Unit) string {
	return fmt.Sprintf("%d%s", t, unit)
}

// FormatHumidity always fits 2 digits.
func FormatHumidity(h uint, style HumidityStyle) string {
	if h > 99 {
		h = 99
	}
	switch style {
	case HumidityPercent:
		return fmt.Sprintf("%2d%%", h)
	default:
		return fmt.Sprintf("rH%02d", h)
	}
}

// HumidityValue is humidity without label, used in scrolling style.
func HumidityValue(h uint, style HumidityStyle) string {
	if h > 99 {
		h = 99
	}
	if style == HumidityPercent {
		return fmt.Sprintf("%d%%", h)
	}
	return fmt.Sprintf("%02d", h)
}

// ScrollText composes "label value" with trailing pad so it scrolls off the edge.
func ScrollText(label, value string) string {
	return label + " " + value + "   "
}
