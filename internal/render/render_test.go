package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/temoto/segclock/hardware/segment_display"
	"github.com/temoto/segclock/internal/clock"
	"github.com/temoto/segclock/internal/weather"
	"github.com/temoto/segclock/log2"
)

func TestFormatClock(t *testing.T) {
	t.Parallel()

	cases := []struct {
		r      clock.Reading
		mode   clock.Mode
		expect string
	}{
		{clock.Reading{Hour: 0, Minute: 5}, clock.Mode12, "1205"},
		{clock.Reading{Hour: 9, Minute: 30}, clock.Mode12, " 930"},
		{clock.Reading{Hour: 13, Minute: 7}, clock.Mode12, " 107"},
		{clock.Reading{Hour: 13, Minute: 7}, clock.Mode24, "1307"},
		{clock.Reading{Hour: 0, Minute: 0}, clock.Mode24, " 000"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, FormatClock(c.r, c.mode), c.r.String())
	}
}

func TestFormatWeather(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "20C", FormatTemperature(20, weather.Celsius))
	assert.Equal(t, "-12F", FormatTemperature(-12, weather.Fahrenheit))
	assert.Equal(t, "rH55", FormatHumidity(55, HumidityRH))
	assert.Equal(t, "rH05", FormatHumidity(5, HumidityRH))
	assert.Equal(t, "rH99", FormatHumidity(100, HumidityRH))
	assert.Equal(t, "55%", FormatHumidity(55, HumidityPercent))
	assert.Equal(t, "99%", FormatHumidity(100, HumidityPercent))
	assert.Equal(t, "55", HumidityValue(55, HumidityRH))
	assert.Equal(t, "7%", HumidityValue(7, HumidityPercent))
	assert.Equal(t, "Out 20C   ", ScrollText("Out", FormatTemperature(20, weather.Celsius)))

	s, err := ParseHumidityStyle("")
	assert.NoError(t, err)
	assert.Equal(t, HumidityRH, s)
	s, err = ParseHumidityStyle("Percent")
	assert.NoError(t, err)
	assert.Equal(t, HumidityPercent, s)
	_, err = ParseHumidityStyle("bar")
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	t.Parallel()

	disp, dev := segment_display.NewMockDisplay(log2.NewTest(t, log2.LDebug))
	c := NewCache(disp)

	assert.True(t, c.Render("1200"))
	assert.False(t, c.Render("1200"))
	assert.Equal(t, 1, c.Writes())
	assert.True(t, c.Render("1201"))
	assert.Equal(t, 2, c.Writes())

	c.Scroll("Out 20C", time.Millisecond)
	_, ok := c.LastText()
	assert.False(t, ok)
	assert.True(t, c.Render("1201"))
	assert.Equal(t, 3, c.Writes())

	c.Invalidate()
	assert.True(t, c.Render("1201"))
	assert.Equal(t, 4, c.Writes())

	c.Clear()
	assert.Equal(t, 1, dev.Clears)
	assert.True(t, c.Render("1201"))
}

func TestMinuteChanged(t *testing.T) {
	t.Parallel()

	c := NewCache(segment_display.NewHeadless())
	assert.True(t, c.MinuteChanged(5))
	assert.False(t, c.MinuteChanged(5))
	assert.True(t, c.MinuteChanged(6))
	c.Clear()
	assert.True(t, c.MinuteChanged(6))
}
