// Package render turns readings into display text and keeps the display
// from receiving the same text twice in a row.
package render

import (
	"time"

	"github.com/temoto/segclock/hardware/segment_display"
)

// Cache owns display write state, it is not safe for concurrent use.
type Cache struct {
	port       segment_display.Port
	lastText   string
	lastValid  bool
	lastMinute int
	minuteSet  bool
	writes     int
}

func NewCache(port segment_display.Port) *Cache {
	return &Cache{port: port}
}

func (c *Cache) Port() segment_display.Port { return c.port }

// Render writes text through to display only when it differs from previous write.
func (c *Cache) Render(text string) bool {
	if c.lastValid && c.lastText == text {
		return false
	}
	c.port.Print(text)
	c.lastText, c.lastValid = text, true
	c.writes++
	return true
}

// Scroll bypasses fixed-width path, so next Render always writes.
func (c *Cache) Scroll(text string, step time.Duration) {
	c.port.Scroll(text, step)
	c.Invalidate()
}

func (c *Cache) Invalidate() {
	c.lastText, c.lastValid = "", false
}

func (c *Cache) Clear() {
	c.port.Clear()
	c.Invalidate()
	c.minuteSet = false
}

// MinuteChanged remembers minute and reports if it differs from previous call.
// First call always reports change.
func (c *Cache) MinuteChanged(minute int) bool {
	if c.minuteSet && c.lastMinute == minute {
		return false
	}
	c.lastMinute, c.minuteSet = minute, true
	return true
}

func (c *Cache) LastText() (string, bool) { return c.lastText, c.lastValid }

// Writes counts Print calls that reached display.
func (c *Cache) Writes() int { return c.writes }
