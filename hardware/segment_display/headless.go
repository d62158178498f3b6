package segment_display

import "time"

// Headless stands in for absent display hardware, every call is a no-op.
type Headless struct{}

var _ Port = Headless{}

func NewHeadless() Headless { return Headless{} }

func (Headless) Print(string)                 {}
func (Headless) SetColon(bool)                {}
func (Headless) Scroll(string, time.Duration) {}
func (Headless) SetBrightness(float64)        {}
func (Headless) Clear()                       {}
