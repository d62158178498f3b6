// Package segment_display renders text on 4 digit 7-segment display with center colon.
package segment_display

import (
	"math"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/segclock/log2"
)

const Width = 4

// Port is the logical display used by scheduling code.
// Every operation is best-effort, hardware problems are logged, never returned.
type Port interface {
	// Print shows up to Width cells right-justified, extra cells are cut off.
	Print(text string)
	// SetColon toggles center colon without changing digits.
	SetColon(on bool)
	// Scroll animates text once from the right edge, blocking for len(text)*step.
	// Leaves display content undefined for write caches.
	Scroll(text string, step time.Duration)
	// SetBrightness 0.0..1.0
	SetBrightness(v float64)
	Clear()
}

type Devicer interface {
	WriteDigits(digits [Width]byte, colon bool) error
	SetBrightness(level uint8) error
	Clear() error
}

// MaxLevel is hardware brightness steps - 1.
const MaxLevel = 15

type Display struct {
	mu    sync.Mutex
	dev   Devicer
	log   *log2.Log
	cells [Width]Glyph
	colon bool
	sleep func(time.Duration)
	upd   chan<- State
	fail  bool
	err   error
}

var _ Port = &Display{} // compile-time interface test

func NewDisplay(dev Devicer, log *log2.Log) *Display {
	if dev == nil {
		panic("code error NewDisplay dev=nil, use NewHeadless")
	}
	self := &Display{
		dev:   dev,
		log:   log,
		sleep: time.Sleep,
	}
	self.clearCells()
	return self
}

// SetSleep replaces time.Sleep used between scroll steps.
func (self *Display) SetSleep(f func(time.Duration)) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.sleep = f
}

// SetUpdateChan receives state copy after every device write.
func (self *Display) SetUpdateChan(ch chan<- State) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.upd = ch
}

func (self *Display) Print(text string) {
	gs := Encode(text)
	if len(gs) > Width {
		gs = gs[:Width]
	}

	self.mu.Lock()
	defer self.mu.Unlock()
	pad := Width - len(gs)
	for i := 0; i < pad; i++ {
		self.cells[i] = blank
	}
	copy(self.cells[pad:], gs)
	self.flush()
}

func (self *Display) SetColon(on bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.colon = on
	self.flush()
}

func (self *Display) Scroll(text string, step time.Duration) {
	gs := Encode(text)

	self.mu.Lock()
	self.clearCells()
	self.colon = false
	sleep := self.sleep
	self.mu.Unlock()

	for _, g := range gs {
		self.mu.Lock()
		copy(self.cells[:], self.cells[1:])
		self.cells[Width-1] = g
		self.flush()
		self.mu.Unlock()
		sleep(step)
	}
}

func (self *Display) SetBrightness(v float64) {
	level := BrightnessLevel(v)
	self.mu.Lock()
	defer self.mu.Unlock()
	self.check(errors.Annotatef(self.dev.SetBrightness(level), "brightness=%d", level))
}

func (self *Display) Clear() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.clearCells()
	self.colon = false
	self.check(errors.Annotate(self.dev.Clear(), "clear"))
	self.notify()
}

func (self *Display) State() State {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.state()
}

// Err is result of last device operation.
func (self *Display) Err() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.err
}

// BrightnessLevel maps 0.0..1.0 to hardware steps, out of range values are clamped.
func BrightnessLevel(v float64) uint8 {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(math.Round(v * MaxLevel))
}

func (self *Display) clearCells() {
	for i := range self.cells {
		self.cells[i] = blank
	}
}

func (self *Display) flush() {
	var digits [Width]byte
	for i, g := range self.cells {
		digits[i] = g.Mask
	}
	self.check(errors.Annotate(self.dev.WriteDigits(digits, self.colon), "write"))
	self.notify()
}

func (self *Display) notify() {
	if self.upd != nil {
		self.upd <- self.state()
	}
}

func (self *Display) state() State {
	return State{Text: glyphString(self.cells[:]), Colon: self.colon}
}

// Log only transitions, display may be unplugged for hours.
func (self *Display) check(err error) {
	self.err = err
	switch {
	case err != nil && !self.fail:
		self.fail = true
		self.log.Errorf("display: %v", err)
	case err != nil:
		self.log.Debugf("display: %v", err)
	case self.fail:
		self.fail = false
		self.log.Infof("display: recovered")
	}
}

// State is what the display shows, dots are rendered inline.
type State struct {
	Text  string
	Colon bool
}

func (s State) String() string {
	if s.Colon {
		return s.Text + " :"
	}
	return s.Text
}
