package segment_display

import (
	"sync"
	"time"

	"github.com/temoto/segclock/log2"
)

// MockDevicer records what real hardware would receive.
type MockDevicer struct {
	mu     sync.Mutex
	Digits [Width]byte
	Colon  bool
	Level  uint8
	Writes int
	Clears int
	Err    error
}

func NewMockDisplay(log *log2.Log) (*Display, *MockDevicer) {
	dev := new(MockDevicer)
	d := NewDisplay(dev, log)
	d.SetSleep(func(time.Duration) {})
	return d, dev
}

func (self *MockDevicer) WriteDigits(digits [Width]byte, colon bool) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return self.Err
	}
	self.Digits, self.Colon = digits, colon
	self.Writes++
	return nil
}

func (self *MockDevicer) SetBrightness(level uint8) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return self.Err
	}
	self.Level = level
	return nil
}

func (self *MockDevicer) Clear() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return self.Err
	}
	self.Digits, self.Colon = [Width]byte{}, false
	self.Clears++
	return nil
}

func (self *MockDevicer) SetError(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Err = err
}

func (self *MockDevicer) WriteCount() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.Writes
}
