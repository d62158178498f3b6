package state

import (
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/segclock/hardware/ht16k33"
	"github.com/temoto/segclock/hardware/segment_display"
	"github.com/temoto/segclock/log2"
)

type hardware struct {
	HT16K33 struct {
		once
		dev     segment_display.Devicer
		display *segment_display.Display
	}
}

// Display is lazy init. Disabled or broken hardware returns headless display,
// so callers never deal with nil.
func (g *Global) Display() (segment_display.Port, error) {
	x := &g.Hardware.HT16K33 // short alias
	_ = x.do(func() error {
		cfg := &g.Config.Hardware.HT16K33
		if !cfg.Enable {
			g.Log.Infof("display=ht16k33 disabled")
			return nil
		}
		// test code sets .dev
		if x.dev == nil {
			addr := ht16k33.DefaultAddress
			if cfg.Address != nil {
				addr = uint16(*cfg.Address)
			}
			dev, err := ht16k33.Open(cfg.Bus, addr)
			if err != nil {
				return errors.Annotatef(err, "config: hardware.ht16k33 bus=%q address=%#x", cfg.Bus, addr)
			}
			x.dev = dev
		}
		x.display = segment_display.NewDisplay(x.dev, g.Log.Clone(log2.LInfo))
		return nil
	})
	if x.display == nil {
		return segment_display.NewHeadless(), x.err
	}
	return x.display, x.err
}

// CloseHardware releases device handles, display is blanked by device Close.
func (g *Global) CloseHardware() error {
	x := &g.Hardware.HT16K33
	if c, ok := x.dev.(interface{ Close() error }); ok && x.done() {
		return errors.Annotate(c.Close(), "ht16k33 close")
	}
	return nil
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
