// Package diag has hardware and network self tests for installation time.
package diag

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/segclock/cmd/segclock/subcmd"
	"github.com/temoto/segclock/hardware/ht16k33"
	"github.com/temoto/segclock/hardware/segment_display"
	"github.com/temoto/segclock/internal/state"
	"golang.org/x/sys/unix"
)

var DisplayMod = subcmd.Mod{Name: "display-test", Usage: "check I2C access and display segments", Main: DisplayMain}

const i2cGlob = "/dev/i2c-*"

type result struct {
	name string
	err  error
}

type report struct {
	w       io.Writer
	results []result
}

func (self *report) add(name string, err error) {
	self.results = append(self.results, result{name, err})
	status := "PASS"
	if err != nil {
		status = "FAIL"
	}
	fmt.Fprintf(self.w, "%s %s", status, name)
	if err != nil {
		fmt.Fprintf(self.w, ": %v", err)
	}
	fmt.Fprintln(self.w)
}

func (self *report) summary(tag string) error {
	failed := 0
	for _, r := range self.results {
		if r.err != nil {
			failed++
		}
	}
	fmt.Fprintf(self.w, "%s: %d/%d checks passed\n", tag, len(self.results)-failed, len(self.results))
	if failed != 0 {
		return errors.Errorf("%s: %d checks failed", tag, failed)
	}
	return nil
}

// checkDevices reports every I2C device node and whether current user may use it.
func checkDevices(r *report, pattern string) {
	paths, err := filepath.Glob(pattern)
	if err == nil && len(paths) == 0 {
		err = errors.NotFoundf("%s (enable I2C interface, load i2c-dev module)", pattern)
	}
	r.add("i2c device nodes", err)
	for _, p := range paths {
		err := unix.Access(p, unix.R_OK|unix.W_OK)
		if err != nil {
			err = errors.Annotatef(err, "no read/write access (add user to i2c group)")
		}
		r.add("access "+p, err)
	}
}

// exercise shows test patterns on display, returns last device error.
func exercise(d segment_display.Port, brightness float64, sleep func(time.Duration)) error {
	type errer interface{ Err() error }
	check := func() error {
		if e, ok := d.(errer); ok {
			return e.Err()
		}
		return nil
	}

	d.Clear()
	d.SetBrightness(brightness)
	d.Print("TEST")
	if err := check(); err != nil {
		return errors.Annotate(err, "print")
	}
	sleep(2 * time.Second)
	d.Print("8.8.8.8.")
	d.SetColon(true)
	sleep(2 * time.Second)
	for _, b := range []float64{0, 0.25, 0.5, 0.75, 1} {
		d.SetBrightness(b)
		sleep(300 * time.Millisecond)
	}
	if err := check(); err != nil {
		return errors.Annotate(err, "brightness")
	}
	d.SetBrightness(brightness)
	d.Scroll("HELLO 1234", 150*time.Millisecond)
	d.Clear()
	return errors.Annotate(check(), "clear")
}

// echoFrames prints every state written to device, so operator can compare with real display.
func echoFrames(w io.Writer, d segment_display.Port) (stop func()) {
	disp, ok := d.(*segment_display.Display)
	if !ok {
		return func() {}
	}
	ch := make(chan segment_display.State, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range ch {
			fmt.Fprintf(w, "  frame [%s]\n", s.String())
		}
	}()
	disp.SetUpdateChan(ch)
	return func() {
		disp.SetUpdateChan(nil)
		close(ch)
		<-done
	}
}

func DisplayMain(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	// weather settings are not needed here, skip full validation
	g.Config = config
	cfg := &config.Hardware.HT16K33
	cfg.Enable = true
	addr := ht16k33.DefaultAddress
	if cfg.Address != nil {
		addr = uint16(*cfg.Address)
	}

	r := &report{w: os.Stdout}
	checkDevices(r, i2cGlob)
	checkScan(r, cfg.Bus, addr, scanI2C)

	d, err := g.Display()
	r.add(fmt.Sprintf("open ht16k33 bus=%q address=0x%02x", cfg.Bus, addr), err)
	if err != nil {
		fmt.Fprint(r.w, wiringGuide)
	} else {
		brightness := 0.8
		if config.Display.Brightness != nil {
			brightness = *config.Display.Brightness
		}
		stop := echoFrames(r.w, d)
		err = exercise(d, brightness, time.Sleep)
		stop()
		r.add("display patterns", err)
		r.add("close", g.CloseHardware())
	}
	return r.summary("display-test")
}
