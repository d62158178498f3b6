// Package ht16k33 drives Holtek HT16K33 LED controller wired as
// 4 digit 7-segment display with center colon (Adafruit 0.56" backpack).
package ht16k33

import (
	"fmt"
	"sync"

	"github.com/juju/errors"
	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

const DefaultAddress uint16 = 0x70

const (
	cmdRAM     byte = 0x00
	cmdSetup   byte = 0x20
	cmdDisplay byte = 0x80
	cmdDimming byte = 0xe0
	setupOscOn byte = 0x01
	displayOn  byte = 0x01
	colonBit   byte = 0x02
)

const (
	ramSize      = 16
	colonAddress = 4
)

const MaxBrightness uint8 = 15

// RAM row of each digit, colon lives between digits 1 and 2.
var digitAddress = [4]int{0, 2, 6, 8}

type Dev struct {
	mu    sync.Mutex
	c     conn.Conn
	bus   i2c.BusCloser // only for resource cleanup
	ram   [ramSize]byte
}

// Open initializes periph host drivers, opens I2C bus by name ("" = first available)
// and probes the controller at addr.
func Open(busName string, addr uint16) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Annotatef(err, "I2C open bus=%s", busName)
	}
	if addr == 0 {
		addr = DefaultAddress
	}
	d, err := New(&i2c.Dev{Bus: bus, Addr: addr})
	if err != nil {
		_ = bus.Close()
		return nil, errors.Annotatef(err, "ht16k33 bus=%s addr=%#02x", busName, addr)
	}
	d.bus = bus
	return d, nil
}

// New runs init sequence over existing connection: oscillator on, blank RAM, display on.
func New(c conn.Conn) (*Dev, error) {
	d := &Dev{c: c}
	if err := d.tx(cmdSetup | setupOscOn); err != nil {
		return nil, errors.Annotate(err, "oscillator on")
	}
	if err := d.flush(); err != nil {
		return nil, errors.Annotate(err, "clear")
	}
	if err := d.setDisplay(true); err != nil {
		return nil, errors.Annotate(err, "display on")
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ht16k33(%s)", d.c.String())
}

// WriteDigits sets segment masks of 4 digits (bit0=a .. bit6=g, bit7=dp) and colon.
func (d *Dev) WriteDigits(digits [4]byte, colon bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range digitAddress {
		d.ram[a] = digits[i]
	}
	if colon {
		d.ram[colonAddress] = colonBit
	} else {
		d.ram[colonAddress] = 0
	}
	return d.flush()
}

// SetBrightness level 0..15, 0 is dim but not off.
func (d *Dev) SetBrightness(level uint8) error {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tx(cmdDimming | level)
}

func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ram = [ramSize]byte{}
	return d.flush()
}

// Close blanks display, turns it off and releases bus.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ram = [ramSize]byte{}
	errs := []error{d.flush(), d.setDisplay(false)}
	if d.bus != nil {
		errs = append(errs, d.bus.Close())
		d.bus = nil
	}
	for _, e := range errs {
		if e != nil {
			return errors.Trace(e)
		}
	}
	return nil
}

// setDisplay switches output, blinking is always off.
func (d *Dev) setDisplay(on bool) error {
	cmd := cmdDisplay
	if on {
		cmd |= displayOn
	}
	return d.tx(cmd)
}

func (d *Dev) flush() error {
	var buf [1 + ramSize]byte
	buf[0] = cmdRAM
	copy(buf[1:], d.ram[:])
	return d.c.Tx(buf[:], nil)
}

func (d *Dev) tx(cmd byte) error {
	return d.c.Tx([]byte{cmd}, nil)
}
