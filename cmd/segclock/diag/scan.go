package diag

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// valid 7 bit addresses, reserved ranges excluded
const (
	scanFirst uint16 = 0x03
	scanLast  uint16 = 0x77
)

const wiringGuide = `  check wiring (HT16K33 backpack to Raspberry Pi header):
  - VIN  -> pin 2 (5V)
  - IO   -> pin 1 (3.3V), required
  - GND  -> pin 6 (GND)
  - SDA  -> pin 3 (GPIO 2)
  - SCL  -> pin 5 (GPIO 3)
`

// txer is the part of i2c.Bus used by scan.
type txer interface {
	Tx(addr uint16, w, r []byte) error
}

// scanBus returns addresses that acknowledged one byte read.
func scanBus(bus txer) []uint16 {
	var found []uint16
	buf := make([]byte, 1)
	for addr := scanFirst; addr <= scanLast; addr++ {
		if bus.Tx(addr, nil, buf) == nil {
			found = append(found, addr)
		}
	}
	return found
}

func scanI2C(busName string) ([]uint16, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Annotatef(err, "I2C open bus=%q", busName)
	}
	defer bus.Close()
	return scanBus(bus), nil
}

// checkScan reports devices found on bus and whether display address is among them.
func checkScan(r *report, busName string, expect uint16, scan func(string) ([]uint16, error)) bool {
	found, err := scan(busName)
	r.add(fmt.Sprintf("i2c scan bus=%q", busName), err)
	if err != nil {
		return false
	}
	ss := make([]string, len(found))
	present := false
	for i, a := range found {
		ss[i] = fmt.Sprintf("0x%02x", a)
		present = present || a == expect
	}
	fmt.Fprintf(r.w, "  devices: [%s]\n", strings.Join(ss, " "))
	if !present {
		r.add(fmt.Sprintf("display at 0x%02x", expect), errors.NotFoundf("no ack from 0x%02x", expect))
		fmt.Fprint(r.w, wiringGuide)
		return false
	}
	r.add(fmt.Sprintf("display at 0x%02x", expect), nil)
	return true
}
