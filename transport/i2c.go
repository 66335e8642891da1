// Package transport connects a bme680.Device to an I²C bus.
package transport

import (
	"fmt"
	"io"

	"github.com/ftmazzone/bme680"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// I2C is a bme680.Transport over any bus exposing Tx. periph.io buses and TinyGo's
// machine.I2C both qualify.
type I2C struct {
	bus    drivers.I2C
	addr   uint16
	closer io.Closer
}

// New wraps an already open bus. The caller keeps ownership of it.
func New(bus drivers.I2C, addr uint16) *I2C {
	return &I2C{bus: bus, addr: addr}
}

// Open initializes the periph.io host drivers and opens the named bus. An empty name
// selects the first bus found, usually /dev/i2c-1.
func Open(name string, addr uint16) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return &I2C{bus: bus, addr: addr, closer: bus}, nil
}

// ReadRegister reads n bytes starting at reg.
func (t *I2C) ReadRegister(reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := t.bus.Tx(t.addr, []byte{reg}, buf); err != nil {
		return nil, &bme680.TransportError{Op: "read", Addr: reg, Err: err}
	}
	return buf, nil
}

// WriteRegister writes v to reg.
func (t *I2C) WriteRegister(reg, v byte) error {
	if err := t.bus.Tx(t.addr, []byte{reg, v}, nil); err != nil {
		return &bme680.TransportError{Op: "write", Addr: reg, Err: err}
	}
	return nil
}

// Address returns the 7 bit device address.
func (t *I2C) Address() uint16 { return t.addr }

// Close releases the bus if Open created it.
func (t *I2C) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
