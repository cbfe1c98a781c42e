// Package bus provides the byte-oriented transports the hub driver runs
// on: register-addressed read/write primitives over I2C, SPI or a
// UART-SHTP serial link.
package bus

import (
	"errors"

	"tinygo.org/x/drivers"
)

// ErrNoBus is returned by Check when a transport was constructed
// without an underlying bus.
var ErrNoBus = errors.New("bus: no underlying bus configured")

// Bus is the transaction contract the hub driver consumes. A read or
// write is one whole bus transaction; there are no partial transfers.
type Bus interface {
	// Check verifies the transport is usable before the first
	// transaction.
	Check() error

	// ReadRegister fills p starting at the given register/offset.
	ReadRegister(reg uint8, p []byte) error

	// Write transmits p as a single transaction.
	Write(p []byte) error
}

// I2CBus adapts a drivers.I2C bus to the Bus contract for a hub at a
// fixed address.
type I2CBus struct {
	bus  drivers.I2C
	addr uint16
}

// DefaultI2CAddress is the hub's address with the SA0 strap low.
const DefaultI2CAddress = 0x4A

// NewI2C wraps an I2C bus and target address.
func NewI2C(b drivers.I2C, addr uint16) *I2CBus {
	return &I2CBus{bus: b, addr: addr}
}

func (b *I2CBus) Check() error {
	if b.bus == nil {
		return ErrNoBus
	}
	return nil
}

func (b *I2CBus) ReadRegister(reg uint8, p []byte) error {
	return b.bus.Tx(b.addr, []byte{reg}, p)
}

func (b *I2CBus) Write(p []byte) error {
	return b.bus.Tx(b.addr, p, nil)
}

// SPIBus adapts a drivers.SPI bus to the Bus contract. The chip select
// line is driven around every transaction; the hub has no register
// addressing on SPI, so the register argument is ignored and zeros are
// clocked out during reads.
type SPIBus struct {
	bus drivers.SPI
	cs  func(active bool)
	tx  []byte
}

// NewSPI wraps a SPI bus and a chip select control function.
func NewSPI(b drivers.SPI, cs func(active bool)) *SPIBus {
	return &SPIBus{bus: b, cs: cs}
}

func (b *SPIBus) Check() error {
	if b.bus == nil {
		return ErrNoBus
	}
	return nil
}

func (b *SPIBus) ReadRegister(_ uint8, p []byte) error {
	if len(b.tx) < len(p) {
		b.tx = make([]byte, len(p))
	}
	b.cs(true)
	defer b.cs(false)
	return b.bus.Tx(b.tx[:len(p)], p)
}

func (b *SPIBus) Write(p []byte) error {
	b.cs(true)
	defer b.cs(false)
	return b.bus.Tx(p, nil)
}
