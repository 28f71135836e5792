// Package dac8811 drives the 16-bit SPI DAC that sets the power stage drive.
//
// The DAC shifts the code in MSB first and latches it on an LDAC low pulse,
// so the new output appears atomically once per write.
package dac8811

import (
	"tinygo.org/x/drivers"
)

// PinOutput sets the LDAC line level (true = high).
type PinOutput func(level bool)

type Device struct {
	spi  drivers.SPI
	ldac PinOutput

	// Fixed buffer to avoid per-call heap allocations.
	w [2]byte
}

func New(spi drivers.SPI, ldac PinOutput) *Device {
	// Idle state of LDAC is high; the falling edge latches.
	ldac(true)
	return &Device{spi: spi, ldac: ldac}
}

// Write shifts the code out and strobes LDAC to latch it. Writing the same
// code twice is harmless (the output does not move), which keeps the
// per-tick apply idempotent.
func (d *Device) Write(code uint16) error {
	d.w[0] = byte(code >> 8)
	d.w[1] = byte(code)
	if err := d.spi.Tx(d.w[:], nil); err != nil {
		return err
	}
	d.ldac(false)
	d.ldac(true)
	return nil
}

// Shutdown forces the output to the zero-drive code.
func (d *Device) Shutdown() error { return d.Write(0) }
