// Package ad7175 is a minimal SPI driver for the AD7175-2 sigma-delta ADC.
//
// Design notes (datasheet references):
// • SPI mode 3, MSB first; comms register selects target register, 0x40 = read.
// • Registers are 1..4 bytes wide; transfers run through one fixed buffer.
// • DATA_STAT appends the status byte to data reads so every sample carries
//   its source channel.
// • Offset/gain registers per setup allow system zero/full-scale calibration.
package ad7175

import (
	"errors"

	"tinygo.org/x/drivers"
)

var (
	ErrBadID    = errors.New("ad7175: unexpected ID register value")
	ErrNotReady = errors.New("ad7175: conversion not ready")
	ErrRail     = errors.New("ad7175: code pinned at rail")
	ErrParams   = errors.New("ad7175: invalid channel params")
)

// ChannelConfig programs one multiplexer channel.
type ChannelConfig struct {
	Num     uint8  // channel register index 0..3
	Setup   uint8  // setup block 0..3
	Pos     uint16 // AINPOS selection
	Neg     uint16 // AINNEG selection
	Bipolar bool
	Buffers bool // enable analog input buffers
}

// Config is applied once at Init.
type Config struct {
	ODR      uint16 // output data rate code, FILTCONx bits 4:0
	IntRef   bool   // use the internal reference
	Channels []ChannelConfig
}

type Device struct {
	spi drivers.SPI

	// Fixed scratch buffer to avoid per-transfer heap allocations.
	buf [8]byte
}

func New(spi drivers.SPI) *Device {
	return &Device{spi: spi}
}

// Init probes the ID register, then programs interface mode, per-channel
// setup/filter/mux registers and starts continuous conversion.
func (d *Device) Init(cfg Config) error {
	id, err := d.readReg(regID, 2)
	if err != nil {
		return err
	}
	if uint16(id)&idMask != idExpected {
		return ErrBadID
	}

	// Status byte appended to every data read.
	if err := d.writeReg(regIfMode, 2, ifModeDataStat); err != nil {
		return err
	}

	for _, ch := range cfg.Channels {
		if ch.Num > 3 || ch.Setup > 3 {
			return ErrParams
		}
		var setup uint16
		if ch.Bipolar {
			setup |= setupBipolar
		}
		if ch.Buffers {
			setup |= setupAinBufPos | setupAinBufNeg
		}
		if cfg.IntRef {
			setup |= refInternal
		} else {
			setup |= refExternal
		}
		if err := d.writeReg(regSetupCon0+ch.Setup, 2, uint32(setup)); err != nil {
			return err
		}
		if err := d.writeReg(regFiltCon0+ch.Setup, 2, uint32(cfg.ODR&0x1F)); err != nil {
			return err
		}
		chReg := uint16(chEnable) |
			uint16(ch.Setup)<<chSetupShift |
			(ch.Pos&0x1F)<<chAinPosShif |
			(ch.Neg&0x1F)<<chAinNegShif
		if err := d.writeReg(regCh0+ch.Num, 2, uint32(chReg)); err != nil {
			return err
		}
	}

	return d.SetMode(ModeContinuous)
}

// SetMode replaces the conversion-mode field of ADCMODE, preserving the
// reference enable and clock selection.
func (d *Device) SetMode(mode uint16) error {
	cur, err := d.readReg(regADCMode, 2)
	if err != nil {
		return err
	}
	v := (uint16(cur) &^ adcModeMask) | (mode & adcModeMask)
	v |= adcModeRefEn | clkInternal
	return d.writeReg(regADCMode, 2, uint32(v))
}

// ---------------- Status and data ----------------

type Status uint8

func (s Status) Ready() bool    { return s&statusNotReady == 0 }
func (s Status) ADCError() bool { return s&statusADCError != 0 }
func (s Status) CRCError() bool { return s&statusCRCError != 0 }
func (s Status) RegError() bool { return s&statusRegError != 0 }
func (s Status) Channel() uint8 { return uint8(s & statusChMask) }

func (d *Device) Status() (Status, error) {
	v, err := d.readReg(regStatus, 1)
	return Status(v), err
}

// Sample is one conversion result with its source channel.
type Sample struct {
	Code    uint32 // 24-bit conversion code
	Channel uint8
}

// ReadData reads the data register plus appended status byte.
// A code pinned at either 24-bit rail is reported as ErrRail together with
// the sample, so callers can flag a sensor fault without losing the channel.
func (d *Device) ReadData() (Sample, error) {
	raw, err := d.readReg(regData, 4)
	if err != nil {
		return Sample{}, err
	}
	s := Sample{
		Code:    raw >> 8,
		Channel: Status(raw & 0xFF).Channel(),
	}
	if s.Code == codeMin || s.Code == codeMax {
		return s, ErrRail
	}
	return s, nil
}

// ---------------- Calibration registers ----------------

func (d *Device) Offset(setup uint8) (uint32, error) {
	if setup > 3 {
		return 0, ErrParams
	}
	return d.readReg(regOffset0+setup, 3)
}

func (d *Device) SetOffset(setup uint8, v uint32) error {
	if setup > 3 {
		return ErrParams
	}
	return d.writeReg(regOffset0+setup, 3, v&0xFFFFFF)
}

func (d *Device) Gain(setup uint8) (uint32, error) {
	if setup > 3 {
		return 0, ErrParams
	}
	return d.readReg(regGain0+setup, 3)
}

func (d *Device) SetGain(setup uint8, v uint32) error {
	if setup > 3 {
		return ErrParams
	}
	return d.writeReg(regGain0+setup, 3, v&0xFFFFFF)
}

// InternalOffsetCal runs the converter's internal offset calibration for the
// currently selected channel; the device returns to standby afterwards.
func (d *Device) InternalOffsetCal() error {
	return d.SetMode(ModeInternalCal)
}

// ---------------- Integer scaling ----------------

// CodeToMicro converts a conversion code to µ-units given the value of one
// LSB in nano-units. Bipolar coding is offset-binary around 0x800000.
func CodeToMicro(code uint32, lsb_nU int64, bipolar bool) int64 {
	var c int64
	if bipolar {
		c = int64(code) - offsetDefault
	} else {
		c = int64(code)
	}
	return c * lsb_nU / 1000
}

// MicroToCode is the inverse of CodeToMicro with round-to-nearest.
func MicroToCode(micro int64, lsb_nU int64, bipolar bool) uint32 {
	if lsb_nU == 0 {
		return 0
	}
	c := (micro*1000 + lsb_nU/2) / lsb_nU
	if bipolar {
		c += offsetDefault
	}
	if c < codeMin {
		c = codeMin
	}
	if c > codeMax {
		c = codeMax
	}
	return uint32(c)
}

// ---------------- Low-level SPI (variable-width registers) ----------------

func (d *Device) readReg(reg uint8, n int) (uint32, error) {
	d.buf[0] = (reg & 0x3F) | commsRead
	for i := 1; i <= n; i++ {
		d.buf[i] = 0
	}
	if err := d.spi.Tx(d.buf[:n+1], d.buf[:n+1]); err != nil {
		return 0, err
	}
	var v uint32
	for i := 1; i <= n; i++ {
		v = v<<8 | uint32(d.buf[i])
	}
	return v, nil
}

func (d *Device) writeReg(reg uint8, n int, val uint32) error {
	d.buf[0] = reg & 0x3F
	for i := n; i >= 1; i-- {
		d.buf[i] = byte(val)
		val >>= 8
	}
	return d.spi.Tx(d.buf[:n+1], nil)
}
