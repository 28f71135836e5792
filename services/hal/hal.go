// Package hal is the capability boundary between the control core and the
// analog hardware: a raw sample source per logical channel and a raw drive
// sink. The bit-level register work stays in drivers/; everything above this
// package is hardware-agnostic and unit-testable without a board.
package hal

import (
	"errors"

	"dcload-go/drivers/ad7175"
	"dcload-go/drivers/dac8811"
)

// Channel identifies a logical analog input.
type Channel uint8

const (
	ChCurrent Channel = iota
	ChVoltage
	ChTemp

	NumChannels = 3
)

func (c Channel) String() string {
	switch c {
	case ChCurrent:
		return "current"
	case ChVoltage:
		return "voltage"
	case ChTemp:
		return "temp"
	}
	return "?"
}

var (
	ErrNoSample = errors.New("hal: no sample available for channel")
	ErrRange    = errors.New("hal: sample outside representable span")
	ErrBadChan  = errors.New("hal: unknown channel")
)

// Nominal front-end scaling, one LSB in nano-units per channel.
// These are board constants; the calibration table corrects residual
// gain/offset error on top of them.
const (
	CurrentLSB_nA = 600    // ≈10 A full scale over 24 bits
	VoltageLSB_nV = 3600   // ≈60 V full scale over 24 bits
	TempLSB_nC    = 10_000 // 10 µ°C per count, ~168 °C span
)

// AnalogSource supplies the latest raw conversion code for a channel.
// A transient read failure is returned as-is; ErrRange flags an out-of-span
// code (wiring or sensor failure) distinctly so the safety monitor can see
// it rather than having it clamped away.
type AnalogSource interface {
	Sample(ch Channel) (int32, error)
}

// DriveSink applies a raw drive code to the power stage. The implementation
// guarantees the code is latched before the next tick boundary.
type DriveSink interface {
	Apply(code uint16) error
}

// ---------------- ADC-backed source ----------------

// ADCSource adapts the AD7175 to AnalogSource. The converter free-runs in
// continuous mode and tags each result with its channel; Sample drains
// whatever conversions are pending and returns the newest for the requested
// channel.
type ADCSource struct {
	dev *ad7175.Device

	latest [NumChannels]int32
	have   [NumChannels]bool
	railed [NumChannels]bool
}

func NewADCSource(dev *ad7175.Device) *ADCSource {
	return &ADCSource{dev: dev}
}

func (s *ADCSource) Sample(ch Channel) (int32, error) {
	if ch >= NumChannels {
		return 0, ErrBadChan
	}
	// Drain pending conversions (bounded: one per channel).
	for i := 0; i < NumChannels; i++ {
		st, err := s.dev.Status()
		if err != nil {
			return 0, err
		}
		if !st.Ready() {
			break
		}
		smp, err := s.dev.ReadData()
		if err != nil && err != ad7175.ErrRail {
			return 0, err
		}
		if smp.Channel < NumChannels {
			s.latest[smp.Channel] = int32(smp.Code)
			s.have[smp.Channel] = true
			s.railed[smp.Channel] = err == ad7175.ErrRail
		}
	}
	if !s.have[ch] {
		return 0, ErrNoSample
	}
	if s.railed[ch] {
		return s.latest[ch], ErrRange
	}
	return s.latest[ch], nil
}

// ---------------- DAC-backed sink ----------------

type DACSink struct {
	dev *dac8811.Device
}

func NewDACSink(dev *dac8811.Device) *DACSink { return &DACSink{dev: dev} }

func (s *DACSink) Apply(code uint16) error { return s.dev.Write(code) }
