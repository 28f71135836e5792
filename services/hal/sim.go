package hal

import (
	"sync"
)

// SimConfig parameterises the simulated source + power stage.
type SimConfig struct {
	Supply_uV      int64 // open-circuit source voltage
	SourceRes_mOhm int64 // source internal resistance
	FullScale_uA   int64 // current sunk at full drive code
	SettleQ16      int64 // first-order settling fraction per sample, Q16
	Ambient_mC     int64
	ThermK_mCperW  int64 // steady-state die heating per watt dissipated
}

// DefaultSimConfig models a bench supply: 12 V, 50 mΩ source impedance,
// 10 A full-scale stage that settles ~25% per sample.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Supply_uV:      12_000_000,
		SourceRes_mOhm: 50,
		FullScale_uA:   10_000_000,
		SettleQ16:      16384,
		Ambient_mC:     25_000,
		ThermK_mCperW:  800,
	}
}

// Sim is a host-side AnalogSource + DriveSink backed by a first-order plant
// model, used by simulation runs and the closed-loop tests.
type Sim struct {
	mu  sync.Mutex
	cfg SimConfig

	drive uint16
	i_uA  int64

	failing [NumChannels]bool
	forced  [NumChannels]bool
	forceTo [NumChannels]int64 // µ-units
}

func NewSim(cfg SimConfig) *Sim {
	if cfg.SettleQ16 <= 0 || cfg.SettleQ16 > 65536 {
		cfg.SettleQ16 = 16384
	}
	return &Sim{cfg: cfg}
}

// Apply latches a new drive code; the plant moves toward it on subsequent
// samples.
func (s *Sim) Apply(code uint16) error {
	s.mu.Lock()
	s.drive = code
	s.mu.Unlock()
	return nil
}

// Drive reports the last applied code (test hook).
func (s *Sim) Drive() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drive
}

// FailChannel makes Sample return ErrRange for the channel, simulating a
// railed input.
func (s *Sim) FailChannel(ch Channel, fail bool) {
	s.mu.Lock()
	s.failing[ch] = fail
	s.mu.Unlock()
}

// Force pins a channel's physical value (µ-units), e.g. to inject an
// over-temperature condition.
func (s *Sim) Force(ch Channel, micro int64) {
	s.mu.Lock()
	s.forced[ch] = true
	s.forceTo[ch] = micro
	s.mu.Unlock()
}

// Release removes a Force pin.
func (s *Sim) Release(ch Channel) {
	s.mu.Lock()
	s.forced[ch] = false
	s.mu.Unlock()
}

// SetSupply changes the open-circuit source voltage mid-run.
func (s *Sim) SetSupply(uv int64) {
	s.mu.Lock()
	s.cfg.Supply_uV = uv
	s.mu.Unlock()
}

func (s *Sim) Sample(ch Channel) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch >= NumChannels {
		return 0, ErrBadChan
	}
	if s.failing[ch] {
		return 0, ErrRange
	}
	if ch == ChCurrent {
		s.step()
	}

	var micro int64
	switch ch {
	case ChCurrent:
		micro = s.i_uA
	case ChVoltage:
		micro = s.terminal_uV()
	case ChTemp:
		micro = s.temp_uC()
	}
	if s.forced[ch] {
		micro = s.forceTo[ch]
	}
	return microToRaw(ch, micro), nil
}

// step advances the current toward the commanded sink with first-order lag.
func (s *Sim) step() {
	cmd := int64(s.drive) * s.cfg.FullScale_uA / 65535
	// The stage cannot sink more than the source can deliver.
	if s.cfg.SourceRes_mOhm > 0 {
		max := s.cfg.Supply_uV * 1000 / s.cfg.SourceRes_mOhm
		if cmd > max {
			cmd = max
		}
	}
	s.i_uA += (cmd - s.i_uA) * s.cfg.SettleQ16 >> 16
}

func (s *Sim) terminal_uV() int64 {
	v := s.cfg.Supply_uV - s.i_uA*s.cfg.SourceRes_mOhm/1000
	if v < 0 {
		v = 0
	}
	return v
}

func (s *Sim) temp_uC() int64 {
	p_uW := s.i_uA * s.terminal_uV() / 1_000_000
	mC := s.cfg.Ambient_mC + p_uW*s.cfg.ThermK_mCperW/1_000_000
	return mC * 1000
}

// microToRaw inverts the nominal front-end scaling (unity calibration).
func microToRaw(ch Channel, micro int64) int32 {
	var lsb int64
	switch ch {
	case ChCurrent:
		lsb = CurrentLSB_nA
	case ChVoltage:
		lsb = VoltageLSB_nV
	case ChTemp:
		lsb = TempLSB_nC
	default:
		return 0
	}
	raw := micro * 1000 / lsb
	if raw < 0 {
		raw = 0
	}
	if raw > 0xFFFFFF {
		raw = 0xFFFFFF
	}
	return int32(raw)
}
