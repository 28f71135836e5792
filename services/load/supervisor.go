package load

import (
	"dcload-go/errcode"
)

// State is the supervisor's operating state.
type State uint8

const (
	StateOff State = iota
	StateRegulating
	StateFault
	StateCalibrating
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateRegulating:
		return "regulating"
	case StateFault:
		return "fault"
	case StateCalibrating:
		return "calibrating"
	}
	return "?"
}

// Supervisor is the command state machine. It validates every operator
// request against the current state and owns the transitions; the service
// loop consults it each tick to decide what the actuator should do.
type Supervisor struct {
	cfg Config
	reg *Regulator
	mon *Monitor

	state State
	sp    Setpoint
}

func NewSupervisor(cfg Config, reg *Regulator, mon *Monitor) *Supervisor {
	return &Supervisor{cfg: cfg, reg: reg, mon: mon}
}

func (s *Supervisor) State() State        { return s.state }
func (s *Supervisor) Setpoint() *Setpoint { return &s.sp }

// SetCal keeps the validity check current after a live calibration update.
func (s *Supervisor) SetCal(t CalTable) { s.cfg.Cal = t }

// Start enters (or retunes) regulation. Allowed from off and from regulating;
// a latched fault must be reset first and a calibration run must finish.
func (s *Supervisor) Start(mode Mode, target, rampPerS int64) errcode.Code {
	switch s.state {
	case StateFault:
		return errcode.FaultLatched
	case StateCalibrating:
		return errcode.Calibrating
	}
	if !s.cfg.Cal.Valid() {
		return errcode.CalibrationInvalid
	}
	fs := s.reg.FullScale(mode)
	if target < 0 || target > fs {
		return errcode.TargetOutOfRange
	}
	if rampPerS < 0 {
		return errcode.RampOutOfRange
	}
	if rampPerS == 0 {
		rampPerS = s.defaultRamp(mode)
	}

	// Retuning within the same mode keeps the ramped value where it is, so
	// the output walks from the present level rather than restarting at
	// zero. A mode change starts the ramp from zero.
	eff := int64(0)
	if s.state == StateRegulating && s.sp.Mode == mode {
		eff = s.sp.effective
	}
	s.sp = Setpoint{Mode: mode, Target: target, RampPerS: rampPerS, effective: eff}
	s.state = StateRegulating
	return errcode.OK
}

// Stop returns to off from regulation. A latched fault refuses Stop: the
// stage is already forced safe and the fault must be acknowledged instead.
func (s *Supervisor) Stop() errcode.Code {
	switch s.state {
	case StateFault:
		return errcode.FaultLatched
	case StateCalibrating:
		return errcode.Calibrating
	}
	s.toOff()
	return errcode.OK
}

// ResetFault acknowledges a latched fault. It succeeds only if the tripped
// condition has receded (per the monitor's hysteresis) in the given reading.
func (s *Supervisor) ResetFault(rd Reading) errcode.Code {
	if s.state != StateFault {
		return errcode.NoFault
	}
	if !s.mon.TryReset(rd) {
		return errcode.FaultStillActive
	}
	s.toOff()
	return errcode.OK
}

// CalStart enters calibration. Only allowed from off: the stage must not be
// sinking while reference codes are applied.
func (s *Supervisor) CalStart() errcode.Code {
	switch s.state {
	case StateFault:
		return errcode.FaultLatched
	case StateRegulating:
		return errcode.Busy
	case StateCalibrating:
		return errcode.Calibrating
	}
	s.state = StateCalibrating
	return errcode.OK
}

// CalStop leaves calibration and returns to off.
func (s *Supervisor) CalStop() errcode.Code {
	if s.state != StateCalibrating {
		return errcode.NotCalibrating
	}
	s.toOff()
	return errcode.OK
}

// OnFault pre-empts every state. The caller has already latched the monitor.
func (s *Supervisor) OnFault() {
	s.reg.Reset()
	s.sp = Setpoint{}
	s.state = StateFault
}

func (s *Supervisor) toOff() {
	s.reg.Reset()
	s.sp = Setpoint{}
	s.state = StateOff
}

func (s *Supervisor) defaultRamp(mode Mode) int64 {
	switch mode {
	case ModeCC:
		return s.cfg.RampCC_uAps
	case ModeCV:
		return s.cfg.RampCV_uVps
	case ModeCR:
		return s.cfg.RampCR_mOhmps
	case ModeCP:
		return s.cfg.RampCP_mWps
	}
	return 0
}
