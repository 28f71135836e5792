package load

import (
	"dcload-go/x/mathx"
	"dcload-go/x/ramp"
)

// Mode selects the regulated quantity.
type Mode uint8

const (
	ModeCC Mode = iota // constant current, target in µA
	ModeCV             // constant voltage, target in µV
	ModeCR             // constant resistance, target in mΩ
	ModeCP             // constant power, target in mW
)

func (m Mode) String() string {
	switch m {
	case ModeCC:
		return "cc"
	case ModeCV:
		return "cv"
	case ModeCR:
		return "cr"
	case ModeCP:
		return "cp"
	}
	return "?"
}

// ParseMode maps the console/bus spelling to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "cc":
		return ModeCC, true
	case "cv":
		return ModeCV, true
	case "cr":
		return ModeCR, true
	case "cp":
		return ModeCP, true
	}
	return 0, false
}

// Setpoint is the operator's request: a mode, a final target and a ramp rate,
// all in the mode's own integer unit (µA, µV, mΩ or mW).
type Setpoint struct {
	Mode      Mode
	Target    int64
	RampPerS  int64 // 0 = snap to target
	effective int64 // ramped value actually being regulated
}

// Effective is the ramped target currently in force.
func (s *Setpoint) Effective() int64 { return s.effective }

// Command is one regulator decision.
type Command struct {
	Code    uint16
	Clamped bool // output hit a rail this tick
}

// Regulator is the PI core. All state is integer; the error is normalized to
// Q16 against the mode's full scale so one gain pair covers all four modes.
type Regulator struct {
	cfg Config

	mode     Mode
	haveMode bool

	integQ16 int64 // integral term, Q16 in drive-code units
}

func NewRegulator(cfg Config) *Regulator {
	return &Regulator{cfg: cfg}
}

// Reset clears the accumulated state, used on mode change and on every
// transition out of regulation.
func (r *Regulator) Reset() {
	r.integQ16 = 0
	r.haveMode = false
}

// FullScale returns the setpoint full scale for a mode.
func (r *Regulator) FullScale(m Mode) int64 {
	switch m {
	case ModeCC:
		return r.cfg.FS_CC_uA
	case ModeCV:
		return r.cfg.FS_CV_uV
	case ModeCR:
		return r.cfg.FS_CR_mOhm
	case ModeCP:
		return r.cfg.FS_CP_mW
	}
	return 0
}

// Step advances the ramp and runs one PI update against the reading,
// returning the next drive code.
func (r *Regulator) Step(sp *Setpoint, rd Reading, dtMs int64) Command {
	if !r.haveMode || r.mode != sp.Mode {
		// Mode change invalidates the integral: the error is in a
		// different unit now.
		r.integQ16 = 0
		r.mode = sp.Mode
		r.haveMode = true
	}

	sp.effective = ramp.Toward(sp.effective, sp.Target, ramp.StepFor(sp.RampPerS, uint32(dtMs)))

	err := r.errorFor(sp, rd)
	fs := r.FullScale(sp.Mode)
	if fs <= 0 {
		return Command{}
	}
	errQ16 := mathx.Clamp(err*65536/fs, -65536, 65536)

	top := int64(r.cfg.DriveTop)
	p := r.cfg.KpQ16 * errQ16 >> 16

	// Conditional integration: freeze the integral while the unclamped sum
	// is already pushing past a rail in the same direction as the error.
	sum := p + (r.integQ16 >> 16)
	saturated := (sum >= top && err > 0) || (sum <= 0 && err < 0)
	if !saturated {
		r.integQ16 += (r.cfg.KiQ16 * errQ16 >> 16) * dtMs / 1000
		r.integQ16 = mathx.Clamp(r.integQ16, 0, top<<16)
	}

	out := p + (r.integQ16 >> 16)
	clamped := out < 0 || out > top
	out = mathx.Clamp(out, 0, top)
	return Command{Code: uint16(out), Clamped: clamped}
}

// errorFor computes the raw control error in the mode's unit; positive error
// always means "sink more current".
func (r *Regulator) errorFor(sp *Setpoint, rd Reading) int64 {
	switch sp.Mode {
	case ModeCC:
		return sp.effective - rd.I_uA
	case ModeCV:
		// Sinking more current pulls the terminal voltage down.
		return rd.V_uV - sp.effective
	case ModeCR:
		if rd.I_uA < r.cfg.MinSense_uA {
			// The quotient is meaningless on noise-level current.
			return 0
		}
		measured := rd.V_uV * 1000 / rd.I_uA // mΩ
		return measured - sp.effective
	case ModeCP:
		return sp.effective - rd.P_mW
	}
	return 0
}
