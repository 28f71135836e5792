package load

import (
	"dcload-go/services/hal"
	"dcload-go/x/mathx"
)

// Actuator owns the drive path: it applies the drive-channel calibration,
// rate-limits code movement and pushes the result to the sink every tick,
// even when the code has not changed, so a glitched DAC recovers within one
// period.
type Actuator struct {
	sink hal.DriveSink
	cal  CalChannel
	top  uint16
	step uint16

	current uint16
	haveCur bool
}

func NewActuator(sink hal.DriveSink, cfg Config) *Actuator {
	return &Actuator{
		sink: sink,
		cal:  cfg.Cal.Drive,
		top:  cfg.DriveTop,
		step: cfg.MaxStep,
	}
}

// Current is the last code applied (after calibration and slew limiting).
func (a *Actuator) Current() uint16 { return a.current }

// SetCal replaces the drive-path correction.
func (a *Actuator) SetCal(c CalChannel) { a.cal = c }

// Apply moves the output toward code, honoring the per-tick slew limit.
func (a *Actuator) Apply(code uint16) error {
	return a.apply(code, false)
}

// ForceSafe drives straight to zero, bypassing the slew limit. Shutting the
// stage off is the one move that must never be rate-limited.
func (a *Actuator) ForceSafe() error {
	return a.apply(0, true)
}

func (a *Actuator) apply(code uint16, force bool) error {
	adj := a.cal.Apply(int32(code), 1000) // code-domain correction
	target := uint16(mathx.Clamp(adj, 0, int64(a.top)))
	if force {
		target = 0
	}

	next := target
	if !force && a.haveCur && a.step > 0 {
		cur := int64(a.current)
		next = uint16(mathx.Clamp(int64(target), cur-int64(a.step), cur+int64(a.step)))
	}

	if err := a.sink.Apply(next); err != nil {
		return err
	}
	a.current = next
	a.haveCur = true
	return nil
}
