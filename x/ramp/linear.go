// Package ramp provides integer slew limiting for setpoint motion.
package ramp

import "dcload-go/x/mathx"

// Toward moves cur toward target by at most maxStep and returns the result.
// maxStep <= 0 snaps to target (no rate limit configured).
func Toward(cur, target, maxStep int64) int64 {
	if maxStep <= 0 {
		return target
	}
	d := target - cur
	if mathx.Abs(d) <= maxStep {
		return target
	}
	if d > 0 {
		return cur + maxStep
	}
	return cur - maxStep
}

// StepFor converts a per-second rate into a per-tick step.
// Rates too slow to move a whole unit per tick still advance by one, so a
// nonzero ramp always makes progress.
func StepFor(ratePerS int64, dtMs uint32) int64 {
	if ratePerS <= 0 {
		return 0
	}
	step := ratePerS * int64(dtMs) / 1000
	if step == 0 {
		step = 1
	}
	return step
}
