package ramp

import "testing"

func TestToward(t *testing.T) {
	if got := Toward(0, 100, 30); got != 30 {
		t.Errorf("step up: got %d", got)
	}
	if got := Toward(100, 0, 30); got != 70 {
		t.Errorf("step down: got %d", got)
	}
	if got := Toward(90, 100, 30); got != 100 {
		t.Errorf("arrive: got %d", got)
	}
	if got := Toward(0, 100, 0); got != 100 {
		t.Errorf("no limit snaps: got %d", got)
	}
}

func TestStepFor(t *testing.T) {
	// 1 A/s at 100 ms ticks => 100 mA per tick (µA units).
	if got := StepFor(1_000_000, 100); got != 100_000 {
		t.Errorf("got %d", got)
	}
	// Slow rates still advance.
	if got := StepFor(5, 100); got != 1 {
		t.Errorf("minimum progress: got %d", got)
	}
	if got := StepFor(0, 100); got != 0 {
		t.Errorf("zero rate: got %d", got)
	}
}
