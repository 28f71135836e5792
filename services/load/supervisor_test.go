package load

import (
	"testing"

	"dcload-go/errcode"
)

func newSupervisor(cfg Config) (*Supervisor, *Monitor) {
	reg := NewRegulator(cfg)
	mon := NewMonitor(cfg)
	return NewSupervisor(cfg, reg, mon), mon
}

func TestSupervisorStartValidation(t *testing.T) {
	cfg := calibratedConfig()
	sup, _ := newSupervisor(cfg)

	if c := sup.Start(ModeCC, cfg.FS_CC_uA+1, 0); c != errcode.TargetOutOfRange {
		t.Fatalf("over-range target: %v", c)
	}
	if c := sup.Start(ModeCC, -1, 0); c != errcode.TargetOutOfRange {
		t.Fatalf("negative target: %v", c)
	}
	if c := sup.Start(ModeCC, 1_000_000, -5); c != errcode.RampOutOfRange {
		t.Fatalf("negative ramp: %v", c)
	}
	if sup.State() != StateOff {
		t.Fatal("rejected start changed state")
	}

	if c := sup.Start(ModeCC, 1_000_000, 0); c != errcode.OK {
		t.Fatalf("valid start: %v", c)
	}
	if sup.State() != StateRegulating {
		t.Fatalf("state = %v", sup.State())
	}
	// Zero ramp takes the configured default.
	if sup.Setpoint().RampPerS != cfg.RampCC_uAps {
		t.Fatalf("ramp = %d", sup.Setpoint().RampPerS)
	}
}

func TestSupervisorRetuneKeepsRampPosition(t *testing.T) {
	cfg := calibratedConfig()
	sup, _ := newSupervisor(cfg)

	sup.Start(ModeCC, 2_000_000, 1_000_000)
	sup.Setpoint().effective = 1_500_000

	// Same mode: the ramp continues from where it is.
	if c := sup.Start(ModeCC, 3_000_000, 1_000_000); c != errcode.OK {
		t.Fatalf("retune: %v", c)
	}
	if sup.Setpoint().Effective() != 1_500_000 {
		t.Fatalf("effective = %d, want 1500000", sup.Setpoint().Effective())
	}

	// Mode change: the ramp restarts from zero.
	if c := sup.Start(ModeCV, 5_000_000, 0); c != errcode.OK {
		t.Fatalf("mode change: %v", c)
	}
	if sup.Setpoint().Effective() != 0 {
		t.Fatalf("effective = %d, want 0", sup.Setpoint().Effective())
	}
}

func TestSupervisorInvalidCalBlocksStart(t *testing.T) {
	// Fresh defaults carry no calibration at all.
	sup, _ := newSupervisor(Default())
	if c := sup.Start(ModeCC, 1_000_000, 0); c != errcode.CalibrationInvalid {
		t.Fatalf("start with no cal: %v", c)
	}

	// One corrupted channel is just as fatal.
	cfg := calibratedConfig()
	cfg.Cal.Ch[0].GainPPM = 0
	sup, _ = newSupervisor(cfg)
	if c := sup.Start(ModeCC, 1_000_000, 0); c != errcode.CalibrationInvalid {
		t.Fatalf("start with bad cal: %v", c)
	}
}

func TestSupervisorFaultFlow(t *testing.T) {
	cfg := calibratedConfig()
	sup, mon := newSupervisor(cfg)

	sup.Start(ModeCC, 2_000_000, 0)
	mon.Check(Reading{I_uA: cfg.OCP_uA + 1})
	sup.OnFault()

	if sup.State() != StateFault {
		t.Fatalf("state = %v", sup.State())
	}
	if c := sup.Start(ModeCC, 1_000_000, 0); c != errcode.FaultLatched {
		t.Fatalf("start while faulted: %v", c)
	}
	if c := sup.Stop(); c != errcode.FaultLatched {
		t.Fatalf("stop while faulted: %v", c)
	}
	if c := sup.CalStart(); c != errcode.FaultLatched {
		t.Fatalf("cal while faulted: %v", c)
	}

	// Condition still present: reset refused, state unchanged.
	still := Reading{I_uA: cfg.OCP_uA - 1}
	if c := sup.ResetFault(still); c != errcode.FaultStillActive {
		t.Fatalf("reset inside hysteresis: %v", c)
	}
	if sup.State() != StateFault {
		t.Fatal("failed reset changed state")
	}

	cleared := Reading{I_uA: cfg.OCP_uA - cfg.OCPHyst_uA - 1}
	if c := sup.ResetFault(cleared); c != errcode.OK {
		t.Fatalf("reset with cleared condition: %v", c)
	}
	if sup.State() != StateOff {
		t.Fatalf("state after reset = %v", sup.State())
	}

	if c := sup.ResetFault(cleared); c != errcode.NoFault {
		t.Fatalf("reset with no fault: %v", c)
	}
}

func TestSupervisorCalibrationFlow(t *testing.T) {
	cfg := calibratedConfig()
	sup, _ := newSupervisor(cfg)

	if c := sup.CalStop(); c != errcode.NotCalibrating {
		t.Fatalf("calstop when idle: %v", c)
	}
	if c := sup.CalStart(); c != errcode.OK {
		t.Fatalf("calstart from off: %v", c)
	}
	if c := sup.Start(ModeCC, 1_000_000, 0); c != errcode.Calibrating {
		t.Fatalf("start while calibrating: %v", c)
	}
	if c := sup.Stop(); c != errcode.Calibrating {
		t.Fatalf("stop while calibrating: %v", c)
	}
	if c := sup.CalStop(); c != errcode.OK {
		t.Fatalf("calstop: %v", c)
	}
	if sup.State() != StateOff {
		t.Fatalf("state = %v", sup.State())
	}

	// Calibration is refused while the stage is sinking.
	sup.Start(ModeCC, 1_000_000, 0)
	if c := sup.CalStart(); c != errcode.Busy {
		t.Fatalf("calstart while regulating: %v", c)
	}
}
