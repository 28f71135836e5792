package load

import (
	"testing"

	"dcload-go/services/hal"
)

// calibratedConfig is Default() with the factory unity table installed, for
// tests that need a startable stage.
func calibratedConfig() Config {
	cfg := Default()
	cfg.Cal = UnityCalTable()
	return cfg
}

func TestDefaultConfigHasNoCalibration(t *testing.T) {
	if Default().Cal.Valid() {
		t.Fatal("defaults must not carry a usable calibration table")
	}
}

func TestApplySectionParsesCalibration(t *testing.T) {
	cfg := Default()
	cfg.ApplySection(map[string]any{
		"cal": map[string]any{
			"current": map[string]any{"gain_ppm": float64(1_020_000), "off": float64(-3_000)},
			"voltage": map[string]any{"gain_ppm": float64(995_000)},
			"temp":    map[string]any{"gain_ppm": float64(1_000_000)},
			"drive":   map[string]any{"gain_ppm": float64(1_001_000), "off": float64(12)},
		},
	})
	if !cfg.Cal.Valid() {
		t.Fatal("full cal block must validate")
	}
	if got := cfg.Cal.Ch[hal.ChCurrent]; got.GainPPM != 1_020_000 || got.Off != -3_000 {
		t.Fatalf("current channel = %+v", got)
	}
	if cfg.Cal.Drive.Off != 12 {
		t.Fatalf("drive off = %d", cfg.Cal.Drive.Off)
	}
}

func TestApplySectionKeepsBadCalibrationInvalid(t *testing.T) {
	// No cal block at all.
	cfg := Default()
	cfg.ApplySection(map[string]any{"tick_ms": float64(10)})
	if cfg.Cal.Valid() {
		t.Fatal("section without cal block must not validate")
	}

	// Corrupt and missing entries leave their channels at zero gain.
	cfg = Default()
	cfg.ApplySection(map[string]any{
		"cal": map[string]any{
			"current": map[string]any{"gain_ppm": float64(1_000_000)},
			"voltage": map[string]any{"gain_ppm": float64(0)},
		},
	})
	if cfg.Cal.Valid() {
		t.Fatal("incomplete cal block must leave the table invalid")
	}
	if cfg.Cal.Ch[hal.ChVoltage].Plausible() {
		t.Fatal("corrupt gain accepted")
	}
}
