// Package types holds the bus payload structs shared between services.
package types

// ------------------------
// Control commands (load/control/<verb>)
// ------------------------

// Start commands the supervisor into regulation.
// Target and RampPerS are integer micro-units for the requested mode:
// µA for cc, µV for cv, mW for cp, mΩ for cr.
type Start struct {
	Mode     string `json:"mode"` // "cc", "cv", "cp", "cr"
	Target   int64  `json:"target"`
	RampPerS int64  `json:"ramp_per_s,omitempty"` // 0 => configured default
}

type Stop struct{}

type FaultReset struct{}

type CalStart struct{}

type CalStop struct{}

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ------------------------
// Telemetry snapshot (retained on load/state, one per control tick)
// ------------------------

// Snapshot is the read-only view handed to the telemetry/display collaborator.
// Zero values remain where a field is unavailable.
type Snapshot struct {
	State string `json:"state"` // "off", "regulating", "fault", "calibrating"
	Mode  string `json:"mode"`  // active setpoint mode

	I_uA    int32 `json:"i_ua"`
	V_uV    int32 `json:"v_uv"`
	P_mW    int32 `json:"p_mw"`
	Temp_mC int32 `json:"temp_mc"`

	Target    int64  `json:"target"`     // commanded target (mode units)
	EffTarget int64  `json:"eff_target"` // ramp-limited effective target
	Drive     uint16 `json:"drive"`      // applied DAC code
	Clamped   bool   `json:"clamped"`

	Fault       string `json:"fault,omitempty"` // latched fault kind, "" if none
	SensorFault bool   `json:"sensor_fault,omitempty"`

	TSms int64 `json:"ts_ms"`
}

// ------------------------
// Calibration save request (config/save/load, consumed by the NVS owner)
// ------------------------

type CalSave struct {
	Channel string `json:"channel"`  // "current", "voltage", "temp", "drive"
	GainPPM int32  `json:"gain_ppm"` // 1_000_000 = unity
	Off     int32  `json:"off"`      // µ-units (codes for "drive")
}
