package load

import (
	"dcload-go/services/hal"
)

// Config carries every tunable of the control core. All values are integers:
// currents in µA, voltages in µV, power in mW, resistance in mΩ, temperature
// in m°C. Gains are Q16 fixed point.
type Config struct {
	TickMs   int64 // control loop period
	SampleMs int64 // acquisition period

	// PI gains applied to the normalized Q16 error.
	KpQ16 int64
	KiQ16 int64

	DriveTop uint16 // full-scale drive code
	MaxStep  uint16 // max drive code change per tick (0 = unlimited)

	// Below this sensed current the CR error is forced to zero so the
	// resistance quotient cannot blow up on noise.
	MinSense_uA int64

	// Per-mode setpoint full scales. A Start target beyond the mode's full
	// scale is rejected; the full scale also normalizes the error term.
	FS_CC_uA   int64
	FS_CV_uV   int64
	FS_CR_mOhm int64
	FS_CP_mW   int64

	// Default ramp rates (per second, in the mode's own unit) used when a
	// Start command does not carry one.
	RampCC_uAps   int64
	RampCV_uVps   int64
	RampCR_mOhmps int64
	RampCP_mWps   int64

	// EMA smoothing, y += (x - y) >> FilterShift. Zero disables filtering.
	FilterShift uint8

	// Protection trip levels and reset hysteresis margins.
	OCP_uA      int64
	OCPHyst_uA  int64
	OVP_uV      int64
	OVPHyst_uV  int64
	OPP_mW      int64
	OPPHyst_mW  int64
	OTP_mC      int64
	OTPHyst_mC  int64
	SensorTrips int // consecutive flagged readings before SensorLoss

	// Drive code held while calibrating, chosen to sit mid-range on the
	// reference channel.
	CalRefCode uint16

	Cal CalTable
}

// Default returns the shipped tuning for the 60 V / 10 A / 150 W stage.
func Default() Config {
	return Config{
		TickMs:   10,
		SampleMs: 2,

		KpQ16: 65536,
		KiQ16: 500_000,

		DriveTop: 0xFFFF,
		MaxStep:  2048,

		MinSense_uA: 20_000,

		FS_CC_uA:   10_000_000,
		FS_CV_uV:   60_000_000,
		FS_CR_mOhm: 1_000_000,
		FS_CP_mW:   150_000,

		RampCC_uAps:   2_000_000,
		RampCV_uVps:   10_000_000,
		RampCR_mOhmps: 200_000,
		RampCP_mWps:   50_000,

		FilterShift: 2,

		OCP_uA:      11_000_000,
		OCPHyst_uA:  500_000,
		OVP_uV:      62_000_000,
		OVPHyst_uV:  2_000_000,
		OPP_mW:      165_000,
		OPPHyst_mW:  10_000,
		OTP_mC:      95_000,
		OTPHyst_mC:  10_000,
		SensorTrips: 3,

		CalRefCode: 0x8000,

		// Cal stays the invalid zero table: the board must never regulate
		// on made-up scaling, so a start is refused until a cal block
		// arrives from config or a cal_set populates every channel.
	}
}

// ApplySection overlays values from a config/load section (tinyjson map,
// numbers arrive as float64, milli-units on the wire). Unknown keys are
// ignored; absent keys keep their defaults.
func (c *Config) ApplySection(m map[string]any) {
	if v, ok := num(m, "tick_ms"); ok && v > 0 {
		c.TickMs = v
	}
	if v, ok := num(m, "sample_ms"); ok && v > 0 {
		c.SampleMs = v
	}
	if v, ok := num(m, "kp_q16"); ok && v >= 0 {
		c.KpQ16 = v
	}
	if v, ok := num(m, "ki_q16"); ok && v >= 0 {
		c.KiQ16 = v
	}
	if v, ok := num(m, "min_sense_ma"); ok && v >= 0 {
		c.MinSense_uA = v * 1000
	}
	if v, ok := num(m, "ocp_ma"); ok && v > 0 {
		c.OCP_uA = v * 1000
	}
	if v, ok := num(m, "ovp_mv"); ok && v > 0 {
		c.OVP_uV = v * 1000
	}
	if v, ok := num(m, "opp_mw"); ok && v > 0 {
		c.OPP_mW = v
	}
	if v, ok := num(m, "otp_mc"); ok && v > 0 {
		c.OTP_mC = v
	}
	c.applyCal(m)
}

// applyCal loads the calibration block. Each channel entry must carry a
// plausible gain; a missing or malformed entry leaves that channel at zero
// gain, which keeps the whole table invalid and the stage refusing to start.
func (c *Config) applyCal(m map[string]any) {
	cal, ok := m["cal"].(map[string]any)
	if !ok {
		return
	}
	for name, ptr := range map[string]*CalChannel{
		"current": &c.Cal.Ch[hal.ChCurrent],
		"voltage": &c.Cal.Ch[hal.ChVoltage],
		"temp":    &c.Cal.Ch[hal.ChTemp],
		"drive":   &c.Cal.Drive,
	} {
		entry, ok := cal[name].(map[string]any)
		if !ok {
			continue
		}
		gain, ok := num(entry, "gain_ppm")
		if !ok {
			continue
		}
		off, _ := num(entry, "off")
		ch := CalChannel{GainPPM: gain, Off: off}
		if ch.Plausible() {
			*ptr = ch
		}
	}
}

func num(m map[string]any, key string) (int64, bool) {
	f, ok := m[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// lsbFor returns the nominal front-end scaling for a channel in nano-units.
func lsbFor(ch hal.Channel) int64 {
	switch ch {
	case hal.ChCurrent:
		return hal.CurrentLSB_nA
	case hal.ChVoltage:
		return hal.VoltageLSB_nV
	case hal.ChTemp:
		return hal.TempLSB_nC
	}
	return 1
}
