package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value passed to NewService)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Limits in milli-units so the JSON stays integer-only: currents in mA,
// voltages in mV, power in mW, temperatures in m°C.
const cfgDCLoadMain = `{
  "load": {
      "tick_ms": 10,
      "sample_ms": 2,
      "kp_q16": 65536,
      "ki_q16": 500000,
      "min_sense_ma": 20,
      "ocp_ma": 11000,
      "ovp_mv": 62000,
      "opp_mw": 165000,
      "otp_mc": 95000,
      "cal": {
          "current": {"gain_ppm": 1000000, "off": 0},
          "voltage": {"gain_ppm": 1000000, "off": 0},
          "temp": {"gain_ppm": 1000000, "off": 0},
          "drive": {"gain_ppm": 1000000, "off": 0}
      }
  },
  "console": {
      "echo": true
  },
  "telemetry": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"dcload-main": []byte(cfgDCLoadMain),
}
