package load

import (
	"dcload-go/services/hal"
)

// CalChannel corrects one channel's residual gain and offset error on top of
// the nominal LSB scaling: phys = nominal*gain + offset.
type CalChannel struct {
	GainPPM int64 // 1_000_000 = unity
	Off     int64 // µ-units
}

// Apply converts a raw conversion code to calibrated µ-units.
func (c CalChannel) Apply(raw int32, lsbNano int64) int64 {
	nominal := int64(raw) * lsbNano / 1000
	return nominal*c.GainPPM/1_000_000 + c.Off
}

// Inverse converts calibrated µ-units back to the raw code that would have
// produced them, used when translating drive setpoints to codes.
func (c CalChannel) Inverse(micro int64, lsbNano int64) int64 {
	if c.GainPPM == 0 {
		return 0
	}
	nominal := (micro - c.Off) * 1_000_000 / c.GainPPM
	return nominal * 1000 / lsbNano
}

// Plausible rejects a zero or wildly off gain (a gain more than 50% from
// unity means the cal run failed, not that the board drifted).
func (c CalChannel) Plausible() bool {
	return c.GainPPM >= 500_000 && c.GainPPM <= 1_500_000
}

// CalTable holds one correction per analog channel plus one for the drive
// path (code-domain gain/offset on the DAC output). The zero value is
// deliberately invalid: a table only becomes usable once every channel has
// been populated from persisted config or a calibration run.
type CalTable struct {
	Ch    [hal.NumChannels]CalChannel
	Drive CalChannel
}

// UnityCalTable is unity gain, zero offset on every channel; the factory
// values written at board test.
func UnityCalTable() CalTable {
	t := CalTable{}
	for i := range t.Ch {
		t.Ch[i] = CalChannel{GainPPM: 1_000_000}
	}
	t.Drive = CalChannel{GainPPM: 1_000_000}
	return t
}

// Valid reports whether every channel carries a plausible correction.
func (t CalTable) Valid() bool {
	for _, c := range t.Ch {
		if !c.Plausible() {
			return false
		}
	}
	return t.Drive.Plausible()
}
