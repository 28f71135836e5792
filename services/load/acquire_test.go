package load

import (
	"testing"

	"dcload-go/services/hal"
)

// fakeSource serves fixed raw codes and scripted failures.
type fakeSource struct {
	raw  [hal.NumChannels]int32
	fail [hal.NumChannels]bool
}

func (f *fakeSource) Sample(ch hal.Channel) (int32, error) {
	if ch >= hal.NumChannels {
		return 0, hal.ErrBadChan
	}
	if f.fail[ch] {
		return 0, hal.ErrRange
	}
	return f.raw[ch], nil
}

func rawFor(ch hal.Channel, micro int64) int32 {
	return int32(micro * 1000 / lsbFor(ch))
}

func TestSamplerAppliesCalibration(t *testing.T) {
	cfg := calibratedConfig()
	cfg.FilterShift = 0
	cfg.Cal.Ch[hal.ChCurrent] = CalChannel{GainPPM: 1_100_000, Off: -5_000}

	src := &fakeSource{}
	src.raw[hal.ChCurrent] = rawFor(hal.ChCurrent, 1_000_000)
	src.raw[hal.ChVoltage] = rawFor(hal.ChVoltage, 12_000_000)
	src.raw[hal.ChTemp] = rawFor(hal.ChTemp, 25_000_000) // µ°C

	s := NewSampler(src, cfg)
	rd := s.pass()

	want := int64(1_000_000)*1_100_000/1_000_000 - 5_000
	if diff := rd.I_uA - want; diff < -1000 || diff > 1000 {
		t.Fatalf("I = %d, want ~%d", rd.I_uA, want)
	}
	if diff := rd.V_uV - 12_000_000; diff < -5000 || diff > 5000 {
		t.Fatalf("V = %d", rd.V_uV)
	}
	if diff := rd.Temp_mC - 25_000; diff < -10 || diff > 10 {
		t.Fatalf("T = %d", rd.Temp_mC)
	}
	if rd.P_mW < 12_500 || rd.P_mW > 13_500 {
		t.Fatalf("P = %d", rd.P_mW)
	}
}

func TestSamplerEMAConverges(t *testing.T) {
	cfg := calibratedConfig()
	cfg.FilterShift = 2

	src := &fakeSource{}
	src.raw[hal.ChCurrent] = rawFor(hal.ChCurrent, 1_000_000)
	s := NewSampler(src, cfg)
	s.pass() // seeds the filter

	src.raw[hal.ChCurrent] = rawFor(hal.ChCurrent, 2_000_000)
	rd := s.pass()
	// One pass moves a quarter of the way.
	if rd.I_uA < 1_200_000 || rd.I_uA > 1_300_000 {
		t.Fatalf("I after one pass = %d", rd.I_uA)
	}
	for i := 0; i < 40; i++ {
		rd = s.pass()
	}
	if diff := rd.I_uA - 2_000_000; diff < -2000 || diff > 2000 {
		t.Fatalf("I after settling = %d", rd.I_uA)
	}
}

func TestSamplerHoldsLastGoodOnFailure(t *testing.T) {
	cfg := calibratedConfig()
	cfg.FilterShift = 0

	src := &fakeSource{}
	src.raw[hal.ChVoltage] = rawFor(hal.ChVoltage, 12_000_000)
	s := NewSampler(src, cfg)
	s.pass()

	src.fail[hal.ChVoltage] = true
	rd := s.pass()
	if !rd.Flagged[hal.ChVoltage] {
		t.Fatal("failed channel not flagged")
	}
	if diff := rd.V_uV - 12_000_000; diff < -5000 || diff > 5000 {
		t.Fatalf("held value = %d", rd.V_uV)
	}
	if rd.Flagged[hal.ChCurrent] {
		t.Fatal("healthy channel flagged")
	}
}

func TestSamplerMailboxKeepsNewest(t *testing.T) {
	cfg := Default()
	src := &fakeSource{}
	s := NewSampler(src, cfg)

	s.publish(Reading{I_uA: 1})
	s.publish(Reading{I_uA: 2})

	rd, ok := s.Poll()
	if !ok || rd.I_uA != 2 {
		t.Fatalf("got %v %v, want newest", rd.I_uA, ok)
	}
	if _, ok := s.Poll(); ok {
		t.Fatal("mailbox not drained")
	}
}

func TestSamplerSetCalTakesEffect(t *testing.T) {
	cfg := calibratedConfig()
	cfg.FilterShift = 0
	src := &fakeSource{}
	src.raw[hal.ChCurrent] = rawFor(hal.ChCurrent, 1_000_000)
	s := NewSampler(src, cfg)
	s.pass()

	tbl := cfg.Cal
	tbl.Ch[hal.ChCurrent] = CalChannel{GainPPM: 1_000_000, Off: 500_000}
	s.SetCal(tbl)
	rd := s.pass()
	if diff := rd.I_uA - 1_500_000; diff < -1000 || diff > 1000 {
		t.Fatalf("I after recal = %d", rd.I_uA)
	}
}
