package load

import (
	"context"
	"time"

	"dcload-go/services/hal"
	"dcload-go/x/timex"
)

// Reading is one calibrated, filtered acquisition pass across all channels.
type Reading struct {
	I_uA    int64
	V_uV    int64
	Temp_mC int64
	P_mW    int64

	// Flagged marks channels whose sample failed this pass; their values
	// carry the last good filtered reading instead.
	Flagged [hal.NumChannels]bool

	TSms int64
}

// Sampler runs the acquisition pass on its own goroutine and hands the latest
// Reading to the control loop through a one-slot mailbox. The control tick
// never blocks on acquisition: if no new reading has landed it reuses the
// previous one.
type Sampler struct {
	src   hal.AnalogSource
	cal   CalTable
	shift uint8
	dtMs  int64

	ema  [hal.NumChannels]int64 // filtered µ-units
	seen [hal.NumChannels]bool

	slot  chan Reading
	calCh chan CalTable
}

func NewSampler(src hal.AnalogSource, cfg Config) *Sampler {
	return &Sampler{
		src:   src,
		cal:   cfg.Cal,
		shift: cfg.FilterShift,
		dtMs:  cfg.SampleMs,
		slot:  make(chan Reading, 1),
		calCh: make(chan CalTable, 1),
	}
}

// SetCal hands a new calibration table to the sampling goroutine; it takes
// effect on the next pass.
func (s *Sampler) SetCal(t CalTable) {
	select {
	case s.calCh <- t:
	default:
		select {
		case <-s.calCh:
		default:
		}
		select {
		case s.calCh <- t:
		default:
		}
	}
}

// Run blocks until ctx is cancelled; call it on its own goroutine.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(timex.MsToDuration(uint32(s.dtMs)))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish(s.pass())
		}
	}
}

// Poll returns the newest reading if one has landed since the last call.
func (s *Sampler) Poll() (Reading, bool) {
	select {
	case r := <-s.slot:
		return r, true
	default:
		return Reading{}, false
	}
}

// pass samples every channel, applies calibration and the EMA filter.
func (s *Sampler) pass() Reading {
	select {
	case t := <-s.calCh:
		s.cal = t
	default:
	}

	var r Reading
	for ch := hal.Channel(0); ch < hal.NumChannels; ch++ {
		raw, err := s.src.Sample(ch)
		if err != nil {
			// Transient or railed: flag it and hold the last good value.
			r.Flagged[ch] = true
			continue
		}
		micro := s.cal.Ch[ch].Apply(raw, lsbFor(ch))
		if !s.seen[ch] || s.shift == 0 {
			s.ema[ch] = micro
			s.seen[ch] = true
		} else {
			s.ema[ch] += (micro - s.ema[ch]) >> s.shift
		}
	}
	r.I_uA = s.ema[hal.ChCurrent]
	r.V_uV = s.ema[hal.ChVoltage]
	r.Temp_mC = s.ema[hal.ChTemp] / 1000
	r.P_mW = r.I_uA * r.V_uV / 1_000_000_000
	r.TSms = timex.NowMs()
	return r
}

// publish replaces the mailbox content; the newest reading always wins.
func (s *Sampler) publish(r Reading) {
	select {
	case s.slot <- r:
	default:
		select {
		case <-s.slot:
		default:
		}
		select {
		case s.slot <- r:
		default:
		}
	}
}
