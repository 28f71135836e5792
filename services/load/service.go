package load

import (
	"context"
	"time"

	"dcload-go/bus"
	"dcload-go/errcode"
	"dcload-go/services/hal"
	"dcload-go/types"
	"dcload-go/x/timex"
)

const serviceName = "load"

// Topic layout:
//
//	load/control/<verb>   commands (start, stop, reset, cal_start, cal_stop, cal_set)
//	load/state            retained snapshot, one per control tick
//	config/load           retained tuning section from the config service
type Service struct {
	Name string

	cfg Config

	acq *Sampler
	reg *Regulator
	mon *Monitor
	sup *Supervisor
	act *Actuator

	last Reading
	have bool
}

func NewService() *Service {
	return &Service{Name: serviceName}
}

// Start launches the control loop on its own goroutine. All control state is
// owned by that goroutine; the only way in is the bus.
func (s *Service) Start(ctx context.Context, conn *bus.Connection, src hal.AnalogSource, sink hal.DriveSink) {
	go s.run(ctx, conn, src, sink)
}

func (s *Service) run(ctx context.Context, conn *bus.Connection, src hal.AnalogSource, sink hal.DriveSink) {
	s.cfg = Default()

	// The config section is retained, so it arrives immediately if the
	// config service has already published. A short grace period covers
	// startup ordering; after that the defaults stand.
	cfgSub := conn.Subscribe(bus.T("config", serviceName))
	select {
	case m := <-cfgSub.Channel():
		if sec, ok := m.Payload.(map[string]any); ok {
			s.cfg.ApplySection(sec)
		}
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		cfgSub.Unsubscribe()
		return
	}
	cfgSub.Unsubscribe()

	s.acq = NewSampler(src, s.cfg)
	s.reg = NewRegulator(s.cfg)
	s.mon = NewMonitor(s.cfg)
	s.sup = NewSupervisor(s.cfg, s.reg, s.mon)
	s.act = NewActuator(sink, s.cfg)

	// Stage off until commanded.
	_ = s.act.ForceSafe()

	go s.acq.Run(ctx)

	cmdSub := conn.Subscribe(bus.T(serviceName, "control", "+"))
	defer cmdSub.Unsubscribe()

	ticker := time.NewTicker(timex.MsToDuration(uint32(s.cfg.TickMs)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.act.ForceSafe()
			return
		case m := <-cmdSub.Channel():
			s.handleCommand(conn, m)
		case <-ticker.C:
			s.tick(conn)
		}
	}
}

// tick is one control period: ingest the newest reading, run protections,
// then drive per the supervisor state.
func (s *Service) tick(conn *bus.Connection) {
	if rd, ok := s.acq.Poll(); ok {
		s.last = rd
		s.have = true
	}
	// Reusing the previous reading when none landed this tick is normal:
	// acquisition and control run at different rates.

	if s.have && s.mon.Check(s.last) {
		f := s.mon.Fault()
		println("load: fault latched:", f.Kind.String())
		s.sup.OnFault()
	}

	switch s.sup.State() {
	case StateRegulating:
		if s.have {
			cmd := s.reg.Step(s.sup.Setpoint(), s.last, s.cfg.TickMs)
			_ = s.act.Apply(cmd.Code)
			s.publishState(conn, cmd.Clamped)
			return
		}
		// No reading yet: hold at zero rather than drive blind.
		_ = s.act.Apply(0)
	case StateCalibrating:
		_ = s.act.Apply(s.cfg.CalRefCode)
	case StateFault:
		// The regulator was reset when the fault latched, so there is
		// nothing to step; zero drive is re-asserted at the actuator every
		// tick regardless of what any earlier stage computed.
		_ = s.act.ForceSafe()
	default:
		_ = s.act.Apply(0)
	}
	s.publishState(conn, false)
}

func (s *Service) publishState(conn *bus.Connection, clamped bool) {
	sp := s.sup.Setpoint()
	snap := &types.Snapshot{
		State:     s.sup.State().String(),
		Mode:      sp.Mode.String(),
		I_uA:      int32(s.last.I_uA),
		V_uV:      int32(s.last.V_uV),
		P_mW:      int32(s.last.P_mW),
		Temp_mC:   int32(s.last.Temp_mC),
		Target:    sp.Target,
		EffTarget: sp.Effective(),
		Drive:     s.act.Current(),
		Clamped:   clamped,
		TSms:      timex.NowMs(),
	}
	if s.mon.Latched() {
		snap.Fault = s.mon.Fault().Kind.String()
	}
	for _, f := range s.last.Flagged {
		if f {
			snap.SensorFault = true
		}
	}
	conn.Publish(&bus.Message{
		Topic:    bus.T(serviceName, "state"),
		Payload:  snap,
		Retained: true,
	})
}

func (s *Service) handleCommand(conn *bus.Connection, m *bus.Message) {
	verb, _ := m.Topic.At(2).(string)

	var code errcode.Code
	switch verb {
	case "start":
		code = s.cmdStart(m.Payload)
	case "stop":
		code = s.sup.Stop()
	case "reset":
		code = s.cmdReset()
	case "cal_start":
		code = s.sup.CalStart()
	case "cal_stop":
		code = s.sup.CalStop()
	case "cal_set":
		code = s.cmdCalSet(conn, m.Payload)
	default:
		code = errcode.Unsupported
	}

	if code == errcode.OK {
		conn.Reply(m, &types.OKReply{OK: true}, false)
	} else {
		conn.Reply(m, &types.ErrorReply{OK: false, Error: string(code)}, false)
	}
}

func (s *Service) cmdStart(payload any) errcode.Code {
	var modeStr string
	var target, rampPerS int64

	switch p := payload.(type) {
	case *types.Start:
		modeStr, target, rampPerS = p.Mode, p.Target, p.RampPerS
	case map[string]any:
		modeStr, _ = p["mode"].(string)
		target, _ = num(p, "target")
		rampPerS, _ = num(p, "ramp_per_s")
	default:
		return errcode.InvalidPayload
	}

	mode, ok := ParseMode(modeStr)
	if !ok {
		return errcode.InvalidMode
	}
	return s.sup.Start(mode, target, rampPerS)
}

func (s *Service) cmdReset() errcode.Code {
	if !s.have {
		return errcode.NotReady
	}
	return s.sup.ResetFault(s.last)
}

// cmdCalSet updates one channel's correction while calibrating and forwards
// the values for persistence.
func (s *Service) cmdCalSet(conn *bus.Connection, payload any) errcode.Code {
	if s.sup.State() != StateCalibrating {
		return errcode.NotCalibrating
	}

	var chName string
	var gainPPM, off int64

	switch p := payload.(type) {
	case *types.CalSave:
		chName, gainPPM, off = p.Channel, int64(p.GainPPM), int64(p.Off)
	case map[string]any:
		chName, _ = p["channel"].(string)
		gainPPM, _ = num(p, "gain_ppm")
		off, _ = num(p, "off")
	default:
		return errcode.InvalidPayload
	}

	cc := CalChannel{GainPPM: gainPPM, Off: off}
	if !cc.Plausible() {
		// Reject before touching the table so a bad run cannot clobber a
		// channel that was already good.
		return errcode.InvalidParams
	}
	switch chName {
	case hal.ChCurrent.String():
		s.cfg.Cal.Ch[hal.ChCurrent] = cc
	case hal.ChVoltage.String():
		s.cfg.Cal.Ch[hal.ChVoltage] = cc
	case hal.ChTemp.String():
		s.cfg.Cal.Ch[hal.ChTemp] = cc
	case "drive":
		s.cfg.Cal.Drive = cc
	default:
		return errcode.InvalidParams
	}

	s.acq.SetCal(s.cfg.Cal)
	s.act.SetCal(s.cfg.Cal.Drive)
	s.sup.SetCal(s.cfg.Cal)

	// Retained so the persistence owner can pick it up whenever it runs.
	conn.Publish(&bus.Message{
		Topic: bus.T("config", "save", serviceName),
		Payload: &types.CalSave{
			Channel: chName,
			GainPPM: int32(gainPPM),
			Off:     int32(off),
		},
		Retained: true,
	})
	return errcode.OK
}
