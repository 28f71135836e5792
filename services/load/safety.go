package load

// FaultKind names the protection that tripped.
type FaultKind uint8

const (
	FaultNone FaultKind = iota
	FaultOverCurrent
	FaultOverVoltage
	FaultOverPower
	FaultOverTemp
	FaultSensorLoss
)

func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "none"
	case FaultOverCurrent:
		return "overcurrent"
	case FaultOverVoltage:
		return "overvoltage"
	case FaultOverPower:
		return "overpower"
	case FaultOverTemp:
		return "overtemp"
	case FaultSensorLoss:
		return "sensorloss"
	}
	return "?"
}

// Fault is a latched protection event. Reading is the value that tripped, in
// the protection's own unit (µA, µV, mW or m°C; zero for sensor loss).
type Fault struct {
	Kind    FaultKind
	Reading int64
	TSms    int64
}

// Monitor evaluates every reading against the protection limits and latches
// the first violation. Once latched it stays latched until TryReset succeeds;
// reset requires the condition to have receded below trip minus hysteresis so
// a marginal measurement cannot flap the stage on and off.
type Monitor struct {
	cfg Config

	fault   Fault
	latched bool

	sensorRun int // consecutive passes with any channel flagged
}

func NewMonitor(cfg Config) *Monitor {
	return &Monitor{cfg: cfg}
}

func (m *Monitor) Latched() bool { return m.latched }
func (m *Monitor) Fault() Fault  { return m.fault }

// Check inspects one reading. It returns true the moment a new fault latches;
// while already latched it returns false and changes nothing (the first fault
// wins).
func (m *Monitor) Check(rd Reading) bool {
	if m.latched {
		return false
	}

	anyFlagged := false
	for _, f := range rd.Flagged {
		if f {
			anyFlagged = true
			break
		}
	}
	if anyFlagged {
		m.sensorRun++
	} else {
		m.sensorRun = 0
	}

	switch {
	case m.sensorRun >= m.cfg.SensorTrips:
		m.latch(FaultSensorLoss, 0, rd.TSms)
	case rd.I_uA > m.cfg.OCP_uA:
		m.latch(FaultOverCurrent, rd.I_uA, rd.TSms)
	case rd.V_uV > m.cfg.OVP_uV:
		m.latch(FaultOverVoltage, rd.V_uV, rd.TSms)
	case rd.P_mW > m.cfg.OPP_mW:
		m.latch(FaultOverPower, rd.P_mW, rd.TSms)
	case rd.Temp_mC > m.cfg.OTP_mC:
		m.latch(FaultOverTemp, rd.Temp_mC, rd.TSms)
	default:
		return false
	}
	return true
}

func (m *Monitor) latch(kind FaultKind, reading, ts int64) {
	m.fault = Fault{Kind: kind, Reading: reading, TSms: ts}
	m.latched = true
}

// TryReset clears the latch if the tripped condition has receded past its
// hysteresis margin in the given reading. Sensor loss additionally requires a
// clean pass (no channel flagged).
func (m *Monitor) TryReset(rd Reading) bool {
	if !m.latched {
		return false
	}

	ok := false
	switch m.fault.Kind {
	case FaultOverCurrent:
		ok = rd.I_uA < m.cfg.OCP_uA-m.cfg.OCPHyst_uA
	case FaultOverVoltage:
		ok = rd.V_uV < m.cfg.OVP_uV-m.cfg.OVPHyst_uV
	case FaultOverPower:
		ok = rd.P_mW < m.cfg.OPP_mW-m.cfg.OPPHyst_mW
	case FaultOverTemp:
		ok = rd.Temp_mC < m.cfg.OTP_mC-m.cfg.OTPHyst_mC
	case FaultSensorLoss:
		ok = true
		for _, f := range rd.Flagged {
			if f {
				ok = false
			}
		}
	}
	if !ok {
		return false
	}
	m.fault = Fault{}
	m.latched = false
	m.sensorRun = 0
	return true
}
