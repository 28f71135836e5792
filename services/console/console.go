// Package console is the operator's serial command line: a small
// line-oriented protocol over a UART (or stdio on the host) that drives the
// control service through the bus.
package console

import (
	"context"
	"io"
	"time"

	"github.com/google/shlex"

	"dcload-go/bus"
	"dcload-go/types"
	"dcload-go/x/conv"
)

const serviceName = "console"

const helpText = `commands:
  status                          show the latest state snapshot
  start <cc|cv|cr|cp> <target> [ramp/s]
                                  enter regulation (A, V, ohm, W)
  stop                            back to off
  reset                           acknowledge a latched fault
  cal start|stop                  calibration run
  cal set <current|voltage|temp|drive> <gain_ppm> <off>
  help                            this text
`

type Service struct {
	Name string

	echo bool
	port io.ReadWriter
	last *types.Snapshot
}

func NewService() *Service {
	return &Service{Name: serviceName}
}

// Start launches the console on its own goroutine plus a blocking reader.
func (s *Service) Start(ctx context.Context, conn *bus.Connection, port io.ReadWriter) {
	go s.run(ctx, conn, port)
}

func (s *Service) run(ctx context.Context, conn *bus.Connection, port io.ReadWriter) {
	s.port = port

	cfgSub := conn.Subscribe(bus.T("config", serviceName))
	select {
	case m := <-cfgSub.Channel():
		if sec, ok := m.Payload.(map[string]any); ok {
			if e, ok := sec["echo"].(bool); ok {
				s.echo = e
			}
		}
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		cfgSub.Unsubscribe()
		return
	}
	cfgSub.Unsubscribe()

	stateSub := conn.Subscribe(bus.T("load", "state"))
	defer stateSub.Unsubscribe()
	replySub := conn.Subscribe(bus.T(serviceName, "reply"))
	defer replySub.Unsubscribe()

	lines := make(chan string, 4)
	go s.readLines(ctx, lines)

	s.write("dc load console, 'help' for commands\r\n")

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-stateSub.Channel():
			if snap, ok := m.Payload.(*types.Snapshot); ok {
				s.last = snap
			}
		case line := <-lines:
			s.dispatch(conn, replySub, line)
		}
	}
}

// readLines assembles CR/LF-terminated lines from the port.
func (s *Service) readLines(ctx context.Context, lines chan<- string) {
	var acc []byte
	buf := make([]byte, 64)
	for ctx.Err() == nil {
		n, err := s.port.Read(buf)
		if err != nil {
			return
		}
		for _, c := range buf[:n] {
			switch c {
			case '\r', '\n':
				if len(acc) > 0 {
					if s.echo {
						s.write("\r\n")
					}
					lines <- string(acc)
					acc = acc[:0]
				}
			case 0x7f, 0x08: // backspace
				if len(acc) > 0 {
					acc = acc[:len(acc)-1]
					if s.echo {
						s.write("\b \b")
					}
				}
			default:
				acc = append(acc, c)
				if s.echo {
					s.write(string([]byte{c}))
				}
			}
		}
	}
}

func (s *Service) dispatch(conn *bus.Connection, replySub *bus.Subscription, line string) {
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		s.write("error: bad input\r\n")
		return
	}

	switch args[0] {
	case "help":
		s.write(helpText)
	case "status":
		s.printStatus()
	case "start":
		s.cmdStart(conn, replySub, args[1:])
	case "stop":
		s.send(conn, replySub, "stop", &types.Stop{})
	case "reset":
		s.send(conn, replySub, "reset", &types.FaultReset{})
	case "cal":
		s.cmdCal(conn, replySub, args[1:])
	default:
		s.write("error: unknown command, try 'help'\r\n")
	}
}

func (s *Service) cmdStart(conn *bus.Connection, replySub *bus.Subscription, args []string) {
	if len(args) < 2 || len(args) > 3 {
		s.write("usage: start <cc|cv|cr|cp> <target> [ramp/s]\r\n")
		return
	}
	target, ok := parseMicro(args[1])
	if !ok {
		s.write("error: bad target\r\n")
		return
	}
	var rampPerS int64
	if len(args) == 3 {
		if rampPerS, ok = parseMicro(args[2]); !ok {
			s.write("error: bad ramp\r\n")
			return
		}
	}
	// CR targets travel in mΩ and CP in mW, not micro-units.
	if args[0] == "cr" || args[0] == "cp" {
		target = conv.MicroToMilli(target)
		rampPerS = conv.MicroToMilli(rampPerS)
	}
	s.send(conn, replySub, "start", &types.Start{Mode: args[0], Target: target, RampPerS: rampPerS})
}

func (s *Service) cmdCal(conn *bus.Connection, replySub *bus.Subscription, args []string) {
	switch {
	case len(args) == 1 && args[0] == "start":
		s.send(conn, replySub, "cal_start", &types.CalStart{})
	case len(args) == 1 && args[0] == "stop":
		s.send(conn, replySub, "cal_stop", &types.CalStop{})
	case len(args) == 4 && args[0] == "set":
		gain, ok1 := parseInt(args[2])
		off, ok2 := parseInt(args[3])
		if !ok1 || !ok2 {
			s.write("error: bad cal values\r\n")
			return
		}
		s.send(conn, replySub, "cal_set", &types.CalSave{
			Channel: args[1],
			GainPPM: int32(gain),
			Off:     int32(off),
		})
	default:
		s.write("usage: cal start|stop|set <channel> <gain_ppm> <off>\r\n")
	}
}

// send publishes one control command and prints the reply.
func (s *Service) send(conn *bus.Connection, replySub *bus.Subscription, verb string, payload any) {
	// Drop stale replies from a previously timed-out command.
	for {
		select {
		case <-replySub.Channel():
			continue
		default:
		}
		break
	}

	conn.Publish(&bus.Message{
		Topic:   bus.T("load", "control", verb),
		Payload: payload,
		ReplyTo: replySub.Pattern(),
	})

	select {
	case m := <-replySub.Channel():
		switch r := m.Payload.(type) {
		case *types.OKReply:
			s.write("ok\r\n")
		case *types.ErrorReply:
			s.write("error: " + r.Error + "\r\n")
		default:
			s.write("error: bad reply\r\n")
		}
	case <-time.After(time.Second):
		s.write("error: timeout\r\n")
	}
}

func (s *Service) printStatus() {
	if s.last == nil {
		s.write("no state yet\r\n")
		return
	}
	var b [24]byte
	snap := s.last

	s.write("state=" + snap.State)
	if snap.State == "regulating" {
		s.write(" mode=" + snap.Mode)
	}
	if snap.Fault != "" {
		s.write(" fault=" + snap.Fault)
	}
	if snap.SensorFault {
		s.write(" sensor=degraded")
	}

	s.write(" i=")
	s.port.Write(conv.FormatMilli(b[:], conv.MicroToMilli(int64(snap.I_uA))))
	s.write("A v=")
	s.port.Write(conv.FormatMilli(b[:], conv.MicroToMilli(int64(snap.V_uV))))
	s.write("V p=")
	s.port.Write(conv.FormatMilli(b[:], int64(snap.P_mW)))
	s.write("W t=")
	s.port.Write(conv.FormatMilli(b[:], int64(snap.Temp_mC)))
	s.write("C drive=")
	s.port.Write(conv.Utoa(b[:], uint64(snap.Drive)))
	if snap.Clamped {
		s.write(" clamped")
	}
	s.write("\r\n")
}

func (s *Service) write(str string) {
	_, _ = s.port.Write([]byte(str))
}

// parseMicro reads a decimal like "2.5" or "-0.05" into integer micro-units.
func parseMicro(str string) (int64, bool) {
	if str == "" {
		return 0, false
	}
	neg := false
	i := 0
	if str[0] == '-' || str[0] == '+' {
		neg = str[0] == '-'
		i = 1
	}
	if i == len(str) {
		return 0, false
	}
	var whole, frac int64
	digits := 0
	for ; i < len(str) && str[i] != '.'; i++ {
		c := str[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		whole = whole*10 + int64(c-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	scale := int64(100_000)
	if i < len(str) { // fraction
		i++
		if i == len(str) {
			return 0, false
		}
		for ; i < len(str) && scale > 0; i++ {
			c := str[i]
			if c < '0' || c > '9' {
				return 0, false
			}
			frac += int64(c-'0') * scale
			scale /= 10
		}
		// Excess precision beyond 1 µ-unit is ignored.
		for ; i < len(str); i++ {
			if str[i] < '0' || str[i] > '9' {
				return 0, false
			}
		}
	}
	v := whole*1_000_000 + frac
	if neg {
		v = -v
	}
	return v, true
}

func parseInt(str string) (int64, bool) {
	if str == "" {
		return 0, false
	}
	neg := false
	i := 0
	if str[0] == '-' || str[0] == '+' {
		neg = str[0] == '-'
		i = 1
	}
	if i == len(str) {
		return 0, false
	}
	var v int64
	for ; i < len(str); i++ {
		c := str[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, true
}
