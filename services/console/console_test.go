package console

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"dcload-go/bus"
	"dcload-go/types"
)

// fakePort is an in-memory serial port: bytes fed in, output captured.
type fakePort struct {
	mu  sync.Mutex
	out strings.Builder
	in  chan byte
}

func newFakePort() *fakePort {
	return &fakePort{in: make(chan byte, 256)}
}

func (p *fakePort) Read(b []byte) (int, error) {
	c, ok := <-p.in
	if !ok {
		return 0, io.EOF
	}
	b[0] = c
	return 1, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *fakePort) feed(s string) {
	for i := 0; i < len(s); i++ {
		p.in <- s[i]
	}
}

func (p *fakePort) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

func waitOutput(t *testing.T, p *fakePort, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(p.output(), substr) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("output never contained %q, got:\n%s", substr, p.output())
}

// respondWith runs a stub control endpoint that records the payload and sends
// the given reply.
func respondWith(ctx context.Context, conn *bus.Connection, reply any, got chan<- *bus.Message) {
	sub := conn.Subscribe(bus.T("load", "control", "+"))
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-sub.Channel():
				select {
				case got <- m:
				default:
				}
				conn.Reply(m, reply, false)
			}
		}
	}()
}

func startConsole(t *testing.T) (*bus.Bus, *fakePort, context.CancelFunc) {
	t.Helper()
	b := bus.NewBus(16)

	// Retained config so the console skips its startup grace period.
	cfgConn := b.NewConnection("test-cfg")
	cfgConn.Publish(&bus.Message{
		Topic:    bus.T("config", "console"),
		Payload:  map[string]any{"echo": false},
		Retained: true,
	})

	port := newFakePort()
	ctx, cancel := context.WithCancel(context.Background())
	NewService().Start(ctx, b.NewConnection("console"), port)
	waitOutput(t, port, "help")
	return b, port, cancel
}

func TestConsoleStartCommand(t *testing.T) {
	b, port, cancel := startConsole(t)
	defer cancel()

	got := make(chan *bus.Message, 1)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	respondWith(ctx, b.NewConnection("stub"), &types.OKReply{OK: true}, got)

	port.feed("start cc 2.5 0.5\n")

	select {
	case m := <-got:
		verb, _ := m.Topic.At(2).(string)
		if verb != "start" {
			t.Fatalf("verb = %q", verb)
		}
		p, ok := m.Payload.(*types.Start)
		if !ok {
			t.Fatalf("payload = %#v", m.Payload)
		}
		if p.Mode != "cc" || p.Target != 2_500_000 || p.RampPerS != 500_000 {
			t.Fatalf("start = %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command never reached the bus")
	}
	waitOutput(t, port, "ok")
}

func TestConsoleResistanceAndPowerUnits(t *testing.T) {
	b, port, cancel := startConsole(t)
	defer cancel()

	got := make(chan *bus.Message, 1)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	respondWith(ctx, b.NewConnection("stub"), &types.OKReply{OK: true}, got)

	// 10.5 Ω travels as 10500 mΩ.
	port.feed("start cr 10.5\n")
	select {
	case m := <-got:
		p := m.Payload.(*types.Start)
		if p.Target != 10_500 {
			t.Fatalf("cr target = %d, want 10500", p.Target)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no command")
	}
}

func TestConsoleErrorReply(t *testing.T) {
	b, port, cancel := startConsole(t)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	respondWith(ctx, b.NewConnection("stub"),
		&types.ErrorReply{OK: false, Error: "fault_latched"}, make(chan *bus.Message, 1))

	port.feed("stop\n")
	waitOutput(t, port, "error: fault_latched")
}

func TestConsoleStatusFromSnapshot(t *testing.T) {
	b, port, cancel := startConsole(t)
	defer cancel()

	stateConn := b.NewConnection("stub-state")
	stateConn.Publish(&bus.Message{
		Topic: bus.T("load", "state"),
		Payload: &types.Snapshot{
			State: "regulating", Mode: "cc",
			I_uA: 1_250_000, V_uV: 11_900_000, P_mW: 14_875, Temp_mC: 31_000,
			Drive: 8200,
		},
		Retained: true,
	})

	// Give the console a moment to ingest the snapshot.
	time.Sleep(100 * time.Millisecond)
	port.feed("status\n")
	waitOutput(t, port, "state=regulating")
	waitOutput(t, port, "i=1.250A")
	waitOutput(t, port, "v=11.900V")
	waitOutput(t, port, "drive=8200")
}

func TestConsoleUnknownCommand(t *testing.T) {
	_, port, cancel := startConsole(t)
	defer cancel()

	port.feed("frobnicate\n")
	waitOutput(t, port, "unknown command")
}

func TestParseMicro(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"2.5", 2_500_000, true},
		{"0.05", 50_000, true},
		{"-0.05", -50_000, true},
		{"10", 10_000_000, true},
		{"0.000001", 1, true},
		{"0.0000019", 1, true}, // excess digits ignored
		{"", 0, false},
		{".", 0, false},
		{"2.", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, c := range cases {
		got, ok := parseMicro(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("parseMicro(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}
