//go:build !tinygo

// Command simload exercises the control core against the simulated plant:
// a scripted run through regulation, a forced over-temperature fault and the
// reset flow, printing the state as it goes. Useful for eyeballing loop
// behavior without hardware.
package main

import (
	"context"
	"time"

	"dcload-go/bus"
	"dcload-go/services/config"
	"dcload-go/services/hal"
	"dcload-go/services/load"
	"dcload-go/services/telemetry"
	"dcload-go/types"
	"dcload-go/x/conv"
)

func main() {
	println("[simload] starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(32)
	sim := hal.NewSim(hal.DefaultSimConfig())

	config.NewService("dcload-main").Start(ctx, b.NewConnection("config"))
	load.NewService().Start(ctx, b.NewConnection("load"), sim, sim)
	_ = (&telemetry.Service{}).Start(ctx, b.NewConnection("telemetry"))

	conn := b.NewConnection("script")
	reply := conn.Subscribe(bus.T("script", "reply"))
	state := conn.Subscribe(bus.T("load", "state"))

	send := func(verb string, payload any) {
		conn.Publish(&bus.Message{
			Topic:   bus.T("load", "control", verb),
			Payload: payload,
			ReplyTo: reply.Pattern(),
		})
		select {
		case m := <-reply.Channel():
			switch r := m.Payload.(type) {
			case *types.OKReply:
				println("[simload]", verb, "-> ok")
			case *types.ErrorReply:
				println("[simload]", verb, "->", r.Error)
			}
		case <-time.After(2 * time.Second):
			println("[simload]", verb, "-> no reply")
		}
	}

	show := func() {
		var snap *types.Snapshot
		for {
			select {
			case m := <-state.Channel():
				if s, ok := m.Payload.(*types.Snapshot); ok {
					snap = s
					continue
				}
			default:
			}
			break
		}
		if snap == nil {
			println("[simload] no state yet")
			return
		}
		var bi, bv [24]byte
		println("[simload] state:", snap.State,
			"i="+string(conv.FormatMilli(bi[:], conv.MicroToMilli(int64(snap.I_uA)))),
			"v="+string(conv.FormatMilli(bv[:], conv.MicroToMilli(int64(snap.V_uV)))),
			"drive=", snap.Drive,
			"fault="+snap.Fault)
	}

	time.Sleep(700 * time.Millisecond) // config + service startup

	println("[simload] -- constant current, 2 A, default ramp --")
	send("start", &types.Start{Mode: "cc", Target: 2_000_000})
	for i := 0; i < 4; i++ {
		time.Sleep(500 * time.Millisecond)
		show()
	}

	println("[simload] -- forcing die temperature to 120 C --")
	sim.Force(hal.ChTemp, 120_000_000)
	time.Sleep(300 * time.Millisecond)
	show()

	println("[simload] -- reset while hot (must fail), then cooled --")
	send("reset", &types.FaultReset{})
	sim.Release(hal.ChTemp)
	time.Sleep(500 * time.Millisecond)
	send("reset", &types.FaultReset{})
	show()

	println("[simload] -- constant power, 50 W --")
	send("start", &types.Start{Mode: "cp", Target: 50_000})
	for i := 0; i < 3; i++ {
		time.Sleep(500 * time.Millisecond)
		show()
	}

	send("stop", &types.Stop{})
	time.Sleep(200 * time.Millisecond)
	show()
	println("[simload] done")
}
