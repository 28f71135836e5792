// Package telemetry prints a periodic one-line status from the retained
// state snapshot, a poor man's front panel for boards without a display.
package telemetry

import (
	"context"
	"time"

	"dcload-go/bus"
	"dcload-go/types"
	"dcload-go/x/conv"
)

var topicConfigTelemetry = bus.T("config", "telemetry")

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigTelemetry)
	defer cfgSub.Unsubscribe()

	stateSub := conn.Subscribe(bus.T("load", "state"))
	defer stateSub.Unsubscribe()

	var last *types.Snapshot

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: telemetry service stopping")
			return
		case msg := <-stateSub.Channel():
			if snap, ok := msg.Payload.(*types.Snapshot); ok {
				last = snap
			}
		case <-tick.C:
			s.report(last)
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"].(float64); ok && iv > 0 {
					tick.Reset(time.Duration(iv) * time.Second)
					println("Info:", "Telemetry interval set to", int64(iv), "seconds")
				}
			}
		}
	}
}

func (s *Service) report(snap *types.Snapshot) {
	if snap == nil {
		println("Info: telemetry: no state yet")
		return
	}
	var bi, bv, bp, bt [24]byte
	println("Info: telemetry:", snap.State,
		"i="+string(conv.FormatMilli(bi[:], conv.MicroToMilli(int64(snap.I_uA)))),
		"v="+string(conv.FormatMilli(bv[:], conv.MicroToMilli(int64(snap.V_uV)))),
		"p="+string(conv.FormatMilli(bp[:], int64(snap.P_mW))),
		"t="+string(conv.FormatMilli(bt[:], int64(snap.Temp_mC))),
		"drive=", snap.Drive,
		"fault="+snap.Fault)
}

// Start the telemetry service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
