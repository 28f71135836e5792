package main

import (
	"context"
	"time"

	"dcload-go/bus"
	"dcload-go/services/config"
	"dcload-go/services/console"
	"dcload-go/services/hal"
	"dcload-go/services/load"
	"dcload-go/services/telemetry"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] dc load starting")

	ctx := context.Background()
	b := bus.NewBus(16)

	board, err := hal.NewBoard()
	if err != nil {
		println("[main] board init failed:", err.Error())
		return
	}

	config.NewService("dcload-main").Start(ctx, b.NewConnection("config"))

	load.NewService().Start(ctx, b.NewConnection("load"), board.Source, board.Sink)
	console.NewService().Start(ctx, b.NewConnection("console"), board.Console)
	_ = (&telemetry.Service{}).Start(ctx, b.NewConnection("telemetry"))

	println("[main] services up")
	select {}
}
