// cmd/radio-board/main.go
//go:build stm32f103

package main

import (
	"context"
	"runtime"
	"time"

	"radioboard-go/services/board"
	"radioboard-go/services/config"
	"radioboard-go/services/heartbeat"
	"radioboard-go/types"
)

// bootArgs is set at link time:
//
//	tinygo build -target=bluepill -tags stm32f103 \
//	  -ldflags "-X main.bootArgs='profile=radio-pwm1 console=uart2'" ./cmd/radio-board
var bootArgs string

func main() {
	opts, err := config.Resolve(bootArgs)
	if err != nil {
		println("[main] boot args rejected:", err.Error())
		opts = types.DefaultOptions()
	}

	hb := &heartbeat.Service{Interval: 5 * time.Second}
	entry := func(ctx context.Context, bc *board.BoardContext) error {
		printMem()
		return hb.Run(ctx, bc)
	}

	if _, err := board.Run(context.Background(), opts, entry); err != nil {
		println("[main] bring-up failed:", err.Error())
	}
	for {
		time.Sleep(time.Hour)
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
	)
}
