// services/board/internal/platform/platform_host.go
//go:build !stm32f103

package platform

import (
	"radioboard-go/services/board/internal/core"
	"radioboard-go/services/board/sim"
)

// New returns a freshly simulated board. Host builds have no registers to
// bind; tests that need to observe the hardware build their own sim.Board.
func New() core.Hardware { return sim.New(sim.DefaultConfig()).Hardware() }
