package board

import (
	"context"

	"radioboard-go/services/board/internal/core"
	"radioboard-go/services/board/internal/pinmux"
	"radioboard-go/services/board/internal/platform"
	"radioboard-go/services/board/internal/spibus"
	"radioboard-go/types"

	"tinygo.org/x/drivers"
)

// Re-exported so callers outside this tree can hold them.
type (
	Hardware    = core.Hardware
	Multiplexer = pinmux.Multiplexer
	Claim       = pinmux.Claim
	Registry    = spibus.Registry
	Device      = spibus.Device
	Txn         = spibus.Txn
)

// EntryFunc is the kernel's scheduler entry. It receives the finished board
// and normally never returns.
type EntryFunc func(ctx context.Context, bc *BoardContext) error

// BoardContext is the single per-board record handed to everything that
// runs after bring-up.
type BoardContext struct {
	Options  types.Options
	Region   types.MemoryRegion // verified external memory
	Console  drivers.UART
	Pins     *Multiplexer
	Registry *Registry
	UID      [12]byte

	// Degraded lists steps that completed with a known weakness.
	Degraded []error
}

// Device returns an attached serial device by name.
func (bc *BoardContext) Device(name string) (*Device, bool) {
	return bc.Registry.Lookup(name)
}

// DefaultHardware binds to the build target: registers on the MCU, the
// simulator on a host.
func DefaultHardware() Hardware { return platform.New() }

// Run brings the board up on the default hardware and hands over to entry.
func Run(ctx context.Context, opts types.Options, entry EntryFunc) (*BoardContext, error) {
	return New(DefaultHardware(), opts, entry).Run(ctx)
}
