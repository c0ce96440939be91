package sim

import (
	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"
	"radioboard-go/x/syncx"

	"tinygo.org/x/drivers"
)

// Config shapes a simulated board.
type Config struct {
	Region     types.MemoryRegion
	Faults     map[uint32]byte // addr -> bits flipped on store
	FailLock   bool            // kernel refuses to create bus locks
	FailClocks []string        // peripheral names whose gate never opens
	Buses      []string
	Consoles   []types.ConsoleID
	UID        [12]byte
	RealTime   bool
}

// DefaultConfig matches the board as shipped.
func DefaultConfig() Config {
	return Config{
		Region:   types.DefaultOptions().Region,
		Buses:    []string{types.DefaultBus},
		Consoles: []types.ConsoleID{types.ConsoleUART1, types.ConsoleUART2, types.ConsoleUART3},
		UID: [12]byte{
			0x05, 0xDB, 0xFF, 0x33, 0x34, 0x36,
			0x4E, 0x43, 0x43, 0x12, 0x47, 0x57,
		},
	}
}

// Board bundles the simulated peripherals.
type Board struct {
	Log      *Log
	Clock    *Clock
	Pins     *Pins
	SRAM     *SRAM
	Kernel   *Kernel
	Consoles *Consoles
	Timer    *Timer
	Halter   *Halter

	buses map[string]*SPIBus
	uid   [12]byte
}

var (
	_ core.SPIFactory = (*Board)(nil)
	_ core.IDReader   = (*Board)(nil)
)

func New(cfg Config) *Board {
	log := &Log{}
	b := &Board{
		Log:    log,
		Clock:  &Clock{log: log, enabled: make(map[core.Peripheral]bool), fail: make(map[string]bool)},
		Pins:   &Pins{log: log},
		Kernel: &Kernel{failLock: cfg.FailLock, locks: make(map[string]*syncx.FIFO)},
		Consoles: &Consoles{
			log:     log,
			present: make(map[types.ConsoleID]bool),
			opened:  make(map[types.ConsoleID]*Console),
		},
		Timer:  &Timer{log: log, RealTime: cfg.RealTime},
		Halter: &Halter{log: log},
		buses:  make(map[string]*SPIBus),
		uid:    cfg.UID,
	}
	for _, n := range cfg.FailClocks {
		b.Clock.fail[n] = true
	}
	for _, id := range cfg.Consoles {
		b.Consoles.present[id] = true
	}

	region := cfg.Region
	if !region.Valid() {
		region = types.DefaultOptions().Region
	}
	b.SRAM = &SRAM{log: log, region: region, data: make([]byte, region.Size())}
	for addr, flip := range cfg.Faults {
		b.SRAM.Inject(addr, flip)
	}

	for _, name := range cfg.Buses {
		b.buses[name] = &SPIBus{name: name, log: log, pins: b.Pins}
	}
	return b
}

// Hardware exposes the board through the capability interfaces.
func (b *Board) Hardware() core.Hardware {
	return core.Hardware{
		Clock:    b.Clock,
		Pins:     b.Pins,
		Memory:   b.SRAM,
		MemBus:   b.SRAM,
		Kernel:   b.Kernel,
		Consoles: b.Consoles,
		SPI:      b,
		Settle:   b.Timer,
		Halt:     b.Halter,
		ID:       b,
	}
}

func (b *Board) ByID(id string) (drivers.SPI, bool) {
	bus, ok := b.buses[id]
	if !ok {
		return nil, false
	}
	return bus, true
}

// Bus returns the simulated engine behind a bus name.
func (b *Board) Bus(id string) *SPIBus { return b.buses[id] }

func (b *Board) UniqueID() [12]byte { return b.uid }

// WatchBindings tracks the chip-select of every binding for overlap.
func (b *Board) WatchBindings(bindings []types.SerialDeviceBinding) {
	for _, d := range bindings {
		b.Pins.Watch(d.Device, d.CS)
	}
}
