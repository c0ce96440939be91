package sim

import (
	"errors"

	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"
)

var ErrNotConfigured = errors.New("sim: memory bank enabled before timing was programmed")

// SRAM models the FSMC bank and the part behind it. Accesses before the
// bank is enabled, or outside the region, read 0xFF and drop writes, as an
// unclocked bus would. Not safe for concurrent use.
type SRAM struct {
	log    *Log
	region types.MemoryRegion
	data   []byte
	faults map[uint32]byte // addr -> bits flipped on store

	timing     types.SRAMTiming
	configured bool
	enabled    bool

	Stores, Loads int
	OutOfRange    int
	LastLoad      uint32
}

var (
	_ core.MemoryController = (*SRAM)(nil)
	_ core.MemoryBus        = (*SRAM)(nil)
)

func (s *SRAM) Configure(t types.SRAMTiming) error {
	s.timing, s.configured = t, true
	s.log.add(Event{Kind: EvMemConfigure, Name: "fsmc"})
	return nil
}

func (s *SRAM) Enable(bank uint8) error {
	if !s.configured {
		return ErrNotConfigured
	}
	s.enabled = true
	s.log.add(Event{Kind: EvMemEnable, Name: "fsmc"})
	return nil
}

func (s *SRAM) Store(addr uint32, v byte) {
	s.Stores++
	if !s.enabled || !s.region.Contains(addr) {
		s.OutOfRange++
		return
	}
	s.data[addr-s.region.Base] = v ^ s.faults[addr]
}

func (s *SRAM) Load(addr uint32) byte {
	s.Loads++
	s.LastLoad = addr
	if !s.enabled || !s.region.Contains(addr) {
		s.OutOfRange++
		return 0xFF
	}
	return s.data[addr-s.region.Base]
}

// Inject flips bits at addr on every subsequent store.
func (s *SRAM) Inject(addr uint32, flip byte) {
	if s.faults == nil {
		s.faults = make(map[uint32]byte)
	}
	s.faults[addr] = flip
}

// Timing returns what the controller was programmed with.
func (s *SRAM) Timing() (types.SRAMTiming, bool) { return s.timing, s.configured }

func (s *SRAM) Enabled() bool { return s.enabled }
