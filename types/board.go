package types

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DeviceResetEntry names one reset/power line. Group must be a single-pin
// output group; Active is the level that holds the device in reset.
type DeviceResetEntry struct {
	Device    string
	Group     string
	Active    gpio.Level
	PostDelay time.Duration // extra wait after this line is released
}

// MemoryRegion is the half-open range [Base, End).
type MemoryRegion struct {
	Base uint32
	End  uint32
}

func (r MemoryRegion) Valid() bool               { return r.End > r.Base }
func (r MemoryRegion) Size() uint32              { return r.End - r.Base }
func (r MemoryRegion) Contains(addr uint32) bool { return addr >= r.Base && addr < r.End }

// SRAMTiming is handed to the memory controller untouched. Values are in
// HCLK cycles.
type SRAMTiming struct {
	Bank          uint8 // FSMC NOR/SRAM sub-bank 1..4 (NE1..NE4)
	DataWidth     uint8 // 8 or 16
	AddressSetup  uint8
	AddressHold   uint8
	DataSetup     uint8
	BusTurnaround uint8
}

const (
	fsmcBank1  = 0x60000000
	fsmcWindow = 0x04000000 // 64 MiB per NOR/SRAM sub-bank
)

// Window is the address range the controller maps to the timing's bank.
func (t SRAMTiming) Window() (MemoryRegion, bool) {
	if t.Bank < 1 || t.Bank > 4 {
		return MemoryRegion{}, false
	}
	base := uint32(fsmcBank1) + uint32(t.Bank-1)*fsmcWindow
	return MemoryRegion{Base: base, End: base + fsmcWindow}, true
}

// SerialDeviceBinding attaches one logical device to a physical serial bus.
type SerialDeviceBinding struct {
	Device string
	Bus    string
	CS     ChipSelect
}
