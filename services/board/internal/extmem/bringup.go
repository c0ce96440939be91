package extmem

import (
	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"
)

// BringUp clocks the memory controller, programs the bank timing and
// enables it. The FSMC signal groups must already be configured. When it
// returns nil the region is ordinary memory.
func BringUp(clock core.ClockController, mem core.MemoryController, region types.MemoryRegion, t types.SRAMTiming) error {
	const op = "extmem.BringUp"
	if !region.Valid() {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "empty region"}
	}
	if t.Bank < 1 || t.Bank > 4 {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "bank out of range"}
	}
	if err := clock.Enable(core.PeriphFSMC); err != nil {
		return &errcode.E{C: errcode.ClockFault, Op: op, Msg: "FSMC", Err: err}
	}
	if err := mem.Configure(t); err != nil {
		return errcode.Wrap(op, err)
	}
	if err := mem.Enable(t.Bank); err != nil {
		return errcode.Wrap(op, err)
	}
	return nil
}

// BankBase is where the NOR/SRAM sub-bank n (1..4) is mapped.
func BankBase(n uint8) uint32 {
	w, _ := types.SRAMTiming{Bank: n}.Window()
	return w.Base
}
