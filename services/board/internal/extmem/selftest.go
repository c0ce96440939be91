package extmem

import (
	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"
	"radioboard-go/x/conv"
)

// Mismatch is the first address whose read-back differs from the pattern.
type Mismatch struct {
	Addr uint32
	Want byte
	Got  byte
}

func (m *Mismatch) Error() string {
	var buf [8]byte
	return "memory mismatch @ " + string(conv.U32Hex(buf[:], m.Addr))
}

func (m *Mismatch) Code() errcode.Code { return errcode.MemoryFault }

// Pattern is the byte expected at offset.
func Pattern(offset uint32) byte { return byte(offset) }

const progressStride = 64 << 10

// Options tunes Verify. The zero value is fine.
type Options struct {
	// Progress is called every 64 KiB of each pass with the pass number
	// (0 write, 1 read) and bytes done.
	Progress func(pass int, done uint32)
}

// Verify writes offset mod 256 across the region in ascending order, then
// reads it back in the same order. It stops at the first mismatch without
// touching any further address. Prior content is destroyed.
func Verify(bus core.MemoryBus, region types.MemoryRegion, opts Options) error {
	if !region.Valid() {
		return &errcode.E{C: errcode.InvalidParams, Op: "extmem.Verify", Msg: "empty region"}
	}
	size := region.Size()

	for off := uint32(0); off < size; off++ {
		bus.Store(region.Base+off, Pattern(off))
		if opts.Progress != nil && (off+1)%progressStride == 0 {
			opts.Progress(0, off+1)
		}
	}
	for off := uint32(0); off < size; off++ {
		if got := bus.Load(region.Base + off); got != Pattern(off) {
			return &Mismatch{Addr: region.Base + off, Want: Pattern(off), Got: got}
		}
		if opts.Progress != nil && (off+1)%progressStride == 0 {
			opts.Progress(1, off+1)
		}
	}
	return nil
}
