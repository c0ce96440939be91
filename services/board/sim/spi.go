package sim

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"radioboard-go/services/board/internal/core"

	"tinygo.org/x/drivers"
)

// Transfer is one recorded Tx on a simulated bus.
type Transfer struct {
	Selected []string // chip-selects asserted while the bytes moved
	W        []byte
}

// SPIBus is a loopback transfer engine. It flags any two Tx calls that
// overlap in time.
type SPIBus struct {
	name string
	log  *Log
	pins *Pins

	mu        sync.Mutex
	inFlight  int
	overlap   bool
	transfers []Transfer
	freqHz    uint32

	// Latency is held inside every Tx; zero yields the processor instead.
	Latency time.Duration
	// Respond fills r for the selected device; nil means loopback.
	Respond func(dev string, w, r []byte)
}

var _ drivers.SPI = (*SPIBus)(nil)

func (b *SPIBus) Tx(w, r []byte) error {
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > 1 {
		b.overlap = true
	}
	b.mu.Unlock()

	sel := b.pins.Selected()
	sort.Strings(sel)
	if b.Latency > 0 {
		time.Sleep(b.Latency)
	} else {
		runtime.Gosched()
	}

	dev := ""
	if len(sel) == 1 {
		dev = sel[0]
	}
	switch {
	case b.Respond != nil:
		b.Respond(dev, w, r)
	case r != nil:
		for i := range r {
			r[i] = 0xFF
		}
		copy(r, w)
	}

	b.mu.Lock()
	b.transfers = append(b.transfers, Transfer{Selected: sel, W: append([]byte(nil), w...)})
	b.inFlight--
	b.mu.Unlock()
	b.log.add(Event{Kind: EvTx, Name: b.name + ":" + dev})
	return nil
}

func (b *SPIBus) Transfer(c byte) (byte, error) {
	r := []byte{0}
	err := b.Tx([]byte{c}, r)
	return r[0], err
}

// SetFrequency rounds down to what the prescaler can produce.
func (b *SPIBus) SetFrequency(hz uint32) error {
	_, actual := core.SPIBaud(core.PCLK2Hz, hz)
	b.mu.Lock()
	b.freqHz = actual
	b.mu.Unlock()
	return nil
}

func (b *SPIBus) Frequency() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freqHz
}

// Transfers returns a copy of everything sent so far.
func (b *SPIBus) Transfers() []Transfer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Transfer(nil), b.transfers...)
}

// Overlapped reports whether two transfers were ever in flight together.
func (b *SPIBus) Overlapped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overlap
}
