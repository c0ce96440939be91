package sim

import (
	"sync"

	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
)

type pinState struct {
	mode       types.Mode
	speed      types.Speed
	level      gpio.Level
	configured bool
}

// Pins models the GPIO ports. Pins named with Watch are treated as
// active-low chip-selects and checked for overlap on every write.
type Pins struct {
	mu    sync.Mutex
	log   *Log
	state [types.NumPorts][16]pinState

	watched   map[types.ChipSelect]string
	active    int
	maxActive int
}

var _ core.PinController = (*Pins)(nil)

func (p *Pins) Configure(port types.Port, mask types.PinMask, mode types.Mode, speed types.Speed) error {
	p.mu.Lock()
	mask.Each(func(n uint8) {
		st := &p.state[port][n]
		st.mode, st.speed, st.configured = mode, speed, true
	})
	p.mu.Unlock()
	p.log.add(Event{Kind: EvConfigure, Port: port, Mask: mask, Mode: mode})
	return nil
}

func (p *Pins) Write(port types.Port, mask types.PinMask, level gpio.Level) {
	p.mu.Lock()
	mask.Each(func(n uint8) { p.state[port][n].level = level })
	p.recount()
	p.mu.Unlock()
	p.log.add(Event{Kind: EvWrite, Port: port, Mask: mask, Level: level})
}

func (p *Pins) Read(port types.Port, pin uint8) gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state[port][pin&0xF].level
}

// caller holds lock
func (p *Pins) recount() {
	n := 0
	for cs := range p.watched {
		st := p.state[cs.Port][cs.Pin]
		if st.configured && st.mode.IsOutput() && st.level == gpio.Low {
			n++
		}
	}
	p.active = n
	if n > p.maxActive {
		p.maxActive = n
	}
}

// Watch registers an active-low chip-select for overlap tracking.
func (p *Pins) Watch(name string, cs types.ChipSelect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watched == nil {
		p.watched = make(map[types.ChipSelect]string)
	}
	p.watched[cs] = name
}

// Selected returns the names of watched chip-selects currently asserted.
func (p *Pins) Selected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for cs, name := range p.watched {
		st := p.state[cs.Port][cs.Pin]
		if st.configured && st.mode.IsOutput() && st.level == gpio.Low {
			out = append(out, name)
		}
	}
	return out
}

// MaxSelected is the largest number of chip-selects ever asserted at once.
func (p *Pins) MaxSelected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxActive
}

// Mode returns the configured mode of one pin and whether it was configured.
func (p *Pins) Mode(port types.Port, pin uint8) (types.Mode, types.Speed, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state[port][pin&0xF]
	return st.mode, st.speed, st.configured
}
