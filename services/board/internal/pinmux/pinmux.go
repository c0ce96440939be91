package pinmux

import (
	"sync"

	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
)

// -----------------------------------------------------------------------------
// Claim ledger
// -----------------------------------------------------------------------------

// Claim records which signal group owns one physical pin.
type Claim struct {
	Port  types.Port
	Pin   uint8
	Owner string
}

// Ledger tracks pin ownership for one bring-up run. The zero value is empty.
type Ledger struct {
	owners [types.NumPorts][16]string
}

// Owner returns the group name owning port/pin, if any.
func (l *Ledger) Owner(port types.Port, pin uint8) (string, bool) {
	if !port.Valid() || pin > 15 {
		return "", false
	}
	o := l.owners[port][pin]
	return o, o != ""
}

// conflict returns the first pin in g owned by a different group.
func (l *Ledger) conflict(g types.SignalGroup) (pin uint8, owner string, found bool) {
	for p := uint8(0); p < 16; p++ {
		if !g.Mask.Has(p) {
			continue
		}
		if o := l.owners[g.Port][p]; o != "" && o != g.Name {
			return p, o, true
		}
	}
	return 0, "", false
}

func (l *Ledger) release(name string) {
	for port := range l.owners {
		for pin := range l.owners[port] {
			if l.owners[port][pin] == name {
				l.owners[port][pin] = ""
			}
		}
	}
}

func (l *Ledger) claim(g types.SignalGroup) {
	g.Mask.Each(func(p uint8) { l.owners[g.Port][p] = g.Name })
}

// Claims lists every owned pin ordered by port then pin.
func (l *Ledger) Claims() []Claim {
	var out []Claim
	for port := range l.owners {
		for pin, o := range l.owners[port] {
			if o != "" {
				out = append(out, Claim{Port: types.Port(port), Pin: uint8(pin), Owner: o})
			}
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Multiplexer
// -----------------------------------------------------------------------------

// Multiplexer assigns pin mode and speed to signal groups and refuses to
// hand one pin to two groups.
type Multiplexer struct {
	mu sync.Mutex

	clock core.ClockController
	pins  core.PinController

	ledger  Ledger
	groups  map[string]types.SignalGroup
	clocked [types.NumPorts]bool
}

func New(clock core.ClockController, pins core.PinController) *Multiplexer {
	return &Multiplexer{
		clock:  clock,
		pins:   pins,
		groups: make(map[string]types.SignalGroup),
	}
}

// Configure applies g. Calling it again with the same group is harmless;
// calling it with the same name and a different shape replaces the group.
// A port clock that cannot be enabled is reported as errcode.ClockFault.
func (m *Multiplexer) Configure(g types.SignalGroup) error {
	const op = "pinmux.Configure"
	if g.Name == "" || !g.Port.Valid() || g.Mask == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "group " + g.Name}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if pin, owner, bad := m.ledger.conflict(g); bad {
		return &errcode.E{
			C:   errcode.PinInUse,
			Op:  op,
			Msg: types.PinName(g.Port, pin) + " owned by " + owner + ", wanted by " + g.Name,
		}
	}

	if !m.clocked[g.Port] {
		if err := m.clock.Enable(core.GPIOClock(g.Port)); err != nil {
			return &errcode.E{C: errcode.ClockFault, Op: op, Msg: "GPIO" + g.Port.String(), Err: err}
		}
		m.clocked[g.Port] = true
	}

	// Latch the output level before the driver turns on.
	if g.Mode.IsOutput() {
		m.pins.Write(g.Port, g.Mask, g.Initial)
	}
	if err := m.pins.Configure(g.Port, g.Mask, g.Mode, g.Speed); err != nil {
		return &errcode.E{C: errcode.Of(err), Op: op, Msg: g.Name, Err: err}
	}

	m.ledger.release(g.Name)
	m.ledger.claim(g)
	m.groups[g.Name] = g
	return nil
}

// ConfigureAll applies groups in order and stops at the first failure.
func (m *Multiplexer) ConfigureAll(groups []types.SignalGroup) error {
	for _, g := range groups {
		if err := m.Configure(g); err != nil {
			return err
		}
	}
	return nil
}

// Group returns a configured group by name.
func (m *Multiplexer) Group(name string) (types.SignalGroup, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[name]
	return g, ok
}

// Drive sets every pin of an output group to level.
func (m *Multiplexer) Drive(name string, level gpio.Level) error {
	g, ok := m.Group(name)
	if !ok {
		return &errcode.E{C: errcode.UnknownPin, Op: "pinmux.Drive", Msg: name}
	}
	if !g.Mode.IsOutput() {
		return &errcode.E{C: errcode.InvalidParams, Op: "pinmux.Drive", Msg: name + " is " + g.Mode.String()}
	}
	m.pins.Write(g.Port, g.Mask, level)
	return nil
}

// Level reads back the lowest pin of a group.
func (m *Multiplexer) Level(name string) (gpio.Level, error) {
	g, ok := m.Group(name)
	if !ok {
		return gpio.Low, &errcode.E{C: errcode.UnknownPin, Op: "pinmux.Level", Msg: name}
	}
	var first uint8
	for first = 0; first < 16 && !g.Mask.Has(first); first++ {
	}
	return m.pins.Read(g.Port, first), nil
}

// Claims snapshots the ledger.
func (m *Multiplexer) Claims() []Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Claims()
}

// Owner reports who owns a pin.
func (m *Multiplexer) Owner(port types.Port, pin uint8) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Owner(port, pin)
}
