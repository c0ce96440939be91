package spibus

import (
	"sync"

	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/setups"
	"radioboard-go/types"

	"golang.org/x/exp/slices"
	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers"
)

// Pins is the part of the pin multiplexer the registry needs.
type Pins interface {
	Configure(g types.SignalGroup) error
	Drive(name string, level gpio.Level) error
}

// Reconfigurer is implemented by transfer engines whose clock can change
// after bring-up.
type Reconfigurer interface {
	SetFrequency(hz uint32) error
}

// bus is one physical serial bus and every device hanging off it.
type bus struct {
	name    string
	hw      drivers.SPI
	lock    sync.Locker // one per bus, shared by all its devices
	devices map[string]*Device
	cs      map[types.ChipSelect]string
}

// Registry binds logical devices to shared buses. AddBus and Attach run
// during bring-up; the returned handles are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	pins    Pins
	buses   map[string]*bus
	devices map[string]*Device
}

func New(pins Pins) *Registry {
	return &Registry{
		pins:    pins,
		buses:   make(map[string]*bus),
		devices: make(map[string]*Device),
	}
}

// AddBus registers a transfer engine and the lock that serialises it.
func (r *Registry) AddBus(name string, hw drivers.SPI, lock sync.Locker) error {
	const op = "spibus.AddBus"
	if name == "" || hw == nil || lock == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: name}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.buses[name]; dup {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: name + " already registered"}
	}
	r.buses[name] = &bus{
		name:    name,
		hw:      hw,
		lock:    lock,
		devices: make(map[string]*Device),
		cs:      make(map[types.ChipSelect]string),
	}
	return nil
}

// Attach configures the binding's chip-select as a deselected output,
// records the device under its name and returns its handle. A device name
// is unique across all buses; a chip-select pin is unique per bus.
func (r *Registry) Attach(b types.SerialDeviceBinding) (*Device, error) {
	const op = "spibus.Attach"
	if b.Device == "" || !b.CS.Port.Valid() || b.CS.Pin > 15 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: b.Device}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bs, ok := r.buses[b.Bus]
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: op, Msg: b.Bus}
	}
	if _, dup := r.devices[b.Device]; dup {
		return nil, &errcode.E{C: errcode.DeviceExists, Op: op, Msg: b.Device}
	}
	if other, dup := bs.cs[b.CS]; dup {
		return nil, &errcode.E{
			C:   errcode.ChipSelectInUse,
			Op:  op,
			Msg: b.CS.String() + " on " + b.Bus + " already selects " + other,
		}
	}

	g := setups.ChipSelectGroup(b)
	if err := r.pins.Configure(g); err != nil {
		return nil, errcode.Wrap(op, err)
	}

	d := &Device{name: b.Device, cs: b.CS, group: g.Name, bus: bs, pins: r.pins}
	bs.devices[b.Device] = d
	bs.cs[b.CS] = b.Device
	r.devices[b.Device] = d
	return d, nil
}

// Lookup finds an attached device by name.
func (r *Registry) Lookup(name string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[name]
	return d, ok
}

// Devices lists the device names on a bus, sorted.
func (r *Registry) Devices(busName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bs, ok := r.buses[busName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(bs.devices))
	for n := range bs.devices {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Buses lists registered bus names, sorted.
func (r *Registry) Buses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.buses))
	for n := range r.buses {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// SetFrequency changes a bus clock between transfers.
func (r *Registry) SetFrequency(busName string, hz uint32) error {
	const op = "spibus.SetFrequency"
	r.mu.RLock()
	bs, ok := r.buses[busName]
	r.mu.RUnlock()
	if !ok {
		return &errcode.E{C: errcode.UnknownBus, Op: op, Msg: busName}
	}
	rc, ok := bs.hw.(Reconfigurer)
	if !ok || hz == 0 {
		return &errcode.E{C: errcode.Unsupported, Op: op, Msg: busName}
	}
	bs.lock.Lock()
	defer bs.lock.Unlock()
	return rc.SetFrequency(hz)
}
