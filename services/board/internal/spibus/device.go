package spibus

import (
	"sync"

	"radioboard-go/errcode"
	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers"
)

// Device is the handle for one attached device. Every transfer made
// through it holds the bus lock with only this device's chip-select
// asserted.
type Device struct {
	name  string
	cs    types.ChipSelect
	group string
	bus   *bus
	pins  Pins
}

var _ drivers.SPI = (*Device)(nil)

func (d *Device) Name() string                 { return d.name }
func (d *Device) Bus() string                  { return d.bus.name }
func (d *Device) ChipSelect() types.ChipSelect { return d.cs }

// Begin takes the bus and asserts the chip-select. The caller must Close
// the returned transaction.
func (d *Device) Begin() (*Txn, error) {
	d.bus.lock.Lock()
	if err := d.pins.Drive(d.group, gpio.Low); err != nil {
		// Leave the line deselected before giving the bus back.
		_ = d.pins.Drive(d.group, gpio.High)
		d.bus.lock.Unlock()
		return nil, errcode.Wrap("spibus.Begin "+d.name, err)
	}
	return &Txn{d: d}, nil
}

// Tx runs one complete select/transfer/deselect cycle.
func (d *Device) Tx(w, r []byte) error {
	t, err := d.Begin()
	if err != nil {
		return err
	}
	defer t.Close()
	return t.Tx(w, r)
}

func (d *Device) Transfer(b byte) (byte, error) {
	t, err := d.Begin()
	if err != nil {
		return 0, err
	}
	defer t.Close()
	return t.Transfer(b)
}

// Txn is an open transaction: bus locked, chip-select asserted.
type Txn struct {
	d    *Device
	once sync.Once
	done bool
}

var _ drivers.SPI = (*Txn)(nil)

var errClosed = &errcode.E{C: errcode.InvalidParams, Op: "spibus.Txn", Msg: "transaction closed"}

func (t *Txn) Tx(w, r []byte) error {
	if t.done {
		return errClosed
	}
	return t.d.bus.hw.Tx(w, r)
}

func (t *Txn) Transfer(b byte) (byte, error) {
	if t.done {
		return 0, errClosed
	}
	return t.d.bus.hw.Transfer(b)
}

// Close deasserts the chip-select and releases the bus. Extra calls are
// no-ops.
func (t *Txn) Close() error {
	var err error
	t.once.Do(func() {
		t.done = true
		err = t.d.pins.Drive(t.d.group, gpio.High)
		t.d.bus.lock.Unlock()
	})
	return err
}
