package types

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ------------------------
// Ports and pins
// ------------------------

// Port identifies one GPIO port (A..G on the STM32F103ZE).
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortF
	PortG

	NumPorts = 7
)

func (p Port) Valid() bool { return p < NumPorts }

func (p Port) String() string {
	if !p.Valid() {
		return "?"
	}
	return string(rune('A' + p))
}

// PinMask selects pins within a port; bit n is pin n.
type PinMask uint16

// Pins builds a mask from pin numbers 0..15.
func Pins(n ...uint8) PinMask {
	var m PinMask
	for _, p := range n {
		m |= 1 << (p & 0xF)
	}
	return m
}

// PinRange builds a mask covering lo..hi inclusive.
func PinRange(lo, hi uint8) PinMask {
	var m PinMask
	for p := lo; p <= hi && p < 16; p++ {
		m |= 1 << p
	}
	return m
}

func (m PinMask) Has(pin uint8) bool { return pin < 16 && m&(1<<pin) != 0 }

// Count returns the number of pins in the mask.
func (m PinMask) Count() int {
	n := 0
	for v := m; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Each calls fn for every pin in the mask, lowest first.
func (m PinMask) Each(fn func(pin uint8)) {
	for p := uint8(0); p < 16; p++ {
		if m.Has(p) {
			fn(p)
		}
	}
}

// ------------------------
// Electrical configuration
// ------------------------

type Mode uint8

const (
	ModeInput Mode = iota
	ModeInputPullUp
	ModeOutputPushPull
	ModeAltPushPull
)

func (m Mode) IsOutput() bool { return m == ModeOutputPushPull }

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeInputPullUp:
		return "input_pullup"
	case ModeOutputPushPull:
		return "out_pp"
	case ModeAltPushPull:
		return "af_pp"
	default:
		return "unknown"
	}
}

// Speed is the output drive slew class. Inputs ignore it.
type Speed = physic.Frequency

const (
	Speed2MHz  Speed = 2 * physic.MegaHertz
	Speed10MHz Speed = 10 * physic.MegaHertz
	Speed50MHz Speed = 50 * physic.MegaHertz
)

// SignalGroup is a named set of pins on one port configured together for
// one peripheral function. Name identifies the owner: within a bring-up run
// no pin may belong to two different names.
type SignalGroup struct {
	Name    string
	Port    Port
	Mask    PinMask
	Mode    Mode
	Speed   Speed
	Initial gpio.Level // latched before an output group starts driving
}

// Single reports whether the group covers exactly one pin.
func (g SignalGroup) Single() bool { return g.Mask.Count() == 1 }

// ------------------------
// Chip-select
// ------------------------

// ChipSelect is the physical line a device uses to claim a shared bus.
type ChipSelect struct {
	Port Port
	Pin  uint8
}

func (c ChipSelect) Mask() PinMask { return Pins(c.Pin) }

func (c ChipSelect) String() string { return PinName(c.Port, c.Pin) }

// PinName formats a pin the way the schematic does, e.g. "PA4", "PF10".
func PinName(port Port, pin uint8) string {
	s := "P" + port.String()
	if pin >= 10 {
		s += string(rune('0' + pin/10))
	}
	return s + string(rune('0'+pin%10))
}

// ParsePin is the inverse of PinName.
func ParsePin(s string) (ChipSelect, bool) {
	if len(s) < 3 || len(s) > 4 || (s[0] != 'P' && s[0] != 'p') {
		return ChipSelect{}, false
	}
	port := s[1]
	if port >= 'a' && port <= 'z' {
		port -= 'a' - 'A'
	}
	if port < 'A' || port >= 'A'+NumPorts {
		return ChipSelect{}, false
	}
	var pin uint8
	for _, c := range []byte(s[2:]) {
		if c < '0' || c > '9' {
			return ChipSelect{}, false
		}
		pin = pin*10 + (c - '0')
	}
	if pin > 15 {
		return ChipSelect{}, false
	}
	return ChipSelect{Port: Port(port - 'A'), Pin: pin}, true
}
