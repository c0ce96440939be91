// Package sim is a host-side model of the board used by tests and the
// boardsim tool. Every hardware touch is appended to a shared Log so tests
// can assert on ordering.
package sim

import (
	"sync"
	"time"

	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
)

type Kind uint8

const (
	EvClock Kind = iota
	EvConfigure
	EvWrite
	EvSettle
	EvMemConfigure
	EvMemEnable
	EvTx
	EvHalt
	EvConsole
)

func (k Kind) String() string {
	switch k {
	case EvClock:
		return "clock"
	case EvConfigure:
		return "configure"
	case EvWrite:
		return "write"
	case EvSettle:
		return "settle"
	case EvMemConfigure:
		return "mem_configure"
	case EvMemEnable:
		return "mem_enable"
	case EvTx:
		return "tx"
	case EvHalt:
		return "halt"
	case EvConsole:
		return "console"
	}
	return "unknown"
}

// Event is one observed hardware action.
type Event struct {
	Seq   int
	Kind  Kind
	Name  string // peripheral, bus, console or selected device
	Port  types.Port
	Mask  types.PinMask
	Level gpio.Level
	Mode  types.Mode
	Dur   time.Duration
}

// Log is a concurrency-safe, append-only event record.
type Log struct {
	mu     sync.Mutex
	events []Event
}

func (l *Log) add(ev Event) {
	l.mu.Lock()
	ev.Seq = len(l.events)
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

// Events returns a copy of the record.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Filter returns the events of one kind.
func (l *Log) Filter(k Kind) []Event {
	var out []Event
	for _, ev := range l.Events() {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

// Writes returns the latch writes touching port/pin, in order.
func (l *Log) Writes(port types.Port, pin uint8) []Event {
	var out []Event
	for _, ev := range l.Events() {
		if ev.Kind == EvWrite && ev.Port == port && ev.Mask.Has(pin) {
			out = append(out, ev)
		}
	}
	return out
}
