package reset

import (
	"time"

	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
)

// Lines is the part of the pin multiplexer the sequencer drives.
type Lines interface {
	Group(name string) (types.SignalGroup, bool)
	Drive(name string, level gpio.Level) error
}

// Sequencer holds every listed device in reset together, waits for the
// rails to settle, then lets them go one by one.
type Sequencer struct {
	lines  Lines
	settle core.Settler
	delay  time.Duration
}

func New(lines Lines, settle core.Settler, delay time.Duration) *Sequencer {
	return &Sequencer{lines: lines, settle: settle, delay: delay}
}

func (s *Sequencer) validate(entries []types.DeviceResetEntry) error {
	const op = "reset.validate"
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		g, ok := s.lines.Group(e.Group)
		if !ok {
			return &errcode.E{C: errcode.UnknownPin, Op: op, Msg: e.Device + ": no group " + e.Group}
		}
		if !g.Single() || !g.Mode.IsOutput() {
			return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: e.Device + ": " + e.Group + " is not a single output"}
		}
		if other, dup := seen[e.Group]; dup {
			return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: e.Group + " shared by " + other + " and " + e.Device}
		}
		seen[e.Group] = e.Device
	}
	return nil
}

// ResetAll asserts every entry, settles once, then releases in order. No
// line is released before all are asserted. Nothing is driven if any entry
// is invalid.
func (s *Sequencer) ResetAll(entries []types.DeviceResetEntry) error {
	if err := s.validate(entries); err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.lines.Drive(e.Group, e.Active); err != nil {
			return errcode.Wrap("reset.assert "+e.Device, err)
		}
	}

	s.settle.Settle(s.delay)

	for _, e := range entries {
		if err := s.lines.Drive(e.Group, !e.Active); err != nil {
			return errcode.Wrap("reset.release "+e.Device, err)
		}
		if e.PostDelay > 0 {
			s.settle.Settle(e.PostDelay)
		}
	}
	return nil
}
