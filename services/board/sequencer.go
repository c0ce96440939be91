package board

import (
	"context"

	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/extmem"
	"radioboard-go/services/board/internal/pinmux"
	"radioboard-go/services/board/internal/reset"
	"radioboard-go/services/board/internal/setups"
	"radioboard-go/services/board/internal/spibus"
	"radioboard-go/types"
	"radioboard-go/x/syncx"

	"tinygo.org/x/drivers"
)

// State is a bring-up stage. Stages run strictly in declaration order.
type State uint8

const (
	Reset State = iota // not started
	ClockInit
	DeviceReset
	MemoryBringup
	MemorySelfTest
	BusDeviceAttach
	ConsoleReady
	Halted
)

var stateNames = [...]string{"Reset", "ClockInit", "DeviceReset", "MemoryBringup", "MemorySelfTest", "BusDeviceAttach", "ConsoleReady", "Halted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// NVIC split used by the kernel: 2 bits pre-emption, 2 bits sub-priority.
const priorityGroupBits = 2

// Sequencer drives one bring-up run. It is single-use and not safe for
// concurrent use; nothing else runs while it does.
type Sequencer struct {
	hw    Hardware
	opts  types.Options
	entry EntryFunc

	state State
	trace []State

	mux *pinmux.Multiplexer
	reg *spibus.Registry
	con drivers.UART
	uid [12]byte

	degraded []error
	progress func(pass int, done uint32)
}

func New(hw Hardware, opts types.Options, entry EntryFunc) *Sequencer {
	mux := pinmux.New(hw.Clock, hw.Pins)
	return &Sequencer{
		hw:    hw,
		opts:  opts,
		entry: entry,
		mux:   mux,
		reg:   spibus.New(mux),
	}
}

func (s *Sequencer) State() State { return s.state }

// OnProgress reports memory self-test progress every 64 KiB of each pass
// (0 write, 1 read). Set it before Run.
func (s *Sequencer) OnProgress(fn func(pass int, done uint32)) { s.progress = fn }

// Trace lists the states entered so far.
func (s *Sequencer) Trace() []State { return append([]State(nil), s.trace...) }

func (s *Sequencer) enter(st State) {
	s.state = st
	s.trace = append(s.trace, st)
}

// Run executes every stage in order. A self-test mismatch halts the
// hardware and is returned as *extmem.Mismatch; any other failing stage
// stops the run with an error naming the stage. In both cases the
// sequencer ends in Halted.
func (s *Sequencer) Run(ctx context.Context) (*BoardContext, error) {
	if s.state != Reset {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "board.Run", Msg: "sequencer already used"}
	}
	steps := [...]struct {
		st State
		fn func() error
	}{
		{ClockInit, s.clockInit},
		{DeviceReset, s.deviceReset},
		{MemoryBringup, s.memoryBringup},
		{MemorySelfTest, s.memorySelfTest},
		{BusDeviceAttach, s.busDeviceAttach},
	}
	for _, step := range steps {
		s.enter(step.st)
		if err := step.fn(); err != nil {
			s.enter(Halted)
			if _, mm := err.(*extmem.Mismatch); mm {
				return nil, err
			}
			return nil, errcode.Wrap(step.st.String(), err)
		}
	}

	s.enter(ConsoleReady)
	if err := s.hw.Kernel.SetConsole(string(s.opts.Console)); err != nil {
		s.enter(Halted)
		return nil, errcode.Wrap(ConsoleReady.String(), err)
	}
	bc := &BoardContext{
		Options:  s.opts,
		Region:   s.opts.Region,
		Console:  s.con,
		Pins:     s.mux,
		Registry: s.reg,
		UID:      s.uid,
		Degraded: s.degraded,
	}
	if s.entry != nil {
		return bc, s.entry(ctx, bc)
	}
	return bc, nil
}

func (s *Sequencer) clockInit() error {
	if err := s.hw.Clock.InitSystem(); err != nil {
		return &errcode.E{C: errcode.ClockFault, Op: "sysclk", Err: err}
	}
	if err := s.hw.Clock.SetPriorityGrouping(priorityGroupBits); err != nil {
		return err
	}
	if err := s.hw.Clock.StartTick(s.opts.TickHz); err != nil {
		return err
	}
	return s.mux.ConfigureAll(setups.SignalGroups(s.opts))
}

func (s *Sequencer) deviceReset() error {
	if err := reset.New(s.mux, s.hw.Settle, s.opts.Settle).ResetAll(setups.ResetPlan); err != nil {
		return err
	}
	con, err := s.hw.Consoles.Open(s.opts.Console)
	if err != nil {
		return &errcode.E{C: errcode.Unsupported, Op: "console", Msg: string(s.opts.Console), Err: err}
	}
	s.con = con
	s.uid = s.hw.ID.UniqueID()
	s.print(bannerLine)
	s.print(serialLine(s.uid))
	return nil
}

func (s *Sequencer) memoryBringup() error {
	return extmem.BringUp(s.hw.Clock, s.hw.Memory, s.opts.Region, s.opts.Timing)
}

func (s *Sequencer) memorySelfTest() error {
	s.print(memTestStart)
	err := extmem.Verify(s.hw.MemBus, s.opts.Region, extmem.Options{Progress: s.progress})
	if mm, ok := err.(*extmem.Mismatch); ok {
		s.print(memTestFail(mm.Addr))
		s.hw.Halt.Halt()
		return mm
	}
	if err != nil {
		return err
	}
	s.print(memTestPass)
	return nil
}

func (s *Sequencer) busDeviceAttach() error {
	for _, name := range busNames(s.opts.Devices) {
		hw, ok := s.hw.SPI.ByID(name)
		if !ok {
			return &errcode.E{C: errcode.UnknownBus, Op: "attach", Msg: name}
		}
		lock, err := s.hw.Kernel.NewLock(name + "lock")
		if err != nil || lock == nil {
			// Keep going on a local lock rather than an unguarded bus.
			s.print(lockFailed(name))
			s.degraded = append(s.degraded, &errcode.E{C: errcode.LockFailed, Op: "attach", Msg: name + "lock", Err: err})
			lock = syncx.NewFIFO()
		}
		if err := s.reg.AddBus(name, hw, lock); err != nil {
			return err
		}
	}
	for _, b := range s.opts.Devices {
		if _, err := s.reg.Attach(b); err != nil {
			return err
		}
	}
	return nil
}

// busNames lists each bus once, in first-use order.
func busNames(devs []types.SerialDeviceBinding) []string {
	var out []string
	seen := map[string]bool{}
	for _, d := range devs {
		if !seen[d.Bus] {
			seen[d.Bus] = true
			out = append(out, d.Bus)
		}
	}
	return out
}
