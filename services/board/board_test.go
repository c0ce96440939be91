package board

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/extmem"
	"radioboard-go/services/board/sim"
	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
)

const wantSN = "CPU SN: 05DBFF3334364E4343124757\r\n"

func newSim(mut func(*sim.Config)) *sim.Board {
	cfg := sim.DefaultConfig()
	if mut != nil {
		mut(&cfg)
	}
	b := sim.New(cfg)
	b.WatchBindings(types.DefaultOptions().Devices)
	return b
}

func run(t *testing.T, b *sim.Board, opts types.Options) (*Sequencer, *BoardContext, int, error) {
	t.Helper()
	calls := 0
	s := New(b.Hardware(), opts, func(_ context.Context, bc *BoardContext) error {
		calls++
		if bc == nil {
			t.Fatal("nil board context")
		}
		return nil
	})
	bc, err := s.Run(context.Background())
	return s, bc, calls, err
}

func sameTrace(got, want []State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBringupHappyPath(t *testing.T) {
	b := newSim(nil)
	opts := types.DefaultOptions()
	s, bc, calls, err := run(t, b, opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("entry called %d times", calls)
	}
	want := []State{ClockInit, DeviceReset, MemoryBringup, MemorySelfTest, BusDeviceAttach, ConsoleReady}
	if !sameTrace(s.Trace(), want) || s.State() != ConsoleReady {
		t.Fatalf("trace %v state %v", s.Trace(), s.State())
	}

	out := b.Consoles.Get(types.ConsoleUART1).String()
	wantOut := bannerLine + wantSN + memTestStart + memTestPass
	if out != wantOut {
		t.Fatalf("console:\n%q\nwant\n%q", out, wantOut)
	}
	if b.Kernel.Console() != "uart1" {
		t.Fatalf("default console %q", b.Kernel.Console())
	}
	if b.Clock.Grouping != 2 || b.Clock.TickHz != 100 || !b.Clock.SysInit {
		t.Fatalf("clock grouping=%d tick=%d init=%v", b.Clock.Grouping, b.Clock.TickHz, b.Clock.SysInit)
	}
	if b.SRAM.Stores != 2<<20 || b.SRAM.Loads != 2<<20 {
		t.Fatalf("stores=%d loads=%d", b.SRAM.Stores, b.SRAM.Loads)
	}
	if b.Halter.Halted() {
		t.Fatal("healthy board halted")
	}
	if bc.Region != opts.Region || bc.UID != sim.DefaultConfig().UID || len(bc.Degraded) != 0 {
		t.Fatalf("context %+v", bc)
	}
	if bc.Console == nil || bc.Pins == nil || bc.Registry == nil {
		t.Fatal("context incomplete")
	}
}

func TestDevicesIndependentlySelectable(t *testing.T) {
	b := newSim(nil)
	_, bc, _, err := run(t, b, types.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	names := bc.Registry.Devices("spi1")
	if len(names) != 3 {
		t.Fatalf("devices %v", names)
	}
	seen := map[*Device]bool{}
	for _, n := range names {
		d, ok := bc.Device(n)
		if !ok || seen[d] {
			t.Fatalf("handle for %s missing or shared", n)
		}
		seen[d] = true
		if err := d.Tx([]byte{0x9F}, make([]byte, 1)); err != nil {
			t.Fatal(err)
		}
	}
	tr := b.Bus("spi1").Transfers()
	if len(tr) != 3 {
		t.Fatalf("transfers %d", len(tr))
	}
	for i, x := range tr {
		if len(x.Selected) != 1 || x.Selected[0] != names[i] {
			t.Fatalf("transfer %d selected %v want %s", i, x.Selected, names[i])
		}
	}
	if b.Pins.MaxSelected() != 1 {
		t.Fatalf("max selected %d", b.Pins.MaxSelected())
	}
}

func TestResetReleasedAfterChipSelectsIdle(t *testing.T) {
	b := newSim(nil)
	if _, _, _, err := run(t, b, types.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	// dm9000 is PE5; its release is the first High written there.
	release := -1
	for _, ev := range b.Log.Writes(types.PortE, 5) {
		if ev.Level == gpio.High {
			release = ev.Seq
			break
		}
	}
	if release < 0 {
		t.Fatal("dm9000 never released")
	}
	for _, d := range types.DefaultOptions().Devices {
		ws := b.Log.Writes(d.CS.Port, d.CS.Pin)
		if len(ws) == 0 || ws[0].Seq > release || ws[0].Level != gpio.High {
			t.Fatalf("%s not deselected before reset release", d.Device)
		}
	}
	settles := b.Log.Filter(sim.EvSettle)
	if len(settles) == 0 || settles[0].Dur != 100*time.Millisecond || settles[0].Seq > release {
		t.Fatalf("settle %+v", settles)
	}
}

func TestMemoryFaultHalts(t *testing.T) {
	const bad = 0x68000000 + 0x1234
	b := newSim(func(c *sim.Config) { c.Faults = map[uint32]byte{bad: 0x01} })
	s, bc, calls, err := run(t, b, types.DefaultOptions())

	var mm *extmem.Mismatch
	if !errors.As(err, &mm) || mm.Addr != bad {
		t.Fatalf("err %v", err)
	}
	if errcode.Of(err) != errcode.MemoryFault {
		t.Fatalf("code %v", errcode.Of(err))
	}
	if bc != nil || calls != 0 {
		t.Fatal("entry reached after memory fault")
	}
	if !b.Halter.Halted() || s.State() != Halted {
		t.Fatalf("halted=%v state=%v", b.Halter.Halted(), s.State())
	}
	tr := s.Trace()
	if tr[len(tr)-2] != MemorySelfTest {
		t.Fatalf("trace %v", tr)
	}
	out := b.Consoles.Get(types.ConsoleUART1).String()
	if !strings.HasSuffix(out, "\rmemtest fail @ 68001234\r\nsystem halt!!!!!") {
		t.Fatalf("console %q", out)
	}
	if strings.Contains(out, "pass") {
		t.Fatal("pass printed")
	}
	if b.Kernel.Console() != "" {
		t.Fatal("console handed to kernel after halt")
	}
	if n := b.SRAM.LastLoad; n != bad {
		t.Fatalf("last load %08X", n)
	}
}

func TestLockFailureDegrades(t *testing.T) {
	b := newSim(func(c *sim.Config) { c.FailLock = true })
	s, bc, _, err := run(t, b, types.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != ConsoleReady {
		t.Fatalf("state %v", s.State())
	}
	out := b.Consoles.Get(types.ConsoleUART1).String()
	if !strings.HasSuffix(out, memTestPass+"init spi1 lock semaphore failed\n") {
		t.Fatalf("console %q", out)
	}
	if len(bc.Degraded) != 1 || !errors.Is(bc.Degraded[0], errcode.LockFailed) {
		t.Fatalf("degraded %v", bc.Degraded)
	}
	d, ok := bc.Device("spi10")
	if !ok {
		t.Fatal("spi10 missing")
	}
	if _, err := d.Transfer(0xA5); err != nil {
		t.Fatal(err)
	}
}

func TestStepFailuresSurface(t *testing.T) {
	noSPI2 := types.DefaultOptions()
	noSPI2.Devices = append(noSPI2.Devices, types.SerialDeviceBinding{
		Device: "spi20", Bus: "spi2", CS: types.ChipSelect{Port: types.PortB, Pin: 12},
	})
	uart3 := types.DefaultOptions()
	uart3.Console = types.ConsoleUART3

	cases := []struct {
		name  string
		mut   func(*sim.Config)
		opts  types.Options
		state State
		code  errcode.Code
	}{
		{"port clock", func(c *sim.Config) { c.FailClocks = []string{"GPIOG"} }, types.DefaultOptions(), ClockInit, errcode.ClockFault},
		{"fsmc clock", func(c *sim.Config) { c.FailClocks = []string{"FSMC"} }, types.DefaultOptions(), MemoryBringup, errcode.ClockFault},
		{"no uart", func(c *sim.Config) { c.Consoles = []types.ConsoleID{types.ConsoleUART1} }, uart3, DeviceReset, errcode.Unsupported},
		{"unknown bus", nil, noSPI2, BusDeviceAttach, errcode.UnknownBus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newSim(tc.mut)
			s, bc, calls, err := run(t, b, tc.opts)
			if bc != nil || calls != 0 {
				t.Fatal("entry reached")
			}
			var e *errcode.E
			if !errors.As(err, &e) || e.Op != tc.state.String() {
				t.Fatalf("err %v", err)
			}
			if errcode.Of(err) != tc.code {
				t.Fatalf("code %v want %v", errcode.Of(err), tc.code)
			}
			if s.State() != Halted {
				t.Fatalf("state %v", s.State())
			}
			if b.Halter.Halted() {
				t.Fatal("only a memory fault halts the core")
			}
		})
	}
}

func TestEntryErrorReturned(t *testing.T) {
	b := newSim(nil)
	boom := errors.New("scheduler exited")
	bc, err := New(b.Hardware(), types.DefaultOptions(), func(context.Context, *BoardContext) error {
		return boom
	}).Run(context.Background())
	if !errors.Is(err, boom) || bc == nil {
		t.Fatalf("bc=%v err=%v", bc, err)
	}
}

func TestSequencerSingleUse(t *testing.T) {
	b := newSim(nil)
	s := New(b.Hardware(), types.DefaultOptions(), nil)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("second run err %v", err)
	}
}

func TestBrightnessVariantLatchedOff(t *testing.T) {
	for _, v := range []struct {
		b    types.Brightness
		port types.Port
		pin  uint8
	}{
		{types.BrightnessGPIO, types.PortF, 9},
		{types.BrightnessPWM1, types.PortB, 9},
		{types.BrightnessPWM2, types.PortB, 6},
	} {
		b := newSim(nil)
		opts := types.DefaultOptions()
		opts.Brightness = v.b
		_, bc, _, err := run(t, b, opts)
		if err != nil {
			t.Fatalf("%s: %v", v.b, err)
		}
		if owner, _ := bc.Pins.Owner(v.port, v.pin); owner != "lcd.brightness" {
			t.Fatalf("%s: owner %q", v.b, owner)
		}
		if b.Pins.Read(v.port, v.pin) != gpio.Low {
			t.Fatalf("%s: backlight on", v.b)
		}
	}
}

func TestStateString(t *testing.T) {
	if ClockInit.String() != "ClockInit" || Halted.String() != "Halted" || State(99).String() != "unknown" {
		t.Fatal("state names")
	}
}

func TestSelfTestProgress(t *testing.T) {
	b := newSim(nil)
	s := New(b.Hardware(), types.DefaultOptions(), nil)
	var calls [2]int
	s.OnProgress(func(pass int, done uint32) { calls[pass]++ })
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// 2 MiB in 64 KiB steps, per pass.
	if calls[0] != 32 || calls[1] != 32 {
		t.Fatalf("progress calls %v", calls)
	}
}
