package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"radioboard-go/errcode"
	"radioboard-go/types"
)

func TestParseOptionsOverrides(t *testing.T) {
	o, err := ParseOptions(`console=uart2 brightness=pwm2 settle=50ms tick=1000 region=0x68000000+1M`, types.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if o.Console != types.ConsoleUART2 || o.Brightness != types.BrightnessPWM2 {
		t.Fatalf("variants %+v", o)
	}
	if o.Settle != 50*time.Millisecond || o.TickHz != 1000 {
		t.Fatalf("timing %v %d", o.Settle, o.TickHz)
	}
	if o.Region.Base != 0x68000000 || o.Region.End != 0x68100000 {
		t.Fatalf("region %#x..%#x", o.Region.Base, o.Region.End)
	}
	if len(o.Devices) != 3 {
		t.Fatalf("devices replaced: %v", o.Devices)
	}
	if err := Validate(o); err != nil {
		t.Fatal(err)
	}
}

func TestParseOptionsDevicesReplaceDefaults(t *testing.T) {
	base := types.DefaultOptions()
	o, err := ParseOptions(`device=flash@spi1:PA4 "device=codec@spi1:pc5"`, base)
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Devices) != 2 || o.Devices[1].Device != "codec" || o.Devices[1].CS != (types.ChipSelect{Port: types.PortC, Pin: 5}) {
		t.Fatalf("devices %+v", o.Devices)
	}
	if len(base.Devices) != 3 || base.Devices[0].Device != "spi10" {
		t.Fatal("base mutated")
	}
}

func TestParseOptionsErrors(t *testing.T) {
	for _, in := range []string{
		"console",
		"colour=red",
		"settle=soon",
		"tick=-1",
		"region=0x68000000",
		"region=zz:0x10",
		"device=spi10",
		"device=spi10@spi1:PZ4",
		"profile=nope",
		`console="uart1`,
	} {
		if _, err := ParseOptions(in, types.DefaultOptions()); !errors.Is(err, errcode.InvalidParams) {
			t.Fatalf("%q: err %v", in, err)
		}
	}
}

func TestProfiles(t *testing.T) {
	o, err := Resolve("profile=radio-pwm1 console=uart3")
	if err != nil {
		t.Fatal(err)
	}
	if o.Brightness != types.BrightnessPWM1 || o.Console != types.ConsoleUART3 {
		t.Fatalf("%+v", o)
	}

	old := ProfileLookup
	ProfileLookup = func(name string) (string, bool) { return "tick=10", name == "slow" }
	t.Cleanup(func() { ProfileLookup = old })
	if o, err := Resolve("profile=slow"); err != nil || o.TickHz != 10 {
		t.Fatalf("override: %v %d", err, o.TickHz)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*types.Options)
		code errcode.Code
	}{
		{"console", func(o *types.Options) { o.Console = "uart9" }, errcode.InvalidParams},
		{"brightness", func(o *types.Options) { o.Brightness = "pwm3" }, errcode.InvalidParams},
		{"tick", func(o *types.Options) { o.TickHz = 0 }, errcode.InvalidParams},
		{"empty region", func(o *types.Options) { o.Region.End = o.Region.Base }, errcode.InvalidParams},
		{"outside bank", func(o *types.Options) { o.Region = types.MemoryRegion{Base: 0x60000000, End: 0x60001000} }, errcode.InvalidParams},
		{"bank", func(o *types.Options) { o.Timing.Bank = 0 }, errcode.InvalidParams},
		{"width", func(o *types.Options) { o.Timing.DataWidth = 32 }, errcode.InvalidParams},
		{"no bus", func(o *types.Options) { o.Devices[0].Bus = "" }, errcode.InvalidParams},
		{"dup name", func(o *types.Options) { o.Devices[1].Device = o.Devices[0].Device }, errcode.DeviceExists},
		{"shared cs", func(o *types.Options) { o.Devices[1].CS = o.Devices[0].CS }, errcode.ChipSelectInUse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := types.DefaultOptions()
			tc.mut(&o)
			if err := Validate(o); errcode.Of(err) != tc.code {
				t.Fatalf("got %v want %v", err, tc.code)
			}
		})
	}
	// The same pin on two different buses is fine.
	o := types.DefaultOptions()
	o.Devices[1].CS = o.Devices[0].CS
	o.Devices[1].Bus = "spi2"
	if err := Validate(o); err != nil {
		t.Fatal(err)
	}
}

const boardYAML = `
boot: brightness=pwm1
console: uart2
region:
  base: 0x68000000
  end: 0x68080000
settle: 20ms
devices:
  - {name: flash, bus: spi1, cs: PA4}
  - {name: touch, bus: spi1, cs: PC4}
sim:
  fail_lock: true
  fail_clocks: [SPI1]
  faults:
    - {addr: 0x68000010, flip: 0x80}
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte(boardYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	o, err := f.Options()
	if err != nil {
		t.Fatal(err)
	}
	if o.Brightness != types.BrightnessPWM1 || o.Console != types.ConsoleUART2 || o.Settle != 20*time.Millisecond {
		t.Fatalf("%+v", o)
	}
	if o.Region.Size() != 512<<10 || len(o.Devices) != 2 || o.Devices[1].Device != "touch" {
		t.Fatalf("%+v", o)
	}
	if !f.Sim.FailLock || len(f.Sim.FailClocks) != 1 || len(f.Sim.Faults) != 1 || f.Sim.Faults[0].Addr != 0x68000010 || f.Sim.Faults[0].Flip != 0x80 {
		t.Fatalf("sim %+v", f.Sim)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
	if _, err := Parse([]byte("region: [1, 2")); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("bad yaml: %v", err)
	}
	f, err := Parse([]byte("devices:\n  - {name: x, bus: spi1, cs: Q1}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Options(); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("bad cs: %v", err)
	}
}

func TestProfilesSorted(t *testing.T) {
	names := Profiles()
	if len(names) != len(embeddedProfiles) || names[0] != "radio" {
		t.Fatalf("profiles %v", names)
	}
	for _, n := range names {
		if _, err := Resolve("profile=" + n); err != nil {
			t.Fatalf("profile %s: %v", n, err)
		}
	}
}
