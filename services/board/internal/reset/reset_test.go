package reset

import (
	"testing"
	"time"

	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/pinmux"
	"radioboard-go/services/board/internal/setups"
	"radioboard-go/services/board/sim"
	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
)

func setup(t *testing.T) (*pinmux.Multiplexer, *sim.Board) {
	t.Helper()
	b := sim.New(sim.DefaultConfig())
	m := pinmux.New(b.Clock, b.Pins)
	if err := m.ConfigureAll(setups.SignalGroups(types.DefaultOptions())); err != nil {
		t.Fatalf("pin table: %v", err)
	}
	return m, b
}

func groupPin(t *testing.T, m *pinmux.Multiplexer, name string) (types.Port, uint8) {
	t.Helper()
	g, ok := m.Group(name)
	if !ok {
		t.Fatalf("no group %q", name)
	}
	var pin uint8
	for !g.Mask.Has(pin) {
		pin++
	}
	return g.Port, pin
}

func TestAllAssertedBeforeAnyReleased(t *testing.T) {
	m, b := setup(t)
	mark := len(b.Log.Events())

	s := New(m, b.Timer, 100*time.Millisecond)
	if err := s.ResetAll(setups.ResetPlan); err != nil {
		t.Fatal(err)
	}

	lastAssert, firstRelease, settleAt := -1, -1, -1
	for _, ev := range b.Log.Events()[mark:] {
		if ev.Kind == sim.EvSettle && settleAt < 0 {
			settleAt = ev.Seq
			if ev.Dur != 100*time.Millisecond {
				t.Fatalf("settle duration %v", ev.Dur)
			}
		}
		if ev.Kind != sim.EvWrite {
			continue
		}
		for _, e := range setups.ResetPlan {
			port, pin := groupPin(t, m, e.Group)
			if ev.Port != port || !ev.Mask.Has(pin) {
				continue
			}
			if ev.Level == e.Active {
				lastAssert = ev.Seq
			} else if firstRelease < 0 {
				firstRelease = ev.Seq
			}
		}
	}
	if lastAssert < 0 || firstRelease < 0 {
		t.Fatalf("missing transitions: assert=%d release=%d", lastAssert, firstRelease)
	}
	if !(lastAssert < settleAt && settleAt < firstRelease) {
		t.Fatalf("ordering broken: last assert %d, settle %d, first release %d", lastAssert, settleAt, firstRelease)
	}

	for _, e := range setups.ResetPlan {
		if lvl, _ := m.Level(e.Group); lvl == e.Active {
			t.Fatalf("%s still held in reset", e.Device)
		}
	}
}

func TestReleaseOrderFollowsPlan(t *testing.T) {
	m, b := setup(t)
	mark := len(b.Log.Events())
	if err := New(m, b.Timer, time.Millisecond).ResetAll(setups.ResetPlan); err != nil {
		t.Fatal(err)
	}
	var released []string
	for _, ev := range b.Log.Events()[mark:] {
		if ev.Kind != sim.EvWrite {
			continue
		}
		for _, e := range setups.ResetPlan {
			port, pin := groupPin(t, m, e.Group)
			if ev.Port == port && ev.Mask.Has(pin) && ev.Level != e.Active {
				released = append(released, e.Device)
			}
		}
	}
	if len(released) != len(setups.ResetPlan) {
		t.Fatalf("released %v", released)
	}
	for i, e := range setups.ResetPlan {
		if released[i] != e.Device {
			t.Fatalf("release order %v", released)
		}
	}
}

func TestPostDelayHonoured(t *testing.T) {
	m, b := setup(t)
	plan := []types.DeviceResetEntry{
		{Device: "lcd", Group: setups.GroupLCDReset, Active: gpio.Low, PostDelay: 5 * time.Millisecond},
	}
	if err := New(m, b.Timer, time.Millisecond).ResetAll(plan); err != nil {
		t.Fatal(err)
	}
	settles := b.Log.Filter(sim.EvSettle)
	if len(settles) != 2 || settles[1].Dur != 5*time.Millisecond {
		t.Fatalf("settles = %+v", settles)
	}
}

func TestInvalidPlanDrivesNothing(t *testing.T) {
	m, b := setup(t)
	mark := len(b.Log.Events())

	cases := []struct {
		name string
		plan []types.DeviceResetEntry
		want errcode.Code
	}{
		{"unknown group", []types.DeviceResetEntry{
			{Device: "lcd", Group: setups.GroupLCDReset, Active: gpio.Low},
			{Device: "ghost", Group: "ghost.reset", Active: gpio.Low},
		}, errcode.UnknownPin},
		{"multi-pin group", []types.DeviceResetEntry{
			{Device: "bus", Group: "fsmc.d0-d3", Active: gpio.Low},
		}, errcode.InvalidParams},
		{"shared line", []types.DeviceResetEntry{
			{Device: "a", Group: setups.GroupDM9000, Active: gpio.Low},
			{Device: "b", Group: setups.GroupDM9000, Active: gpio.Low},
		}, errcode.InvalidParams},
	}
	for _, tc := range cases {
		err := New(m, b.Timer, time.Millisecond).ResetAll(tc.plan)
		if errcode.Of(err) != tc.want {
			t.Fatalf("%s: want %s, got %v", tc.name, tc.want, err)
		}
	}
	if n := len(b.Log.Events()) - mark; n != 0 {
		t.Fatalf("invalid plans produced %d hardware events", n)
	}
}
