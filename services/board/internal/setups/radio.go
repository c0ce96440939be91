// Package setups holds the board schematic as data: which pins carry which
// function, and which lines hold which devices in reset.
package setups

import (
	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
)

const (
	GroupSDPower    = "sdio.power"
	GroupDM9000     = "dm9000.reset"
	GroupLCDReset   = "lcd.reset"
	GroupFlashReset = "flash.reset"
	GroupBrightness = "lcd.brightness"
)

func af(name string, port types.Port, mask types.PinMask) types.SignalGroup {
	return types.SignalGroup{Name: name, Port: port, Mask: mask, Mode: types.ModeAltPushPull, Speed: types.Speed50MHz}
}

func out(name string, port types.Port, pin uint8, initial gpio.Level) types.SignalGroup {
	return types.SignalGroup{
		Name: name, Port: port, Mask: types.Pins(pin),
		Mode: types.ModeOutputPushPull, Speed: types.Speed2MHz, Initial: initial,
	}
}

// FSMC is the external bus: 16 data lines, A0..A18, strobes, byte lanes and
// the four NOR/SRAM enables.
var FSMC = []types.SignalGroup{
	af("fsmc.d0-d3", types.PortD, types.Pins(0, 1, 14, 15)),
	af("fsmc.d4-d12", types.PortE, types.PinRange(7, 15)),
	af("fsmc.d13-d15", types.PortD, types.PinRange(8, 10)),
	af("fsmc.a0-a9", types.PortF, types.PinRange(0, 5)|types.PinRange(12, 15)),
	af("fsmc.a10-a15", types.PortG, types.PinRange(0, 5)),
	af("fsmc.a16-a18", types.PortD, types.PinRange(11, 13)),
	af("fsmc.noe-nwe", types.PortD, types.Pins(4, 5)),
	af("fsmc.nbl0-nbl1", types.PortE, types.Pins(0, 1)),
	af("fsmc.ne1", types.PortD, types.Pins(7)),
	af("fsmc.ne2", types.PortG, types.Pins(9)),
	af("fsmc.ne3", types.PortG, types.Pins(10)),
	af("fsmc.ne4", types.PortG, types.Pins(12)),
}

// Reset and power lines, latched in their holding state.
var resetLines = []types.SignalGroup{
	out(GroupSDPower, types.PortC, 6, gpio.High), // card powered down
	out(GroupDM9000, types.PortE, 5, gpio.Low),
	out(GroupLCDReset, types.PortF, 10, gpio.Low),
	out(GroupFlashReset, types.PortA, 3, gpio.Low),
}

// ResetPlan is asserted together and released in this order.
var ResetPlan = []types.DeviceResetEntry{
	{Device: "dm9000", Group: GroupDM9000, Active: gpio.Low},
	{Device: "lcd", Group: GroupLCDReset, Active: gpio.Low},
	{Device: "spi_flash", Group: GroupFlashReset, Active: gpio.Low},
	{Device: "sdcard", Group: GroupSDPower, Active: gpio.High},
}

// BrightnessGroup returns the backlight control line for a wiring variant,
// held off.
func BrightnessGroup(b types.Brightness) types.SignalGroup {
	switch b {
	case types.BrightnessPWM1:
		return out(GroupBrightness, types.PortB, 9, gpio.Low)
	case types.BrightnessPWM2:
		return out(GroupBrightness, types.PortB, 6, gpio.Low)
	default:
		return out(GroupBrightness, types.PortF, 9, gpio.Low)
	}
}

// ChipSelectGroup is the idle-high output owned by one bus device.
func ChipSelectGroup(b types.SerialDeviceBinding) types.SignalGroup {
	return out(b.Device+".cs", b.CS.Port, b.CS.Pin, gpio.High)
}

// SignalGroups is the full pin table for one set of options, in the order
// it must be applied: chip-selects first so no device sees a select edge
// while others are being reset.
func SignalGroups(opts types.Options) []types.SignalGroup {
	groups := make([]types.SignalGroup, 0, len(opts.Devices)+len(resetLines)+len(FSMC)+1)
	for _, d := range opts.Devices {
		groups = append(groups, ChipSelectGroup(d))
	}
	groups = append(groups, resetLines...)
	groups = append(groups, BrightnessGroup(opts.Brightness))
	groups = append(groups, FSMC...)
	return groups
}
