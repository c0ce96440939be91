package types

import "time"

// ConsoleID selects the UART that becomes the kernel's text console.
type ConsoleID string

const (
	ConsoleUART1 ConsoleID = "uart1"
	ConsoleUART2 ConsoleID = "uart2"
	ConsoleUART3 ConsoleID = "uart3"
)

func (c ConsoleID) Valid() bool {
	switch c {
	case ConsoleUART1, ConsoleUART2, ConsoleUART3:
		return true
	}
	return false
}

// Brightness selects how the LCD backlight control is wired.
type Brightness string

const (
	BrightnessGPIO Brightness = "gpio" // PF9, plain output
	BrightnessPWM1 Brightness = "pwm1" // PB9, timer channel
	BrightnessPWM2 Brightness = "pwm2" // PB6, timer channel
)

func (b Brightness) Valid() bool {
	switch b {
	case BrightnessGPIO, BrightnessPWM1, BrightnessPWM2:
		return true
	}
	return false
}

// Options is the hardware variant record chosen once before bring-up.
type Options struct {
	Console    ConsoleID
	Brightness Brightness
	Region     MemoryRegion
	Timing     SRAMTiming
	Settle     time.Duration // reset settling delay
	TickHz     uint32
	Devices    []SerialDeviceBinding
}

const DefaultBus = "spi1"

// DefaultOptions describes the board as shipped.
func DefaultOptions() Options {
	return Options{
		Console:    ConsoleUART1,
		Brightness: BrightnessGPIO,
		Region:     MemoryRegion{Base: 0x68000000, End: 0x68200000},
		Timing: SRAMTiming{
			Bank:         3,
			DataWidth:    16,
			AddressSetup: 0,
			AddressHold:  0,
			DataSetup:    2,
		},
		Settle: 100 * time.Millisecond,
		TickHz: 100,
		Devices: []SerialDeviceBinding{
			{Device: "spi10", Bus: DefaultBus, CS: ChipSelect{Port: PortA, Pin: 4}}, // SPI flash
			{Device: "spi11", Bus: DefaultBus, CS: ChipSelect{Port: PortC, Pin: 4}}, // touch
			{Device: "spi12", Bus: DefaultBus, CS: ChipSelect{Port: PortC, Pin: 5}}, // codec
		},
	}
}
