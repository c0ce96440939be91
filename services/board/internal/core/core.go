package core

import (
	"sync"
	"time"

	"radioboard-go/types"

	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers"
)

// ---- Clocks and interrupts ----

// Peripheral names a clock gate.
type Peripheral uint8

const (
	PeriphGPIOA Peripheral = iota
	PeriphGPIOB
	PeriphGPIOC
	PeriphGPIOD
	PeriphGPIOE
	PeriphGPIOF
	PeriphGPIOG
	PeriphFSMC
	PeriphSPI1
)

var periphNames = [...]string{"GPIOA", "GPIOB", "GPIOC", "GPIOD", "GPIOE", "GPIOF", "GPIOG", "FSMC", "SPI1"}

func (p Peripheral) String() string {
	if int(p) < len(periphNames) {
		return periphNames[p]
	}
	return "unknown"
}

// GPIOClock returns the clock gate for a port.
func GPIOClock(p types.Port) Peripheral { return PeriphGPIOA + Peripheral(p) }

type ClockController interface {
	// InitSystem brings the core clock tree to its operating frequency.
	InitSystem() error
	Enable(p Peripheral) error
	// SetPriorityGrouping splits NVIC priority bits; 2 means 2 bits
	// pre-emption, 2 bits sub-priority.
	SetPriorityGrouping(preemptBits uint8) error
	StartTick(hz uint32) error
}

// ---- Pins ----

// PinController programs port configuration and output latches. Callers
// enable the port clock first.
type PinController interface {
	Configure(port types.Port, mask types.PinMask, mode types.Mode, speed types.Speed) error
	Write(port types.Port, mask types.PinMask, level gpio.Level)
	Read(port types.Port, pin uint8) gpio.Level
}

// ---- External memory ----

type MemoryController interface {
	// Configure programs the bank timing registers for the attached part.
	Configure(t types.SRAMTiming) error
	// Enable turns the bank on; the region becomes addressable.
	Enable(bank uint8) error
}

// MemoryBus is byte access to the memory-mapped region.
type MemoryBus interface {
	Store(addr uint32, v byte)
	Load(addr uint32) byte
}

// ---- Kernel collaborators ----

type Kernel interface {
	// NewLock creates the mutual-exclusion primitive guarding one bus.
	NewLock(name string) (sync.Locker, error)
	// SetConsole makes dev the default text console.
	SetConsole(dev string) error
}

// ConsoleFactory opens the UART backing a console.
type ConsoleFactory interface {
	Open(id types.ConsoleID) (drivers.UART, error)
}

// SPIFactory supplies configured transfer engines by bus name.
type SPIFactory interface {
	ByID(id string) (drivers.SPI, bool)
}

// Settler waits for signals to stabilise without a scheduler.
type Settler interface {
	Settle(d time.Duration)
}

// Halter stops the system permanently. On hardware Halt never returns.
type Halter interface {
	Halt()
}

// IDReader returns the 12-byte factory unique device identifier.
type IDReader interface {
	UniqueID() [12]byte
}

// Hardware is everything bring-up needs from the platform.
type Hardware struct {
	Clock    ClockController
	Pins     PinController
	Memory   MemoryController
	MemBus   MemoryBus
	Kernel   Kernel
	Consoles ConsoleFactory
	SPI      SPIFactory
	Settle   Settler
	Halt     Halter
	ID       IDReader
}
