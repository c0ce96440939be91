// services/board/internal/platform/platform_stm32f103.go
//go:build stm32f103

package platform

import (
	"device/arm"
	"device/stm32"
	"machine"
	"runtime/volatile"
	"sync"
	"time"
	"unsafe"

	"radioboard-go/errcode"
	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"
	"radioboard-go/x/syncx"

	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/delay"
)

// New binds the capability interfaces to the STM32F103 registers.
func New() core.Hardware {
	return core.Hardware{
		Clock:    rcc{},
		Pins:     gpioPorts{},
		Memory:   fsmc{},
		MemBus:   memBus{},
		Kernel:   &kernel{},
		Consoles: uarts{},
		SPI:      &spiFactory{},
		Settle:   settler{},
		Halt:     halter{},
		ID:       uid{},
	}
}

// ----------------------------- clocks ----------------------------------------

type rcc struct{}

var apb2Bits = map[core.Peripheral]uint32{
	core.PeriphGPIOA: stm32.RCC_APB2ENR_IOPAEN,
	core.PeriphGPIOB: stm32.RCC_APB2ENR_IOPBEN,
	core.PeriphGPIOC: stm32.RCC_APB2ENR_IOPCEN,
	core.PeriphGPIOD: stm32.RCC_APB2ENR_IOPDEN,
	core.PeriphGPIOE: stm32.RCC_APB2ENR_IOPEEN,
	core.PeriphGPIOF: stm32.RCC_APB2ENR_IOPFEN,
	core.PeriphGPIOG: stm32.RCC_APB2ENR_IOPGEN,
	core.PeriphSPI1:  stm32.RCC_APB2ENR_SPI1EN,
}

// The runtime has already switched to the 72 MHz PLL before main.
func (rcc) InitSystem() error {
	if !stm32.RCC.CR.HasBits(stm32.RCC_CR_PLLRDY) {
		return errcode.ClockFault
	}
	return nil
}

func (rcc) Enable(p core.Peripheral) error {
	if p == core.PeriphFSMC {
		stm32.RCC.AHBENR.SetBits(stm32.RCC_AHBENR_FSMCEN)
		if !stm32.RCC.AHBENR.HasBits(stm32.RCC_AHBENR_FSMCEN) {
			return errcode.ClockFault
		}
		return nil
	}
	bit, ok := apb2Bits[p]
	if !ok {
		return errcode.Unsupported
	}
	stm32.RCC.APB2ENR.SetBits(bit)
	if !stm32.RCC.APB2ENR.HasBits(bit) {
		return errcode.ClockFault
	}
	return nil
}

const aircrVectKey = 0x05FA << 16

// SetPriorityGrouping takes the number of pre-emption bits.
func (rcc) SetPriorityGrouping(bits uint8) error {
	if bits > 4 {
		return errcode.InvalidParams
	}
	prigroup := uint32(7-bits) << 8
	arm.SCB.AIRCR.Set(aircrVectKey | prigroup)
	return nil
}

// The runtime owns SysTick and runs it at its own rate; only the request
// is checked.
func (rcc) StartTick(hz uint32) error {
	if hz == 0 {
		return errcode.InvalidParams
	}
	return nil
}

// ----------------------------- GPIO ------------------------------------------

type gpioPorts struct{}

func port(p types.Port) *stm32.GPIO_Type {
	switch p {
	case types.PortA:
		return stm32.GPIOA
	case types.PortB:
		return stm32.GPIOB
	case types.PortC:
		return stm32.GPIOC
	case types.PortD:
		return stm32.GPIOD
	case types.PortE:
		return stm32.GPIOE
	case types.PortF:
		return stm32.GPIOF
	case types.PortG:
		return stm32.GPIOG
	}
	return nil
}

// cnfMode is the 4-bit CNF:MODE nibble of CRL/CRH.
func cnfMode(mode types.Mode, speed types.Speed) (nib uint32, pullUp bool) {
	var ms uint32
	switch {
	case speed >= types.Speed50MHz:
		ms = 0b11
	case speed >= types.Speed10MHz:
		ms = 0b01
	default:
		ms = 0b10
	}
	switch mode {
	case types.ModeOutputPushPull:
		return ms, false
	case types.ModeAltPushPull:
		return 0b10<<2 | ms, false
	case types.ModeInputPullUp:
		return 0b10 << 2, true
	default:
		return 0b01 << 2, false // floating input
	}
}

func (gpioPorts) Configure(p types.Port, mask types.PinMask, mode types.Mode, speed types.Speed) error {
	g := port(p)
	if g == nil {
		return errcode.UnknownPin
	}
	nib, pullUp := cnfMode(mode, speed)
	mask.Each(func(pin uint8) {
		reg := &g.CRL
		pos := uint32(pin) * 4
		if pin >= 8 {
			reg = &g.CRH
			pos = uint32(pin-8) * 4
		}
		reg.ReplaceBits(nib, 0xF, uint8(pos))
	})
	if pullUp {
		g.BSRR.Set(uint32(mask))
	}
	return nil
}

func (gpioPorts) Write(p types.Port, mask types.PinMask, level gpio.Level) {
	g := port(p)
	if g == nil {
		return
	}
	if level == gpio.High {
		g.BSRR.Set(uint32(mask))
	} else {
		g.BRR.Set(uint32(mask))
	}
}

func (gpioPorts) Read(p types.Port, pin uint8) gpio.Level {
	g := port(p)
	if g == nil {
		return gpio.Low
	}
	return gpio.Level(g.IDR.Get()&(1<<pin) != 0)
}

// ----------------------------- FSMC ------------------------------------------

type fsmc struct{}

const (
	bcrMBKEN  = 1 << 0
	bcrMWID16 = 1 << 4
	bcrWREN   = 1 << 12
)

func bank(n uint8) (bcr, btr *volatile.Register32) {
	switch n {
	case 1:
		return &stm32.FSMC.BCR1, &stm32.FSMC.BTR1
	case 2:
		return &stm32.FSMC.BCR2, &stm32.FSMC.BTR2
	case 3:
		return &stm32.FSMC.BCR3, &stm32.FSMC.BTR3
	case 4:
		return &stm32.FSMC.BCR4, &stm32.FSMC.BTR4
	}
	return nil, nil
}

func (fsmc) Configure(t types.SRAMTiming) error {
	bcr, btr := bank(t.Bank)
	if bcr == nil {
		return errcode.InvalidParams
	}
	btr.Set(uint32(t.AddressSetup&0xF) |
		uint32(t.AddressHold&0xF)<<4 |
		uint32(t.DataSetup)<<8 |
		uint32(t.BusTurnaround&0xF)<<16)
	ctl := uint32(bcrWREN)
	if t.DataWidth == 16 {
		ctl |= bcrMWID16
	}
	bcr.Set(ctl)
	return nil
}

func (fsmc) Enable(n uint8) error {
	bcr, _ := bank(n)
	if bcr == nil {
		return errcode.InvalidParams
	}
	bcr.SetBits(bcrMBKEN)
	return nil
}

type memBus struct{}

func (memBus) Store(addr uint32, v byte) {
	volatile.StoreUint8((*uint8)(unsafe.Pointer(uintptr(addr))), v)
}

func (memBus) Load(addr uint32) byte {
	return volatile.LoadUint8((*uint8)(unsafe.Pointer(uintptr(addr))))
}

// ----------------------------- kernel ----------------------------------------

// kernel hands out FIFO locks and switches machine.Serial.
type kernel struct {
	mu sync.Mutex
}

func (k *kernel) NewLock(string) (sync.Locker, error) { return syncx.NewFIFO(), nil }

func (k *kernel) SetConsole(dev string) error {
	u := uartByID(types.ConsoleID(dev))
	if u == nil {
		return errcode.Unsupported
	}
	k.mu.Lock()
	machine.Serial = u
	k.mu.Unlock()
	return nil
}

// ----------------------------- UART / SPI ------------------------------------

const consoleBaud = 115200

func uartByID(id types.ConsoleID) *machine.UART {
	switch id {
	case types.ConsoleUART1:
		return machine.UART1
	case types.ConsoleUART2:
		return machine.UART2
	}
	return nil
}

type uarts struct{}

func (uarts) Open(id types.ConsoleID) (drivers.UART, error) {
	u := uartByID(id)
	if u == nil {
		return nil, errcode.Unsupported
	}
	if err := u.Configure(machine.UARTConfig{BaudRate: consoleBaud}); err != nil {
		return nil, err
	}
	return u, nil
}

const spiDefaultHz = 4_000_000

// spiEngine adds baud reconfiguration to the SPI peripheral.
type spiEngine struct {
	*machine.SPI
}

func (s spiEngine) SetFrequency(hz uint32) error {
	_, actual := core.SPIBaud(core.PCLK2Hz, hz)
	return s.Configure(machine.SPIConfig{Frequency: actual, Mode: 0})
}

type spiFactory struct {
	once sync.Once
	spi1 drivers.SPI
}

func (f *spiFactory) ByID(id string) (drivers.SPI, bool) {
	if id != types.DefaultBus {
		return nil, false
	}
	f.once.Do(func() {
		stm32.RCC.APB2ENR.SetBits(stm32.RCC_APB2ENR_SPI1EN)
		e := spiEngine{machine.SPI0}
		if err := e.SetFrequency(spiDefaultHz); err == nil {
			f.spi1 = e
		}
	})
	return f.spi1, f.spi1 != nil
}

// ----------------------------- misc ------------------------------------------

type settler struct{}

// delay.Sleep spins precisely; longer waits yield to the scheduler.
func (settler) Settle(d time.Duration) {
	if d < time.Millisecond {
		delay.Sleep(d)
		return
	}
	time.Sleep(d)
}

type halter struct{}

func (halter) Halt() {
	arm.DisableInterrupts()
	for {
		arm.Asm("wfi")
	}
}

const uidBase = 0x1FFFF7E8

type uid struct{}

func (uid) UniqueID() (id [12]byte) {
	for i := range id {
		id[i] = volatile.LoadUint8((*uint8)(unsafe.Pointer(uintptr(uidBase + i))))
	}
	return id
}
