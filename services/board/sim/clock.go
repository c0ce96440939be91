package sim

import (
	"errors"
	"sync"

	"radioboard-go/services/board/internal/core"
)

var ErrClockStuck = errors.New("sim: clock gate did not come up")

// Clock models the RCC gates, NVIC grouping and SysTick.
type Clock struct {
	mu      sync.Mutex
	log     *Log
	enabled map[core.Peripheral]bool
	fail    map[string]bool

	Grouping uint8
	TickHz   uint32
	SysInit  bool
}

var _ core.ClockController = (*Clock)(nil)

func (c *Clock) InitSystem() error {
	c.mu.Lock()
	c.SysInit = true
	c.mu.Unlock()
	c.log.add(Event{Kind: EvClock, Name: "sysclk"})
	return nil
}

func (c *Clock) Enable(p core.Peripheral) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[p.String()] {
		return ErrClockStuck
	}
	c.enabled[p] = true
	c.log.add(Event{Kind: EvClock, Name: p.String()})
	return nil
}

func (c *Clock) SetPriorityGrouping(bits uint8) error {
	c.mu.Lock()
	c.Grouping = bits
	c.mu.Unlock()
	return nil
}

func (c *Clock) StartTick(hz uint32) error {
	c.mu.Lock()
	c.TickHz = hz
	c.mu.Unlock()
	return nil
}

// Enabled reports whether a gate was opened.
func (c *Clock) Enabled(p core.Peripheral) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[p]
}
