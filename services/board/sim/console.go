package sim

import (
	"bytes"
	"errors"
	"sync"

	"radioboard-go/services/board/internal/core"
	"radioboard-go/types"

	"tinygo.org/x/drivers"
)

var ErrNoUART = errors.New("sim: uart not present")

// Console captures everything written to one UART.
type Console struct {
	mu  sync.Mutex
	id  types.ConsoleID
	out bytes.Buffer
	in  bytes.Buffer
}

var _ drivers.UART = (*Console)(nil)

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *Console) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.in.Len() == 0 {
		return 0, nil
	}
	return c.in.Read(p)
}

func (c *Console) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in.Len()
}

// Feed queues bytes as if typed on the terminal.
func (c *Console) Feed(p []byte) {
	c.mu.Lock()
	c.in.Write(p)
	c.mu.Unlock()
}

// String returns all output so far.
func (c *Console) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

// Consoles hands out simulated UARTs.
type Consoles struct {
	mu      sync.Mutex
	log     *Log
	present map[types.ConsoleID]bool
	opened  map[types.ConsoleID]*Console
}

var _ core.ConsoleFactory = (*Consoles)(nil)

func (c *Consoles) Open(id types.ConsoleID) (drivers.UART, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.present[id] {
		return nil, ErrNoUART
	}
	con, ok := c.opened[id]
	if !ok {
		con = &Console{id: id}
		c.opened[id] = con
	}
	c.log.add(Event{Kind: EvConsole, Name: string(id)})
	return con, nil
}

// Get returns an opened console, or nil.
func (c *Consoles) Get(id types.ConsoleID) *Console {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened[id]
}
