package sim

import (
	"errors"
	"sync"
	"time"

	"radioboard-go/services/board/internal/core"
	"radioboard-go/x/syncx"
)

var ErrSemaphore = errors.New("sim: semaphore pool exhausted")

// Kernel stands in for the RTOS primitives bring-up needs.
type Kernel struct {
	mu       sync.Mutex
	failLock bool
	locks    map[string]*syncx.FIFO
	console  string
}

var _ core.Kernel = (*Kernel)(nil)

func (k *Kernel) NewLock(name string) (sync.Locker, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failLock {
		return nil, ErrSemaphore
	}
	l := syncx.NewFIFO()
	k.locks[name] = l
	return l, nil
}

func (k *Kernel) SetConsole(dev string) error {
	k.mu.Lock()
	k.console = dev
	k.mu.Unlock()
	return nil
}

// Console returns the device name set as default console.
func (k *Kernel) Console() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.console
}

// Lock returns a lock created through NewLock.
func (k *Kernel) Lock(name string) (*syncx.FIFO, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[name]
	return l, ok
}

// Timer records settling delays. With RealTime set it also sleeps.
type Timer struct {
	log      *Log
	RealTime bool
}

var _ core.Settler = (*Timer)(nil)

func (t *Timer) Settle(d time.Duration) {
	t.log.add(Event{Kind: EvSettle, Dur: d})
	if t.RealTime {
		time.Sleep(d)
	}
}

// Halter records the halt instead of spinning forever.
type Halter struct {
	mu     sync.Mutex
	log    *Log
	halted bool
}

var _ core.Halter = (*Halter)(nil)

func (h *Halter) Halt() {
	h.mu.Lock()
	h.halted = true
	h.mu.Unlock()
	h.log.add(Event{Kind: EvHalt})
}

func (h *Halter) Halted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.halted
}
