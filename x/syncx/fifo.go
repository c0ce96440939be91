package syncx

import "sync"

// FIFO is a mutual-exclusion lock that grants ownership in request order.
// Unlock hands the lock straight to the oldest waiter, so a releasing
// goroutine can never barge back in ahead of the queue.
// The zero value is an unlocked FIFO.
type FIFO struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

var _ sync.Locker = (*FIFO)(nil)

func NewFIFO() *FIFO { return &FIFO{} }

func (l *FIFO) Lock() {
	l.mu.Lock()
	if !l.locked {
		l.locked = true
		l.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()
	<-ch
}

// TryLock takes the lock only when nobody holds it.
func (l *FIFO) TryLock() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return false
	}
	l.locked = true
	return true
}

func (l *FIFO) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.locked {
		panic("syncx: unlock of unlocked FIFO")
	}
	if len(l.waiters) == 0 {
		l.locked = false
		return
	}
	next := l.waiters[0]
	copy(l.waiters, l.waiters[1:])
	l.waiters[len(l.waiters)-1] = nil
	l.waiters = l.waiters[:len(l.waiters)-1]
	close(next)
}

// Waiting reports how many goroutines are queued.
func (l *FIFO) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}
