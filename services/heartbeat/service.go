package heartbeat

import (
	"context"
	"time"

	"radioboard-go/services/board"
)

const defaultInterval = time.Second

// Service is the simplest scheduler entry: it reports the attached devices
// and any degraded bring-up steps, then writes a heartbeat line to the
// board console every Interval.
type Service struct {
	Interval time.Duration
	Beats    int // stop after this many; 0 runs until ctx ends
}

// Run matches board.EntryFunc.
func (s *Service) Run(ctx context.Context, bc *board.BoardContext) error {
	out := bc.Console
	write := func(line string) {
		if out != nil {
			_, _ = out.Write([]byte(line))
		}
	}

	for _, bus := range bc.Registry.Buses() {
		line := "Info: " + bus + ":"
		for _, d := range bc.Registry.Devices(bus) {
			line += " " + d
		}
		write(line + "\r\n")
	}
	for _, err := range bc.Degraded {
		write("Warn: " + err.Error() + "\r\n")
	}

	iv := s.Interval
	if iv <= 0 {
		iv = defaultInterval
	}
	tick := time.NewTicker(iv)
	defer tick.Stop()

	start := time.Now()
	for n := 0; s.Beats == 0 || n < s.Beats; n++ {
		select {
		case <-ctx.Done():
			write("Info: heartbeat stopping\r\n")
			return ctx.Err()
		case t := <-tick.C:
			up := time.Time{}.Add(t.Sub(start))
			write("Info: " + up.Format("15:04:05") + " Heartbeat\r\n")
		}
	}
	return nil
}
