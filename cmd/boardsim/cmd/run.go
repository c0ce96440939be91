package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"radioboard-go/services/board"
	"radioboard-go/services/board/sim"
	"radioboard-go/services/heartbeat"

	"github.com/spf13/cobra"
)

var (
	faultAt  []string
	faultBit uint8
	failLock bool
	beats    int
	interval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bring the simulated board up and print its console",
	Long: `Run the full bring-up: clocks and pins, device reset, external memory,
memory self-test, bus device attach and console hand-off. The console
output is printed verbatim, followed by the state trace.

A memory fault halts the board exactly as the firmware would; the command
then exits non-zero.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&faultAt, "fault-at", nil, "memory addresses that read back corrupted (hex)")
	runCmd.Flags().Uint8Var(&faultBit, "flip", 0x01, "bits flipped at each fault address")
	runCmd.Flags().BoolVar(&failLock, "fail-lock", false, "kernel refuses to create the bus lock")
	runCmd.Flags().IntVar(&beats, "beats", 0, "heartbeats to run after bring-up")
	runCmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "heartbeat interval")
}

func runRun(cmd *cobra.Command, args []string) error {
	opts, cfg, err := loadBoard()
	if err != nil {
		return err
	}
	for _, s := range faultAt {
		addr, err := parseAddr(s)
		if err != nil {
			return err
		}
		if cfg.Faults == nil {
			cfg.Faults = make(map[uint32]byte)
		}
		cfg.Faults[addr] = faultBit
	}
	if failLock {
		cfg.FailLock = true
	}

	b := sim.New(cfg)
	b.WatchBindings(opts.Devices)

	var entry board.EntryFunc
	if beats > 0 {
		hb := &heartbeat.Service{Interval: interval, Beats: beats}
		entry = hb.Run
	}

	start := time.Now()
	seq := board.New(b.Hardware(), opts, entry)
	if verbose {
		seq.OnProgress(func(pass int, done uint32) {
			if done%(512<<10) == 0 {
				log.Printf("memtest %s pass: %d KiB", [...]string{"write", "read"}[pass], done>>10)
			}
		})
	}
	_, runErr := seq.Run(context.Background())

	if con := b.Consoles.Get(opts.Console); con != nil {
		fmt.Print(con.String())
		fmt.Println()
	}
	if verbose {
		fmt.Printf("trace: %v\n", seq.Trace())
		fmt.Printf("memory: %d stores, %d loads\n", b.SRAM.Stores, b.SRAM.Loads)
		fmt.Printf("settles: %d, elapsed %v\n", len(b.Log.Filter(sim.EvSettle)), time.Since(start).Round(time.Millisecond))
	}
	if b.Halter.Halted() {
		log.Printf("board halted in %v", seq.State())
	}
	if runErr != nil {
		return fmt.Errorf("bring-up failed: %w", runErr)
	}
	if seq.State() != board.ConsoleReady {
		return errors.New("bring-up did not reach ConsoleReady")
	}
	return nil
}
