package cmd

import (
	"fmt"
	"os"
	"strconv"

	"radioboard-go/services/board/sim"
	"radioboard-go/services/config"
	"radioboard-go/types"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	bootArgs   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "boardsim",
	Short: "Run the radio board bring-up against a simulated board",
	Long: `boardsim drives the same bring-up sequence the firmware runs, on a
host-side model of the board, and shows what the hardware saw.

Examples:
  boardsim run                                   # Default board, healthy memory
  boardsim run --fault-at 0x68001234             # Inject a stuck bit
  boardsim run --boot "console=uart2 brightness=pwm1"
  boardsim run --config board.yaml --beats 3
  boardsim pins --boot "brightness=pwm2"         # Show pin ownership
  boardsim profiles                              # List built-in boot profiles`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML board file")
	rootCmd.PersistentFlags().StringVarP(&bootArgs, "boot", "b", "", "boot argument string, applied after the board file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadBoard resolves options and the simulator shape from the flags.
func loadBoard() (types.Options, sim.Config, error) {
	cfg := sim.DefaultConfig()
	opts := types.DefaultOptions()

	if configPath != "" {
		f, err := config.Load(configPath)
		if err != nil {
			return opts, cfg, err
		}
		if opts, err = f.Options(); err != nil {
			return opts, cfg, err
		}
		applySimFile(&cfg, f.Sim)
	}
	opts, err := config.ParseOptions(bootArgs, opts)
	if err != nil {
		return opts, cfg, err
	}
	if err := config.Validate(opts); err != nil {
		return opts, cfg, err
	}
	cfg.Region = opts.Region
	return opts, cfg, nil
}

func applySimFile(cfg *sim.Config, f config.SimFile) {
	if len(f.Faults) > 0 {
		cfg.Faults = make(map[uint32]byte, len(f.Faults))
		for _, ft := range f.Faults {
			cfg.Faults[ft.Addr] = ft.Flip
		}
	}
	cfg.FailLock = f.FailLock
	cfg.FailClocks = f.FailClocks
	cfg.RealTime = f.RealTime
	if len(f.Consoles) > 0 {
		cfg.Consoles = cfg.Consoles[:0:0]
		for _, c := range f.Consoles {
			cfg.Consoles = append(cfg.Consoles, types.ConsoleID(c))
		}
	}
	if len(f.Buses) > 0 {
		cfg.Buses = f.Buses
	}
}

func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return uint32(v), nil
}
