package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"radioboard-go/services/board"
	"radioboard-go/services/board/sim"
	"radioboard-go/types"

	"github.com/spf13/cobra"
)

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Show which function owns every configured pin",
	RunE:  runPins,
}

func init() {
	rootCmd.AddCommand(pinsCmd)
}

func runPins(cmd *cobra.Command, args []string) error {
	opts, cfg, err := loadBoard()
	if err != nil {
		return err
	}
	b := sim.New(cfg)
	bc, err := board.New(b.Hardware(), opts, nil).Run(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PIN\tOWNER\tMODE\tLEVEL")
	for _, c := range bc.Pins.Claims() {
		mode, _, _ := b.Pins.Mode(c.Port, c.Pin)
		level := "-"
		if mode.IsOutput() {
			level = b.Pins.Read(c.Port, c.Pin).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", types.PinName(c.Port, c.Pin), c.Owner, mode, level)
	}
	return w.Flush()
}
