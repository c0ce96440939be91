package cmd

import (
	"fmt"

	"radioboard-go/services/config"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the boot profiles built into the firmware",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range config.Profiles() {
			s, _ := config.ProfileLookup(name)
			if s == "" {
				s = "(defaults)"
			}
			fmt.Printf("%-12s %s\n", name, s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
