package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var availabilityCmd = &cobra.Command{
	Use:   "availability <name>...",
	Short: "Check whether package names are taken on PyPI",
	Long: `Check package names against the local PyPI name index.

Examples:
  paipi availability requests
  paipi availability quantumsort flask my-new-lib`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAvailability,
}

func runAvailability(cmd *cobra.Command, args []string) error {
	results, err := api().AvailabilityBatch(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}

	for _, name := range args {
		if results[name] {
			fmt.Printf("%-30s taken\n", name)
		} else {
			fmt.Printf("%-30s available\n", name)
		}
	}
	return nil
}
