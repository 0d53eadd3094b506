package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	entries, err := api().History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No searches yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %3d results  %q\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.ResultCount, e.OriginalQuery)
	}
	return nil
}
