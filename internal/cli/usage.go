package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paipi-go/internal/metrics"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show server runtime statistics",
	Long: `Show server runtime statistics: per-operation call counts and timings,
token usage for the LLM operations, and the state of the name index.

Examples:
  paipi usage
  paipi usage -v`,
	RunE: runUsage,
}

func runUsage(cmd *cobra.Command, args []string) error {
	stats, err := api().Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch server stats: %w", err)
	}

	var snap metrics.Snapshot
	if err := json.Unmarshal(stats.Metrics, &snap); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}

	fmt.Printf("Server Statistics\n")
	fmt.Printf("═══════════════════════════════════════\n\n")
	fmt.Printf("Uptime: %s\n\n", (time.Duration(snap.UptimeSeconds) * time.Second).String())

	printOp("LLM generate", snap.LLMGenerate)
	printOp("LLM JSON fix", snap.LLMFix)
	printOp("Registry fetch", snap.RegistryFetch)
	printOp("DB query", snap.DBQuery)
	printOp("Search", snap.Search)

	fmt.Printf("\nName index: %s", stats.Index.Status)
	if stats.Index.PackageCount > 0 {
		fmt.Printf(", %d packages", stats.Index.PackageCount)
	}
	if stats.Index.LastRefresh != nil {
		fmt.Printf(", refreshed %s", stats.Index.LastRefresh.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()

	return nil
}

func printOp(label string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	fmt.Printf("%-15s %5d calls, avg %7.1fms (min %dms, max %dms)\n",
		label, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if verbose && op.TotalInputTokens != nil && op.TotalOutputTokens != nil {
		fmt.Printf("%-15s       tokens in %d, out %d\n", "", *op.TotalInputTokens, *op.TotalOutputTokens)
	}
}
