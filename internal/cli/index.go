package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/paipi-go/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the local PyPI package-name index",
}

var indexUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the PyPI simple index and rebuild the name index",
	Long: `Download the full PyPI simple index (~600k names) and replace the stored
name index. Searches keep serving the old index until the new one is
fully stored.`,
	RunE: runIndexUpdate,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the freshness of the name index",
	RunE:  runIndexStatus,
}

func init() {
	indexCmd.AddCommand(indexUpdateCmd)
	indexCmd.AddCommand(indexStatusCmd)
}

func runIndexUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dbClient, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer dbClient.Close(ctx)

	oracle := index.New(dbClient, nil)

	var count int
	if term.IsTerminal(int(os.Stdout.Fd())) {
		count, err = runRefreshProgress(ctx, oracle)
	} else {
		count, err = runRefreshPlain(ctx, oracle)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("refresh index: %w", err)
	}

	fmt.Printf("Index updated: %d packages\n", count)
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dbClient, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer dbClient.Close(ctx)

	oracle := index.New(dbClient, nil)
	state, err := oracle.Check(ctx)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}

	fmt.Printf("Status:   %s\n", state.Status)
	switch state.Status {
	case index.StatusMissing:
		fmt.Println("Run 'paipi index update' to download the package-name index.")
	default:
		fmt.Printf("Packages: %d\n", state.PackageCount)
		fmt.Printf("Updated:  %s\n", state.LastRefresh.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// runRefreshPlain refreshes without the interactive UI, printing one line
// per progress stage change. Used when stdout is not a terminal.
func runRefreshPlain(ctx context.Context, oracle *index.Oracle) (int, error) {
	lastStage := ""
	return oracle.Refresh(ctx, func(stage string, done, total int64) {
		if stage != lastStage {
			lastStage = stage
			fmt.Printf("%s...\n", stage)
		}
	})
}
