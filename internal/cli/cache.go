package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cacheClearYes bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the server caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache record counts",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached searches, READMEs and packages",
	Long: `Drop all cached searches, READMEs and generated packages.

The package-name index is kept; use 'paipi index update' to rebuild it.`,
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolVarP(&cacheClearYes, "yes", "y", false, "skip confirmation")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	stats, err := api().CacheStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch cache stats: %w", err)
	}

	fmt.Printf("Searches: %d\n", stats.Searches)
	fmt.Printf("READMEs:  %d\n", stats.Readmes)
	fmt.Printf("Packages: %d\n", stats.Packages)
	fmt.Printf("Dir:      %s\n", stats.CacheDir)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if !cacheClearYes {
		fmt.Print("Clear all caches? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := api().CacheClear(cmd.Context()); err != nil {
		return fmt.Errorf("clear caches: %w", err)
	}
	fmt.Println("Caches cleared.")
	return nil
}
