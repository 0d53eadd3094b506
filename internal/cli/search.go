package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchSize int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for Python packages",
	Long: `Search for Python packages matching a query.

Results mix real PyPI packages (marked with their live version) with
AI-fabricated ones that do not exist yet. Repeating a query replays the
cached result set.

Examples:
  paipi search "http client"
  paipi search "async orm" --size 5
  paipi search "web scraping" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchSize, "size", "n", 0, "max results (server default 20)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the raw JSON response")
}

func runSearch(cmd *cobra.Command, args []string) error {
	resp, err := api().Search(cmd.Context(), args[0], searchSize)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if cached, ok := resp.Info["cached"].(bool); ok && cached {
		fmt.Println("(served from cache)")
	}
	fmt.Printf("Found %d results:\n\n", len(resp.Results))
	for i, r := range resp.Results {
		tag := "fabricated"
		if r.PackageExists {
			tag = "on PyPI"
		}
		fmt.Printf("%d. %s %s [%s]\n", i+1, r.Name, r.Version, tag)
		if r.Summary != "" {
			fmt.Printf("   %s\n", r.Summary)
		}
		if verbose {
			if r.License != "" {
				fmt.Printf("   License: %s\n", r.License)
			}
			if r.HomePage != "" {
				fmt.Printf("   Homepage: %s\n", r.HomePage)
			}
			var flags []string
			if r.ReadmeCached {
				flags = append(flags, "readme cached")
			}
			if r.PackageCached {
				flags = append(flags, "package cached")
			}
			if len(flags) > 0 {
				fmt.Printf("   Cached: %s\n", strings.Join(flags, ", "))
			}
		}
		fmt.Println()
	}

	return nil
}
