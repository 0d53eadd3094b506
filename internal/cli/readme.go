package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/paipi-go/internal/models"
)

var (
	readmeFile    string
	readmeSummary string
	readmeOut     string
)

var readmeCmd = &cobra.Command{
	Use:   "readme <name>",
	Short: "Draft a README for a package",
	Long: `Draft a README for a package that may not exist yet.

Request metadata can be given as a YAML file; without one, the name and an
optional summary are enough. Identical requests replay the cached README.
When the name is given without --file and the server already has a README
cached for it, that cached copy is returned.

Examples:
  paipi readme quantumsort --summary "sorting with quantum vibes"
  paipi readme mytool --file mytool.yaml
  paipi readme mytool --file mytool.yaml --out README.md`,
	Args: cobra.ExactArgs(1),
	RunE: runReadme,
}

func init() {
	readmeCmd.Flags().StringVarP(&readmeFile, "file", "f", "", "YAML file with request metadata")
	readmeCmd.Flags().StringVar(&readmeSummary, "summary", "", "one-line package summary")
	readmeCmd.Flags().StringVarP(&readmeOut, "out", "o", "", "write the markdown to a file instead of stdout")
}

func runReadme(cmd *cobra.Command, args []string) error {
	req := models.ReadmeRequest{Name: args[0], Summary: readmeSummary}

	if readmeFile != "" {
		raw, err := os.ReadFile(readmeFile)
		if err != nil {
			return fmt.Errorf("read request file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("parse request file: %w", err)
		}
		if req.Name == "" {
			req.Name = args[0]
		}
	}

	c := api()
	var markdown string
	if readmeFile == "" && readmeSummary == "" {
		if cached, err := c.ReadmeByName(cmd.Context(), req.Name); err == nil {
			markdown = cached
		}
	}
	if markdown == "" {
		var err error
		markdown, err = c.Readme(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("draft readme: %w", err)
		}
	}

	if readmeOut != "" {
		if err := os.WriteFile(readmeOut, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", readmeOut, err)
		}
		fmt.Printf("Wrote %s\n", readmeOut)
		return nil
	}

	fmt.Println(markdown)
	return nil
}
