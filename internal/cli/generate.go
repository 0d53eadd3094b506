package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paipi-go/internal/models"
)

var (
	generateReadme      string
	generateDescription string
	generateOut         string
)

var generateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate an installable package from a README",
	Long: `Generate an installable Python package implementing a README.

The README can come from a file or from the server's readme cache. The
server runs the generation inside a Docker container and returns a ZIP
archive; repeated requests for the same name replay the cached archive.

Examples:
  paipi generate quantumsort
  paipi generate quantumsort --readme README.md --out quantumsort.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateReadme, "readme", "", "README markdown file (default: server readme cache)")
	generateCmd.Flags().StringVar(&generateDescription, "description", "", "short package description")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "output ZIP path (default <name>.zip)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	name := args[0]
	c := api()

	var markdown string
	if generateReadme != "" {
		raw, err := os.ReadFile(generateReadme)
		if err != nil {
			return fmt.Errorf("read readme file: %w", err)
		}
		markdown = string(raw)
	} else {
		var err error
		markdown, err = c.ReadmeByName(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("no README given and none cached for %q: %w", name, err)
		}
	}

	req := models.PackageGenerateRequest{
		ReadmeMarkdown: markdown,
		Metadata: map[string]any{
			"name":        name,
			"description": generateDescription,
		},
	}

	fmt.Fprintf(os.Stderr, "Generating %s (this can take several minutes)...\n", name)
	data, err := c.GeneratePackage(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("generate package: %w", err)
	}

	out := generateOut
	if out == "" {
		out = models.NormalizeName(name) + ".zip"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", out, len(data))
	return nil
}
