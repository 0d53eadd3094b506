// Package cli provides the command-line interface for paipi.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paipi-go/internal/client"
	"github.com/raphaelgruber/paipi-go/internal/config"
	"github.com/raphaelgruber/paipi-go/internal/db"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "paipi",
	Short: "AI-driven PyPI search proxy",
	Long: `Paipi answers PyPI-style package searches with a mix of real packages and
AI-fabricated ones, drafts READMEs for packages that do not exist yet, and
can generate an installable library from such a README.

Most commands talk to a running paipi server (see 'paipi-server'). The
'index' commands manage the local package-name index directly against
SurrealDB.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return nil
	},
}

// api returns a REST client for the configured server.
func api() *client.Client {
	return client.New(serverURL)
}

// connectDB opens a SurrealDB connection for the index commands, which
// operate on the database directly instead of going through the server.
func connectDB(ctx context.Context) (*db.Client, error) {
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := dbClient.InitSchema(ctx); err != nil {
		dbClient.Close(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return dbClient, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "paipi server URL (default $PAIPI_SERVER_URL or http://localhost:8000)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(readmeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(availabilityCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(usageCmd)
}
