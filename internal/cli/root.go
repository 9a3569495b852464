// Package cli implements the issuereg CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/issuereg/internal/config"
	"github.com/rcliao/issuereg/internal/store"
)

var dbPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "issuereg",
	Short: "Issue register maintained from meeting transcripts",
	Long: "issuereg keeps a persistent issue register and folds extraction output\n" +
		"from meeting transcripts into it: similarity-narrowed candidate selection,\n" +
		"append-only narrative deltas with full audit history, and ordered action items.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $ISSUEREG_DB or ~/.issuereg/register.db)")
}

func loadConfig() config.Config {
	cfg := config.Load()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}

func openStore(cfg config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
