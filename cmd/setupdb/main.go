// Command setupdb creates the outfits table and its indexes for the
// configured backend and prints the current row statistics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"outfit-db-api/internal/config"
	"outfit-db-api/internal/repository"
	"outfit-db-api/pkg/logging"
)

type options struct {
	dbType  string
	dbPath  string
	format  string
	verbose bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "setupdb",
		Short: "Create the outfits schema",
		Long: `Open the outfit database configured through DB_* environment variables,
create the outfits table and indexes if missing, and print table statistics.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dbType, "type", "", "database type (sqlite|postgres|mysql), overrides DB_TYPE")
	cmd.Flags().StringVar(&opts.dbPath, "path", "", "SQLite file path, overrides DB_PATH")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (json|text)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log connection details")

	return cmd
}

func runSetup(cmd *cobra.Command, opts *options) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: must be one of [text json]", opts.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.dbType != "" {
		cfg.Database.Type = opts.dbType
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	// Re-validate so flag values are normalized like DB_TYPE.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger := zap.NewNop()
	if opts.verbose {
		logger = logging.Must(logging.Options{Development: true, Debug: true})
	}
	defer func() { _ = logger.Sync() }()

	// Opening the repository applies the schema.
	repo, err := repository.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("set up %s database: %w", cfg.Database.Type, err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	stats, err := repo.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"ready": true,
			"stats": stats,
		})
	}

	fmt.Fprintf(out, "outfits schema ready (%s)\n", cfg.Database.Type)
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-18s %v\n", k, stats[k])
	}
	return nil
}
