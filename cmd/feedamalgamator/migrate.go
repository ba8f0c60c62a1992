package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdulachik/feedamalgamator/internal/config"
	"github.com/abdulachik/feedamalgamator/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the instance registry",
	Long: `Apply pending schema migrations to the instance registry and report what changed.

Other commands bring the schema up to date on their own; migrate does it
explicitly and prints the migrations it applied.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Open the store directly: app.New would migrate before we could report.
	slog.Debug("opening instance registry", "path", cfg.DatabasePath)
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	ran, err := store.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	count, err := store.CountInstances(ctx)
	if err != nil {
		return fmt.Errorf("count instances: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(ran) == 0 {
		fmt.Fprintf(out, "Registry %s is up to date.\n", cfg.DatabasePath)
	}
	for _, file := range ran {
		fmt.Fprintf(out, "Applied %s\n", file)
	}
	fmt.Fprintf(out, "%d verified instances.\n", count)
	return nil
}
