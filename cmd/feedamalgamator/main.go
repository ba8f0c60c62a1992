package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/abdulachik/feedamalgamator/internal/app"
	"github.com/abdulachik/feedamalgamator/internal/config"
	"github.com/abdulachik/feedamalgamator/internal/fediverse"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "feedamalgamator",
	Short: "Connect Mastodon accounts and read their timelines",
	Long: `Feed Amalgamator authorizes itself against a user's Mastodon server
and reads timelines on the user's behalf.`,
	SilenceUsage: true,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// openApp loads and validates configuration and builds the application.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return app.New(ctx, cfg, slog.Default())
}

// describe prefixes adapter errors with what the user should do about them.
func describe(err error) error {
	switch {
	case errors.Is(err, fediverse.ErrInvalidInput):
		return fmt.Errorf("the server rejected the input, try again with a different value: %w", err)
	case errors.Is(err, fediverse.ErrConnection):
		return fmt.Errorf("could not talk to the server, try again later: %w", err)
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
