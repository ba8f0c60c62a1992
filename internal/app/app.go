package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abdulachik/feedamalgamator/internal/config"
	"github.com/abdulachik/feedamalgamator/internal/db"
	"github.com/abdulachik/feedamalgamator/internal/fediverse"
)

// App is the main application container holding all dependencies.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *db.Store
	HTTPClient *http.Client
	Data       *fediverse.DataAdapter

	// OAuth is nil until StartOAuth loads the app credentials.
	OAuth *fediverse.OAuthAdapter
}

// New creates a new application instance with the store migrated and a data
// adapter ready for a user session.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if _, err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		HTTPClient: httpClient,
		Data: fediverse.NewDataAdapter(fediverse.DataConfig{
			Logger:     logger,
			HTTPClient: httpClient,
		}),
	}, nil
}

// StartOAuth loads the app credentials and creates the OAuth adapter.
func (a *App) StartOAuth() error {
	if err := a.Config.ValidateForOAuth(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	oauth, err := fediverse.NewOAuthAdapter(fediverse.OAuthConfig{
		CredentialsPath: a.Config.CredentialsPath,
		Logger:          a.Logger,
		HTTPClient:      a.HTTPClient,
	})
	if err != nil {
		return err
	}

	a.OAuth = oauth
	return nil
}

// VerifyAndRecord verifies input and records the canonical domain in the store.
// A failure to record is logged, not returned.
func (a *App) VerifyAndRecord(ctx context.Context, input string) (bool, string) {
	ok, domain := a.OAuth.VerifyDomain(ctx, input)
	if !ok {
		return false, ""
	}

	if err := a.Store.UpsertInstance(ctx, domain); err != nil {
		a.Logger.Warn("failed to record instance", "domain", domain, "error", err)
	}
	return true, domain
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
