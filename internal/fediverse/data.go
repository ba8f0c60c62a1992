package fediverse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abdulachik/feedamalgamator/internal/retry"
)

// Entry is a timeline item with the provider's object shape removed.
type Entry map[string]any

// DataAdapter serves timeline data for one authenticated user session.
type DataAdapter struct {
	logger        *slog.Logger
	newUserClient UserClientFactory
	userClient    UserClient
}

// DataConfig holds configuration for the data adapter.
type DataConfig struct {
	Logger        *slog.Logger
	HTTPClient    *http.Client
	NewUserClient UserClientFactory // defaults to NewMastodonUserClientFactory
}

// NewDataAdapter creates a data adapter with no session.
func NewDataAdapter(cfg DataConfig) *DataAdapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	newUserClient := cfg.NewUserClient
	if newUserClient == nil {
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{
				Timeout: 30 * time.Second,
			}
		}
		newUserClient = NewMastodonUserClientFactory(httpClient)
	}

	return &DataAdapter{
		logger:        logger,
		newUserClient: newUserClient,
	}
}

// StartUserClient opens a session for the user owning accessToken. The token
// is checked by reading one item from the home timeline; the session is only
// kept when that succeeds.
func (d *DataAdapter) StartUserClient(ctx context.Context, domain, accessToken string) error {
	d.logger.Info("starting user api client", "domain", domain)

	client, err := d.newUserClient(domain, accessToken)
	if err != nil {
		d.logger.Error("failed to build user client", "domain", domain, "error", err)
		return fmt.Errorf("%w: start user client: %w", ErrConnection, err)
	}

	// One post is enough to tell whether the token is accepted
	if _, err := client.Timeline(ctx, "home", 1); err != nil {
		if isRejected(err) {
			d.logger.Error("access token was rejected", "domain", domain, "error", err)
			return fmt.Errorf("%w: access token rejected: %w", ErrInvalidInput, err)
		}
		d.logger.Error("failed to start user client", "domain", domain, "error", err)
		return fmt.Errorf("%w: start user client: %w", ErrConnection, err)
	}

	d.userClient = client
	d.logger.Info("started user api client", "domain", domain)
	return nil
}

// Started reports whether a validated session is held.
func (d *DataAdapter) Started() bool {
	return d.userClient != nil
}

// Timeline fetches up to count items from the named timeline, trying up to
// tries times. Either every item is returned or none is.
func (d *DataAdapter) Timeline(ctx context.Context, name string, count, tries int) ([]Entry, error) {
	if d.userClient == nil {
		panic("fediverse: user client has not been started")
	}

	var entries []Entry
	err := retry.Do(ctx, tries, func(ctx context.Context) error {
		statuses, err := d.userClient.Timeline(ctx, name, count)
		if err != nil {
			return err
		}
		normalized, err := normalize(statuses)
		if err != nil {
			return err
		}
		entries = normalized
		return nil
	},
		retry.WithLogger(d.logger),
		retry.WithOperation("get timeline data"),
		retry.WithTerminal(isRejected),
	)
	if err != nil {
		if isRejected(err) {
			d.logger.Error("timeline request rejected", "timeline", name, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	d.logger.Info("obtained timeline data", "timeline", name, "count", len(entries))
	return entries, nil
}

// normalize converts provider objects into open records holding the same
// key/value pairs as their JSON form. Numbers are kept as json.Number so
// integers survive unchanged.
func normalize[T any](items []T) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal timeline item: %w", err)
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()

		var entry Entry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("unmarshal timeline item: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
