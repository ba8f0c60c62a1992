// Package fediverse isolates the application from the Mastodon API. All calls
// made during the OAuth handshake go through OAuthAdapter; all calls made on a
// user's behalf afterwards go through DataAdapter.
package fediverse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/abdulachik/feedamalgamator/internal/config"
	"github.com/abdulachik/feedamalgamator/internal/retry"
)

// OAuthAdapter drives the authorization-code flow for one server at a time.
type OAuthAdapter struct {
	creds        config.Credentials
	logger       *slog.Logger
	httpClient   *http.Client
	newAppClient AppClientFactory
	appClient    AppClient
}

// OAuthConfig holds configuration for the OAuth adapter.
type OAuthConfig struct {
	CredentialsPath string
	Logger          *slog.Logger
	HTTPClient      *http.Client
	NewAppClient    AppClientFactory // defaults to NewOAuthAppClientFactory
}

// NewOAuthAdapter loads the application's credentials and returns an adapter
// without an app client. Call StartAppClient before RedirectURL or ExchangeCode.
func NewOAuthAdapter(cfg OAuthConfig) (*OAuthAdapter, error) {
	creds, err := config.LoadCredentials(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("load app credentials: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	newAppClient := cfg.NewAppClient
	if newAppClient == nil {
		newAppClient = NewOAuthAppClientFactory(httpClient)
	}

	return &OAuthAdapter{
		creds:        creds,
		logger:       logger,
		httpClient:   httpClient,
		newAppClient: newAppClient,
	}, nil
}

// CleanDomain reduces a user-typed server address to the part used to build
// the instance URL. With a scheme the host is kept and the path dropped; without
// one the input is returned as parsed, path included.
func CleanDomain(input string) string {
	parsed, err := url.Parse(input)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "" {
		return parsed.Host
	}
	return parsed.Path
}

// instanceInfo is the subset of /api/v2/instance we read.
type instanceInfo struct {
	Domain string `json:"domain"`
}

// VerifyDomain checks that input names a reachable Mastodon server and returns
// the domain the server reports for itself. An unknown domain cannot be told
// apart from a network fault; both yield (false, "").
func (a *OAuthAdapter) VerifyDomain(ctx context.Context, input string) (bool, string) {
	domain := CleanDomain(input)
	endpoint := fmt.Sprintf("https://%s/api/v2/instance", domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		a.logger.Error("could not build instance request", "domain", domain, "error", err)
		return false, ""
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("could not reach instance, domain is invalid or there is a connection problem",
			"domain", domain,
			"error", err,
		)
		return false, ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("instance probe failed", "domain", domain, "status", resp.StatusCode)
		return false, ""
	}

	var info instanceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		a.logger.Warn("could not parse instance info", "domain", domain, "error", err)
		return false, ""
	}
	if info.Domain == "" {
		a.logger.Warn("instance info has no domain", "domain", domain)
		return false, ""
	}

	a.logger.Info("verified instance", "input", input, "domain", info.Domain)
	return true, info.Domain
}

// StartAppClient creates the app client for domain, replacing any previous one.
// Wrong details are not detected here; they fail on first use.
func (a *OAuthAdapter) StartAppClient(domain string) error {
	client, err := a.newAppClient(domain, a.creds)
	if err != nil {
		a.logger.Error("failed to start app client", "domain", domain, "error", err)
		return fmt.Errorf("%w: app client failed to start: %w", ErrConnection, err)
	}

	a.appClient = client
	a.logger.Info("started app client", "domain", domain)
	return nil
}

func (a *OAuthAdapter) mustHaveAppClient() {
	if a.appClient == nil {
		panic("fediverse: app client has not been started")
	}
}

// RedirectURL returns the URL the user must visit to authorize the app,
// trying up to tries times.
func (a *OAuthAdapter) RedirectURL(ctx context.Context, tries int) (string, error) {
	a.mustHaveAppClient()

	var authURL string
	err := retry.Do(ctx, tries, func(ctx context.Context) error {
		u, err := a.appClient.AuthCodeURL(ctx, RedirectURI, RequiredScopes())
		if err != nil {
			return err
		}
		authURL = u
		return nil
	},
		retry.WithLogger(a.logger),
		retry.WithOperation("generate redirect url"),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return authURL, nil
}

// ExchangeCode trades the code the user copied from the server for an access
// token. A code the server refuses is reported as ErrInvalidInput at once;
// other failures are retried up to tries times.
func (a *OAuthAdapter) ExchangeCode(ctx context.Context, code string, tries int) (string, error) {
	a.mustHaveAppClient()

	var token string
	err := retry.Do(ctx, tries, func(ctx context.Context) error {
		t, err := a.appClient.Exchange(ctx, code, RedirectURI, RequiredScopes())
		if err != nil {
			return err
		}
		token = t
		return nil
	},
		retry.WithLogger(a.logger),
		retry.WithOperation("generate user access token"),
		retry.WithTerminal(isRejected),
	)
	if err != nil {
		if isRejected(err) {
			a.logger.Error("authorization code is likely invalid, aborting", "error", err)
			return "", fmt.Errorf("%w: authorization code rejected: %w", ErrInvalidInput, err)
		}
		return "", fmt.Errorf("%w: %w", ErrConnection, err)
	}

	a.logger.Info("obtained user access token")
	return token, nil
}
