package fediverse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abdulachik/feedamalgamator/internal/config"
	"github.com/mattn/go-mastodon"
	"golang.org/x/oauth2"
)

const (
	// RedirectURI is the out-of-band redirect: the server shows the code to the
	// user instead of redirecting to us.
	RedirectURI = "urn:ietf:wg:oauth:2.0:oob"

	// DefaultTries is the number of attempts used by the CLI unless configured.
	DefaultTries = 3
)

// RequiredScopes returns the scopes every grant is requested with.
func RequiredScopes() []string {
	return []string{"read", "write", "push"}
}

// AppClient drives the OAuth handshake as the application itself.
type AppClient interface {
	// AuthCodeURL returns the URL the user visits to authorize the app.
	AuthCodeURL(ctx context.Context, redirectURI string, scopes []string) (string, error)

	// Exchange trades an authorization code for a user access token.
	Exchange(ctx context.Context, code, redirectURI string, scopes []string) (string, error)
}

// UserClient reads data on behalf of one user.
type UserClient interface {
	// Timeline returns up to limit statuses from the named timeline.
	Timeline(ctx context.Context, name string, limit int) ([]*mastodon.Status, error)
}

// AppClientFactory builds an AppClient for a server.
type AppClientFactory func(domain string, creds config.Credentials) (AppClient, error)

// UserClientFactory builds a UserClient for a server and access token.
type UserClientFactory func(domain, accessToken string) (UserClient, error)

// serverURL addresses a bare domain over https.
func serverURL(domain string) string {
	if strings.Contains(domain, "://") {
		return strings.TrimRight(domain, "/")
	}
	return "https://" + strings.TrimRight(domain, "/")
}

// oauthAppClient implements AppClient with golang.org/x/oauth2.
type oauthAppClient struct {
	base       string
	creds      config.Credentials
	httpClient *http.Client
}

// NewOAuthAppClientFactory returns the production AppClientFactory.
// Building a client does not contact the server, so a wrong domain only
// surfaces on first use.
func NewOAuthAppClientFactory(httpClient *http.Client) AppClientFactory {
	return func(domain string, creds config.Credentials) (AppClient, error) {
		base := serverURL(domain)
		if _, err := url.Parse(base); err != nil {
			return nil, fmt.Errorf("parse server url: %w", err)
		}
		return &oauthAppClient{
			base:       base,
			creds:      creds,
			httpClient: httpClient,
		}, nil
	}
}

func (c *oauthAppClient) oauthConfig(redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.base + "/oauth/authorize",
			TokenURL:  c.base + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      scopes,
	}
}

// AuthCodeURL builds the authorization URL. It does not check that the URL
// resolves to a live server.
func (c *oauthAppClient) AuthCodeURL(ctx context.Context, redirectURI string, scopes []string) (string, error) {
	raw := c.oauthConfig(redirectURI, scopes).AuthCodeURL("")
	if _, err := url.ParseRequestURI(raw); err != nil {
		return "", fmt.Errorf("build auth url: %w", err)
	}
	return raw, nil
}

// Exchange posts the code to the server's token endpoint.
func (c *oauthAppClient) Exchange(ctx context.Context, code, redirectURI string, scopes []string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauthConfig(redirectURI, scopes).Exchange(ctx, code,
		oauth2.SetAuthURLParam("scope", strings.Join(scopes, " ")),
	)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil && isClientError(rerr.Response.StatusCode) {
			return "", fmt.Errorf("%w: %w", errRejected, err)
		}
		return "", fmt.Errorf("exchange code: %w", err)
	}

	return tok.AccessToken, nil
}

// isClientError reports 4xx statuses that resubmitting cannot fix.
func isClientError(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}

// mastodonUserClient implements UserClient with go-mastodon.
type mastodonUserClient struct {
	api *mastodon.Client

	// timeout bounds a whole call. go-mastodon waits and resends on 429
	// until its context ends, so the per-request client timeout is not enough.
	timeout time.Duration
}

// NewMastodonUserClientFactory returns the production UserClientFactory.
func NewMastodonUserClientFactory(httpClient *http.Client) UserClientFactory {
	return func(domain, accessToken string) (UserClient, error) {
		base := serverURL(domain)
		if _, err := url.Parse(base); err != nil {
			return nil, fmt.Errorf("parse server url: %w", err)
		}

		api := mastodon.NewClient(&mastodon.Config{
			Server:      base,
			AccessToken: accessToken,
		})
		client := &mastodonUserClient{api: api}
		if httpClient != nil {
			api.Timeout = httpClient.Timeout
			api.Transport = httpClient.Transport
			client.timeout = httpClient.Timeout
		}

		return client, nil
	}
}

// Timeline understands home, public, local, tag/<hashtag> and list/<id>.
func (c *mastodonUserClient) Timeline(ctx context.Context, name string, limit int) ([]*mastodon.Status, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	pg := &mastodon.Pagination{Limit: int64(limit)}

	var (
		statuses []*mastodon.Status
		err      error
	)
	switch {
	case name == "home":
		statuses, err = c.api.GetTimelineHome(ctx, pg)
	case name == "public":
		statuses, err = c.api.GetTimelinePublic(ctx, false, pg)
	case name == "local":
		statuses, err = c.api.GetTimelinePublic(ctx, true, pg)
	case strings.HasPrefix(name, "tag/") && len(name) > len("tag/"):
		statuses, err = c.api.GetTimelineHashtag(ctx, strings.TrimPrefix(name, "tag/"), false, pg)
	case strings.HasPrefix(name, "list/") && len(name) > len("list/"):
		statuses, err = c.api.GetTimelineList(ctx, mastodon.ID(strings.TrimPrefix(name, "list/")), pg)
	default:
		return nil, fmt.Errorf("%w: unknown timeline %q", errRejected, name)
	}
	if err != nil {
		return nil, translateAPIError(err)
	}

	return statuses, nil
}

// translateAPIError marks token rejections so callers can stop retrying.
func translateAPIError(err error) error {
	var apiErr *mastodon.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", errRejected, err)
	}
	return err
}
