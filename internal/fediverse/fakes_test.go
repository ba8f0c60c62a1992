package fediverse

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdulachik/feedamalgamator/internal/config"
	"github.com/mattn/go-mastodon"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeCredentials writes a valid credentials file and returns its path.
func writeCredentials(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app_tokens.env")
	content := "CLIENT_ID=test-client\nCLIENT_SECRET=test-secret\nACCESS_TOKEN=test-app-token\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// fakeAppClient fails the first failures calls of each method with err.
type fakeAppClient struct {
	failures int
	err      error

	urlCalls      int
	exchangeCalls int
	gotCode       string
	gotRedirect   string
	gotScopes     []string
}

func (f *fakeAppClient) AuthCodeURL(ctx context.Context, redirectURI string, scopes []string) (string, error) {
	f.urlCalls++
	f.gotRedirect = redirectURI
	f.gotScopes = scopes
	if f.urlCalls <= f.failures {
		return "", f.err
	}
	return "https://example.social/oauth/authorize?client_id=test-client", nil
}

func (f *fakeAppClient) Exchange(ctx context.Context, code, redirectURI string, scopes []string) (string, error) {
	f.exchangeCalls++
	f.gotCode = code
	f.gotRedirect = redirectURI
	f.gotScopes = scopes
	if f.exchangeCalls <= f.failures {
		return "", f.err
	}
	return "user-token", nil
}

// fakeUserClient fails while failures is positive, counting down per call.
type fakeUserClient struct {
	failures int
	err      error
	statuses []*mastodon.Status

	calls  int
	names  []string
	limits []int
}

func (f *fakeUserClient) Timeline(ctx context.Context, name string, limit int) ([]*mastodon.Status, error) {
	f.calls++
	f.names = append(f.names, name)
	f.limits = append(f.limits, limit)
	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	return f.statuses, nil
}

func appFactory(client AppClient) AppClientFactory {
	return func(string, config.Credentials) (AppClient, error) {
		return client, nil
	}
}

func userFactory(client UserClient) UserClientFactory {
	return func(string, string) (UserClient, error) {
		return client, nil
	}
}
