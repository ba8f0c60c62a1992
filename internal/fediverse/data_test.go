package fediverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mattn/go-mastodon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStatuses() []*mastodon.Status {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*mastodon.Status{
		{
			ID:        "109",
			Content:   "<p>Hello <b>fediverse</b></p>",
			CreatedAt: created,
			Account:   mastodon.Account{ID: "1", Acct: "alice@example.social", Username: "alice"},
		},
		{
			ID:        "110",
			Content:   "<p>Second post</p>",
			CreatedAt: created.Add(time.Minute),
			Account:   mastodon.Account{ID: "2", Acct: "bob", Username: "bob"},
		},
	}
}

func startedDataAdapter(t *testing.T, fake *fakeUserClient) *DataAdapter {
	t.Helper()
	d := NewDataAdapter(DataConfig{Logger: discardLogger(), NewUserClient: userFactory(fake)})
	require.NoError(t, d.StartUserClient(context.Background(), "example.social", "user-token"))
	return d
}

func TestDataAdapter_StartUserClient(t *testing.T) {
	ctx := context.Background()

	t.Run("probes home timeline", func(t *testing.T) {
		fake := &fakeUserClient{}
		d := NewDataAdapter(DataConfig{Logger: discardLogger(), NewUserClient: userFactory(fake)})

		require.NoError(t, d.StartUserClient(ctx, "example.social", "user-token"))
		assert.True(t, d.Started())
		assert.Equal(t, []string{"home"}, fake.names)
		assert.Equal(t, []int{1}, fake.limits)
	})

	t.Run("rejected token", func(t *testing.T) {
		fake := &fakeUserClient{failures: 1, err: fmt.Errorf("%w: 401 unauthorized", errRejected)}
		d := NewDataAdapter(DataConfig{Logger: discardLogger(), NewUserClient: userFactory(fake)})

		err := d.StartUserClient(ctx, "example.social", "revoked")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.NotErrorIs(t, err, ErrConnection)
		assert.False(t, d.Started())
	})

	t.Run("connection failure", func(t *testing.T) {
		fake := &fakeUserClient{failures: 1, err: errors.New("dial tcp: no such host")}
		d := NewDataAdapter(DataConfig{Logger: discardLogger(), NewUserClient: userFactory(fake)})

		err := d.StartUserClient(ctx, "example.social", "user-token")
		assert.ErrorIs(t, err, ErrConnection)
		assert.False(t, d.Started())
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("factory failure", func(t *testing.T) {
		d := NewDataAdapter(DataConfig{
			Logger: discardLogger(),
			NewUserClient: func(string, string) (UserClient, error) {
				return nil, errors.New("bad url")
			},
		})

		err := d.StartUserClient(ctx, "example.social", "user-token")
		assert.ErrorIs(t, err, ErrConnection)
		assert.False(t, d.Started())
	})

	t.Run("failed restart keeps previous session", func(t *testing.T) {
		good := &fakeUserClient{}
		bad := &fakeUserClient{failures: 1, err: fmt.Errorf("%w: 401", errRejected)}
		clients := []UserClient{good, bad}
		d := NewDataAdapter(DataConfig{
			Logger: discardLogger(),
			NewUserClient: func(string, string) (UserClient, error) {
				c := clients[0]
				clients = clients[1:]
				return c, nil
			},
		})

		require.NoError(t, d.StartUserClient(ctx, "example.social", "good"))
		require.Error(t, d.StartUserClient(ctx, "example.social", "bad"))
		assert.Same(t, good, d.userClient)
	})
}

func TestDataAdapter_Timeline(t *testing.T) {
	ctx := context.Background()
	transient := errors.New("502 bad gateway")

	tests := []struct {
		name      string
		failures  int
		tries     int
		wantCalls int
		wantErr   bool
	}{
		{"first try", 0, 3, 1, false},
		{"one failure", 1, 3, 2, false},
		{"recovers on last try", 2, 3, 3, false},
		{"exhausts tries", 3, 3, 3, true},
		{"single try", 1, 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUserClient{statuses: sampleStatuses()}
			d := startedDataAdapter(t, fake)
			fake.calls, fake.names, fake.limits = 0, nil, nil
			fake.failures, fake.err = tt.failures, transient

			entries, err := d.Timeline(ctx, "public", 20, tt.tries)

			assert.Equal(t, tt.wantCalls, fake.calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConnection)
				assert.Nil(t, entries)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, 2)
			assert.Equal(t, "public", fake.names[0])
			assert.Equal(t, 20, fake.limits[0])
		})
	}

	t.Run("rejected request is not retried", func(t *testing.T) {
		fake := &fakeUserClient{}
		d := startedDataAdapter(t, fake)
		fake.calls = 0
		fake.failures, fake.err = 5, fmt.Errorf("%w: unknown timeline", errRejected)

		_, err := d.Timeline(ctx, "bogus", 20, 3)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("requires user client", func(t *testing.T) {
		d := NewDataAdapter(DataConfig{Logger: discardLogger()})
		assert.Panics(t, func() {
			d.Timeline(ctx, "home", 20, 3)
		})
	})

	t.Run("requires user client after failed start", func(t *testing.T) {
		fake := &fakeUserClient{failures: 1, err: fmt.Errorf("%w: 401", errRejected)}
		d := NewDataAdapter(DataConfig{Logger: discardLogger(), NewUserClient: userFactory(fake)})
		require.Error(t, d.StartUserClient(ctx, "example.social", "revoked"))

		assert.Panics(t, func() {
			d.Timeline(ctx, "home", 20, 3)
		})
	})
}

func TestNormalize(t *testing.T) {
	statuses := sampleStatuses()

	entries, err := normalize(statuses)
	require.NoError(t, err)
	require.Len(t, entries, len(statuses))

	for i, status := range statuses {
		raw, err := json.Marshal(status)
		require.NoError(t, err)
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var want map[string]any
		require.NoError(t, dec.Decode(&want))

		assert.Equal(t, Entry(want), entries[i])
	}

	assert.Equal(t, "109", entries[0]["id"])
	assert.Equal(t, "<p>Hello <b>fediverse</b></p>", entries[0]["content"])
	account, ok := entries[0]["account"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.social", account["acct"])
}

func TestNormalize_KeepsIntegers(t *testing.T) {
	status := sampleStatuses()[0]
	status.FavouritesCount = 9007199254740993
	status.RepliesCount = 4

	entries, err := normalize([]*mastodon.Status{status})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, json.Number("9007199254740993"), entries[0]["favourites_count"])
	assert.Equal(t, json.Number("4"), entries[0]["replies_count"])
}

func TestNormalize_Empty(t *testing.T) {
	entries, err := normalize([]*mastodon.Status{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
