package apiclient_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-hr-session/apiclient"
	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/internal/mockapi"
	"github.com/jrsteele09/go-hr-session/session"
	"github.com/jrsteele09/go-hr-session/tokencodec"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestResumeAfterIdleRefreshesBeforeFirstRequest(t *testing.T) {
	ctx := context.Background()
	now := &clock{now: time.Unix(1_700_000_000, 0)}
	api, baseURL := mockapi.Start(t, mockapi.WithClock(now.Now))
	api.AddUser("alice", "secret-pass", users.Profile{Role: users.RoleHRManager})

	// One backend outlives both processes, like the SQLite file between two CLI runs.
	durable := tokenstore.NewMemoryBackend()
	start := func() (*session.Service, *apiclient.Client) {
		svc := session.New(tokenstore.New(durable, zerolog.Nop()), backend.New(baseURL, nil, zerolog.Nop()),
			session.WithLogger(zerolog.Nop()),
			session.WithCodec(tokencodec.Codec{Buffer: tokencodec.DefaultBuffer, Now: now.Now}),
		)
		return svc, apiclient.New(baseURL, svc, nil, apiclient.WithLogger(zerolog.Nop()))
	}

	first, _ := start()
	_, err := first.Login(ctx, backend.Credentials{Username: "alice", Password: "secret-pass"})
	require.NoError(t, err)
	stale := first.AccessToken(ctx)

	now.Advance(11 * time.Minute)

	svc, client := start()
	result := svc.Resume(ctx)
	require.True(t, result.Authenticated)
	require.True(t, result.RefreshScheduled)
	require.False(t, svc.IsRefreshing())
	require.NotEqual(t, stale, svc.AccessToken(ctx))
	require.True(t, svc.HasValidAccessToken(ctx))

	var employees json.RawMessage
	require.NoError(t, client.Get(ctx, mockapi.RouteEmployees, &employees))
	require.EqualValues(t, 1, api.RefreshCalls())
}

func TestResumeWithRejectedRefreshTokenLogsOut(t *testing.T) {
	ctx := context.Background()
	now := &clock{now: time.Unix(1_700_000_000, 0)}
	api, baseURL := mockapi.Start(t, mockapi.WithClock(now.Now))
	api.AddUser("alice", "secret-pass", users.Profile{Role: users.RoleHRManager})

	durable := tokenstore.NewMemoryBackend()
	codec := session.WithCodec(tokencodec.Codec{Buffer: tokencodec.DefaultBuffer, Now: now.Now})

	first := session.New(tokenstore.New(durable, zerolog.Nop()), backend.New(baseURL, nil, zerolog.Nop()), session.WithLogger(zerolog.Nop()), codec)
	_, err := first.Login(ctx, backend.Credentials{Username: "alice", Password: "secret-pass"})
	require.NoError(t, err)

	api.RevokeRefreshTokens()
	now.Advance(11 * time.Minute)

	svc := session.New(tokenstore.New(durable, zerolog.Nop()), backend.New(baseURL, nil, zerolog.Nop()), session.WithLogger(zerolog.Nop()), codec)
	result := svc.Resume(ctx)
	require.False(t, result.Authenticated)
	require.True(t, result.RefreshScheduled)
	require.Empty(t, svc.RefreshToken(ctx))
	require.EqualValues(t, 1, api.RefreshCalls())
}
