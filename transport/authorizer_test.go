package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-hr-session/backend"
	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/internal/mockapi"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/session"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/jrsteele09/go-hr-session/transport"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stack struct {
	api     *mockapi.Server
	baseURL string
	store   *tokenstore.Store
	nav     *navigation.History
	svc     *session.Service
	client  *http.Client
}

func newStack(t *testing.T, options ...session.Option) *stack {
	t.Helper()
	api, baseURL := mockapi.Start(t)
	api.AddUser("alice", "secret-pass", users.Profile{Role: users.RoleHRManager})

	s := &stack{
		api:     api,
		baseURL: baseURL,
		store:   tokenstore.New(tokenstore.NewMemoryBackend(), zerolog.Nop()),
		nav:     navigation.NewHistory("/employees"),
	}
	base := []session.Option{session.WithLogger(zerolog.Nop()), session.WithNavigator(s.nav)}
	s.svc = session.New(s.store, backend.New(baseURL, nil, zerolog.Nop()), append(base, options...)...)
	s.client = &http.Client{Transport: transport.New(s.svc, s.nav,
		transport.WithLogger(zerolog.Nop()),
		transport.WithLogoutDelay(10*time.Millisecond),
	)}

	_, err := s.svc.Login(context.Background(), backend.Credentials{Username: "alice", Password: "secret-pass"})
	require.NoError(t, err)
	return s
}

func (s *stack) get(t *testing.T, route string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.baseURL+route, nil)
	require.NoError(t, err)
	return s.client.Do(req)
}

func TestAttachesBearerToken(t *testing.T) {
	s := newStack(t)

	resp, err := s.get(t, mockapi.RouteEmployees)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(transport.HeaderRequestID))
	require.Zero(t, s.api.RefreshCalls())
}

func TestPublicRoutesPassThroughUntouched(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := newStack(t)
	for _, route := range backend.PublicRoutes {
		resp, err := s.client.Post(srv.URL+"/api"+route, "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, len(backend.PublicRoutes))
	for _, auth := range seen {
		require.Empty(t, auth)
	}
	require.Zero(t, s.api.RefreshCalls())
}

func TestRetriesOnceAfterRefresh(t *testing.T) {
	s := newStack(t)
	before := s.svc.AccessToken(context.Background())

	s.api.RejectNext(1)
	resp, err := s.get(t, mockapi.RouteEmployees)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, s.api.RefreshCalls())
	require.NotEqual(t, before, s.svc.AccessToken(context.Background()))

	s.api.RejectNext(2)
	resp, err = s.get(t, mockapi.RouteEmployees)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.EqualValues(t, 2, s.api.RefreshCalls())
	require.True(t, s.svc.IsAuthenticated())
}

func TestRetryResendsTheBody(t *testing.T) {
	s := newStack(t)
	s.api.RejectNext(1)

	req, err := http.NewRequest(http.MethodPatch, s.baseURL+backend.RouteMe, io.NopCloser(strings.NewReader(`{"bio":"hello"}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"bio":"hello"`)
}

func TestUnauthorizedDuringRefreshIsPropagated(t *testing.T) {
	s := newStack(t)
	release := s.api.HoldRefresh()
	defer release()

	_, err := s.svc.BeginRefresh(context.Background())
	require.NoError(t, err)

	s.api.RejectNext(1)
	resp, err := s.get(t, mockapi.RouteEmployees)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	release()
	require.Eventually(t, func() bool { return !s.svc.IsRefreshing() }, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 1, s.api.RefreshCalls())
}

func TestWaitsForInFlightRefreshWhenNoToken(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	require.NoError(t, s.store.Remove(ctx, tokenstore.KeyAccess))

	release := s.api.HoldRefresh()
	defer release()
	_, err := s.svc.BeginRefresh(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	resp, err := s.get(t, mockapi.RouteEmployees)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, s.api.RefreshCalls())
}

func TestWaitCeilingSendsUnauthenticated(t *testing.T) {
	s := newStack(t, session.WithWait(10*time.Millisecond, 100*time.Millisecond))
	ctx := context.Background()
	require.NoError(t, s.store.Remove(ctx, tokenstore.KeyAccess))

	release := s.api.HoldRefresh()
	defer release()
	_, err := s.svc.BeginRefresh(ctx)
	require.NoError(t, err)

	start := time.Now()
	resp, err := s.get(t, mockapi.RouteEmployees)
	require.NoError(t, err)
	resp.Body.Close()
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.True(t, s.svc.IsRefreshing())
}

func TestRefreshFailureLogsOut(t *testing.T) {
	s := newStack(t)
	s.api.RevokeRefreshTokens()
	s.api.RejectNext(1)

	_, err := s.get(t, mockapi.RouteEmployees)
	require.Error(t, err)
	require.ErrorIs(t, err, autherrors.ErrUnauthorized)
	require.ErrorIs(t, err, autherrors.ErrRefreshRejected)

	var unauthorized *autherrors.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	require.NotEmpty(t, unauthorized.RequestID)

	require.Eventually(t, func() bool {
		return !s.svc.IsAuthenticated() && s.nav.CurrentURL() == "/login"
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, s.svc.RefreshToken(context.Background()))
}

func TestUnauthorizedWithoutCredentialsIsPropagated(t *testing.T) {
	s := newStack(t)
	require.NoError(t, s.store.Clear(context.Background()))
	visited := s.nav.Visited()

	resp, err := s.get(t, mockapi.RouteEmployees)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, s.api.RefreshCalls())
	require.Equal(t, visited, s.nav.Visited())
	require.True(t, s.svc.IsAuthenticated())
}

func TestScheduledLogoutSkippedOnLoginView(t *testing.T) {
	s := newStack(t)
	s.nav.Navigate(navigation.PathLogin, nil)
	s.api.RevokeRefreshTokens()
	s.api.RejectNext(1)

	_, err := s.get(t, mockapi.RouteEmployees)
	require.ErrorIs(t, err, autherrors.ErrRefreshRejected)

	time.Sleep(50 * time.Millisecond)
	// One visit from the test, one from the refresh coordinator's logout.
	require.Equal(t, []string{"/login", "/login"}, s.nav.Visited())
	require.EqualValues(t, 1, s.api.RefreshCalls())
}
