package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/session"
	"github.com/jrsteele09/go-hr-session/tokencodec"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	claims := jwtlib.RegisteredClaims{ExpiresAt: jwtlib.NewNumericDate(fixedNow.Add(d))}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return signed
}

type fakeAPI struct {
	refreshCalls atomic.Int32
	refreshFn    func(ctx context.Context, token string) (*backend.RefreshResponse, error)

	mu      sync.Mutex
	revoked []string
	login   *backend.LoginResponse
}

func (f *fakeAPI) Login(_ context.Context, creds backend.Credentials) (*backend.LoginResponse, error) {
	if f.login == nil || creds.Password != "secret" {
		return nil, &backend.APIError{Status: 401, Detail: "No active account found with the given credentials"}
	}
	return f.login, nil
}

func (f *fakeAPI) Register(ctx context.Context, reg backend.Registration) (*backend.LoginResponse, error) {
	return f.Login(ctx, backend.Credentials{Username: reg.Username, Password: reg.Password})
}

func (f *fakeAPI) Refresh(ctx context.Context, token string) (*backend.RefreshResponse, error) {
	f.refreshCalls.Add(1)
	return f.refreshFn(ctx, token)
}

func (f *fakeAPI) Revoke(_ context.Context, _, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, refreshToken)
	return nil
}

type harness struct {
	store   *tokenstore.Store
	backend *tokenstore.MemoryBackend
	api     *fakeAPI
	nav     *navigation.History
	svc     *session.Service
}

func newHarness(t *testing.T, options ...session.Option) *harness {
	t.Helper()
	mem := tokenstore.NewMemoryBackend()
	h := &harness{
		backend: mem,
		store:   tokenstore.New(mem, zerolog.Nop()),
		api:     &fakeAPI{},
		nav:     navigation.NewHistory("/dashboard"),
	}
	base := []session.Option{
		session.WithLogger(zerolog.Nop()),
		session.WithNavigator(h.nav),
		session.WithCodec(tokencodec.Codec{Buffer: tokencodec.DefaultBuffer, Now: func() time.Time { return fixedNow }}),
	}
	h.svc = session.New(h.store, h.api, append(base, options...)...)
	return h
}

func (h *harness) seed(t *testing.T, access, refresh, user string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, tokenstore.KeyAccess, access))
	require.NoError(t, h.store.Set(ctx, tokenstore.KeyRefresh, refresh))
	require.NoError(t, h.store.Set(ctx, tokenstore.KeyUser, user))
}

// reachedCtx counts callers that reached their wait on the shared refresh.
type reachedCtx struct {
	context.Context
	once    sync.Once
	reached *sync.WaitGroup
}

func (c *reachedCtx) Done() <-chan struct{} {
	c.once.Do(c.reached.Done)
	return c.Context.Done()
}

var alice = users.Profile{ID: 7, Username: "alice", Role: users.RoleHRManager, FirstName: "Alice", LastName: "Martin"}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) ReportRefreshFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func withReporter(r session.FailureReporter) session.Option {
	return session.WithReporter(r)
}
