package mockapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/stretchr/testify/require"
)

func TestAccessTokensExpireOnTheServerClock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := New(WithClock(func() time.Time { return now }), WithAccessTTL(time.Minute))
	s.AddUser("alice", "pw", users.Profile{})

	token, err := s.MintAccess("alice")
	require.NoError(t, err)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api"+backend.RouteMe, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := get()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"alice"`)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	now = now.Add(2 * time.Minute)
	rec = get()
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "detail")
}

func TestRejectNextAndMissingCredentials(t *testing.T) {
	s := New()
	s.AddUser("alice", "pw", users.Profile{})
	token, err := s.MintAccess("alice")
	require.NoError(t, err)

	s.RejectNext(1)
	for _, want := range []int{http.StatusUnauthorized, http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/api"+RouteEmployees, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api"+backend.RouteLogout, strings.NewReader(`{"refresh":"x"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
