package mockapi

import (
	"net/http/httptest"
	"testing"
)

// Start serves a new mock backend for the duration of the test and returns it with the API
// base URL clients should use.
func Start(t testing.TB, options ...Option) (*Server, string) {
	t.Helper()
	s := New(options...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv.URL + "/api"
}
