// Package navigation is the router collaborator the session core redirects through.
package navigation

import (
	"net/url"
	"strings"
	"sync"
)

// View paths and query parameters used by redirects
const (
	PathLogin     = "/login"
	PathDashboard = "/dashboard"

	QueryReturnURL = "returnUrl"
)

// Navigator receives redirect instructions from the authorizers.
type Navigator interface {
	Navigate(path string, query url.Values)
	CurrentURL() string
}

// LoginWithReturn builds the query that sends the user back to target after signing in.
func LoginWithReturn(target string) url.Values {
	if target == "" {
		return nil
	}
	return url.Values{QueryReturnURL: []string{target}}
}

// OnLogin reports whether rawURL is already the login view.
func OnLogin(rawURL string) bool {
	return strings.Contains(rawURL, PathLogin)
}

// History is an in-memory Navigator that records every navigation.
type History struct {
	mu      sync.RWMutex
	current string
	visited []string
}

var _ Navigator = (*History)(nil)

func NewHistory(start string) *History {
	return &History{current: start}
}

func (h *History) Navigate(path string, query url.Values) {
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = target
	h.visited = append(h.visited, target)
}

func (h *History) CurrentURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Visited returns every navigation target in order.
func (h *History) Visited() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.visited))
	copy(out, h.visited)
	return out
}

// Discard is a Navigator for headless callers that have no views.
type Discard struct{}

func (Discard) Navigate(string, url.Values) {}
func (Discard) CurrentURL() string          { return "" }
