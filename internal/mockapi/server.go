// Package mockapi is an in-process stand-in for the HR portal backend's auth endpoints. It
// mints HS256 access tokens against an injectable clock so tests can move time forward.
package mockapi

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
)

const (
	defaultAccessTTL = 10 * time.Minute
	requestIDHeader  = "X-Request-ID"
)

type account struct {
	password string
	profile  users.Profile
}

// Server holds accounts, issued refresh tokens and test hooks.
type Server struct {
	engine    *gin.Engine
	secret    []byte
	now       func() time.Time
	accessTTL time.Duration
	rotate    bool
	log       zerolog.Logger

	mu            sync.Mutex
	accounts      map[string]*account
	refreshTokens map[string]string
	nextID        int
	rejectNext    int
	refreshGate   chan struct{}

	refreshCalls atomic.Int64
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithRotation makes every refresh issue a new refresh token and retire the old one.
func WithRotation() Option {
	return func(s *Server) {
		s.rotate = true
	}
}

func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

func New(options ...Option) *Server {
	s := &Server{
		secret:        []byte("mockapi-signing-secret"),
		now:           time.Now,
		accessTTL:     defaultAccessTTL,
		log:           zerolog.Nop(),
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		nextID:        1,
	}
	for _, opt := range options {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestID(), requestLogger(s.log), gin.Recovery())

	api := engine.Group("/api")
	api.POST(backend.RouteLogin, s.handleLogin)
	api.POST(backend.RouteRegister, s.handleRegister)
	api.POST(backend.RouteRefresh, s.handleRefresh)

	protected := api.Group("", s.requireBearer())
	protected.POST(backend.RouteLogout, s.handleLogout)
	protected.GET(backend.RouteMe, s.handleGetMe)
	protected.PATCH(backend.RouteMe, s.handlePatchMe)
	protected.GET(RouteEmployees, s.handleEmployees)

	s.engine = engine
	return s
}

// RouteEmployees is a protected demo resource.
const RouteEmployees = "/employees/"

func (s *Server) Handler() http.Handler {
	return s.engine
}

// AddUser registers an account that can log in with password.
func (s *Server) AddUser(username, password string, profile users.Profile) users.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.Username = username
	if profile.ID == 0 {
		profile.ID = s.nextID
		s.nextID++
	}
	if profile.Role == "" {
		profile.Role = users.RoleEmployee
	}
	profile.IsActive = true
	s.accounts[username] = &account{password: password, profile: profile}
	return profile
}

// RefreshCalls counts requests that reached the refresh endpoint.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// HoldRefresh blocks refresh requests until release is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.refreshGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// RejectNext answers the next n protected requests with 401 regardless of their token.
func (s *Server) RejectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectNext = n
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]string)
}

func (s *Server) lookupRefresh(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.refreshTokens[token]
	return username, ok
}

func (s *Server) issuePair(username string) (backend.LoginResponse, error) {
	access, err := s.mintAccess(username)
	if err != nil {
		return backend.LoginResponse{}, err
	}
	refresh := newRefreshToken()

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[username]
	if !ok {
		return backend.LoginResponse{}, errors.New("unknown account")
	}
	s.refreshTokens[refresh] = username
	return backend.LoginResponse{Access: access, Refresh: refresh, User: acct.profile}, nil
}
