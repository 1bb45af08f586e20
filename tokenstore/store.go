// Package tokenstore persists the access token, refresh token and cached user profile.
//
// A Store sits over a Backend (memory, SQLite file, Redis, optionally sealed). With no backend
// every read reports absent and every write is ignored, which mirrors running without any
// durable storage. A failed backend read is logged and treated as absent.
package tokenstore

import (
	"context"
	"errors"

	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/rs/zerolog"
)

// Key names one of the three persisted values.
type Key string

const (
	KeyAccess  Key = "access_token"
	KeyRefresh Key = "refresh_token"
	KeyUser    Key = "current_user"
)

// Keys lists every persisted key.
var Keys = []Key{KeyAccess, KeyRefresh, KeyUser}

// Backend is a durable key-value store. Get returns autherrors.ErrNotFound for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Record is everything persisted for one profile. Any field may be empty independently.
type Record struct {
	AccessToken  string
	RefreshToken string
	UserJSON     string
}

// HasTokens reports whether at least one credential is present.
func (r Record) HasTokens() bool {
	return r.AccessToken != "" || r.RefreshToken != ""
}

// Store is the goroutine-safe facade the session core reads and writes through.
type Store struct {
	backend Backend
	log     zerolog.Logger
}

// New wraps backend. A nil backend yields a store that never holds anything.
func New(backend Backend, logger zerolog.Logger) *Store {
	return &Store{backend: backend, log: logger}
}

// Available reports whether writes are persisted anywhere.
func (s *Store) Available() bool {
	return s != nil && s.backend != nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key Key) (string, bool) {
	if !s.Available() {
		return "", false
	}
	value, err := s.backend.Get(ctx, string(key))
	if err != nil {
		if !errors.Is(err, autherrors.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", string(key)).Msg("token store read failed, treating as absent")
		}
		return "", false
	}
	return value, value != ""
}

// Set stores value under key; an empty value removes the key.
func (s *Store) Set(ctx context.Context, key Key, value string) error {
	if !s.Available() {
		return nil
	}
	if value == "" {
		return s.Remove(ctx, key)
	}
	if err := s.backend.Set(ctx, string(key), value); err != nil {
		return autherrors.Wrapf(err, "token store set %s", key)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key Key) error {
	if !s.Available() {
		return nil
	}
	if err := s.backend.Delete(ctx, string(key)); err != nil && !errors.Is(err, autherrors.ErrNotFound) {
		return autherrors.Wrapf(err, "token store remove %s", key)
	}
	return nil
}

// Load reads all three keys.
func (s *Store) Load(ctx context.Context) Record {
	access, _ := s.Get(ctx, KeyAccess)
	refresh, _ := s.Get(ctx, KeyRefresh)
	user, _ := s.Get(ctx, KeyUser)
	return Record{AccessToken: access, RefreshToken: refresh, UserJSON: user}
}

// Clear removes all three keys, attempting every key even when one fails.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range Keys {
		if err := s.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
