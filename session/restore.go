package session

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-hr-session/users"
)

// RestoreResult describes what Restore concluded.
type RestoreResult struct {
	Authenticated    bool
	RefreshScheduled bool
}

// Restore resynchronizes the session from the token store. When the access token is stale or
// missing but a refresh token exists, a refresh is started on another goroutine after Restore
// returns.
func (s *Service) Restore(ctx context.Context) RestoreResult {
	record := s.store.Load(ctx)

	if !record.HasTokens() {
		if record.UserJSON != "" {
			s.log.Info().Msg("cached user without tokens, clearing session")
			s.Logout(ctx)
		}
		return RestoreResult{}
	}

	if record.UserJSON != "" {
		var profile users.Profile
		if err := json.Unmarshal([]byte(record.UserJSON), &profile); err != nil {
			s.log.Warn().Err(err).Msg("cached user could not be decoded")
		} else {
			s.user.set(&profile)
		}
	}

	fresh := record.AccessToken != "" && !s.codec.IsExpired(record.AccessToken)
	switch {
	case fresh:
		s.authenticated.set(true)
		s.log.Debug().Msg("session restored with a valid access token")
		return RestoreResult{Authenticated: true}
	case record.RefreshToken != "":
		s.authenticated.set(true)
		s.log.Debug().Bool("has_access", record.AccessToken != "").Msg("session restored, refreshing access token")
		go func() {
			if err := s.refreshIfStale(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn().Err(err).Msg("startup refresh failed")
			}
		}()
		return RestoreResult{Authenticated: true, RefreshScheduled: true}
	default:
		s.log.Info().Msg("no usable tokens, clearing session")
		s.Logout(ctx)
		return RestoreResult{}
	}
}

// Resume is Restore for callers about to send a request: when a refresh was scheduled it waits
// for that refresh, so the first request carries a fresh access token.
func (s *Service) Resume(ctx context.Context) RestoreResult {
	result := s.Restore(ctx)
	if !result.RefreshScheduled {
		return result
	}
	if err := s.refreshIfStale(ctx); err != nil {
		s.log.Warn().Err(err).Msg("session could not be resumed")
	}
	result.Authenticated = s.IsAuthenticated()
	return result
}

// refreshIfStale is the deferred startup refresh. It joins a refresh in flight, skips the call
// when another flow has already renewed the token, and leaves failures to the coordinator's
// logout.
func (s *Service) refreshIfStale(ctx context.Context) error {
	result, err := s.beginRefresh(ctx, true)
	if err != nil || result == nil {
		return err
	}
	_, err = await(ctx, result)
	return err
}

// CheckAuth rereads the store and reports whether any credential exists, resynchronizing the
// session when it lags behind and clearing it when it claims a login the store no longer has.
func (s *Service) CheckAuth(ctx context.Context) bool {
	if !s.store.Available() {
		return false
	}

	record := s.store.Load(ctx)
	if record.HasTokens() {
		if !s.IsAuthenticated() || s.CurrentUser() == nil {
			s.Restore(ctx)
		}
		return true
	}

	if s.IsAuthenticated() {
		s.log.Info().Msg("session claims a login but the store has no tokens")
		s.Logout(ctx)
	}
	return false
}
