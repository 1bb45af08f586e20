package session

import (
	"context"
	"errors"

	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/internal/logging"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Refresh exchanges the stored refresh token for a new access token. Concurrent callers share
// one backend call and observe the same token or error. Cancelling ctx abandons only this
// caller's wait.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	result, err := s.BeginRefresh(ctx)
	if err != nil {
		return "", err
	}
	return await(ctx, result)
}

// BeginRefresh starts a refresh, or joins the one in flight, without waiting for it. By the
// time it returns IsRefreshing reports true. The channel receives exactly one result.
func (s *Service) BeginRefresh(ctx context.Context) (<-chan singleflight.Result, error) {
	return s.beginRefresh(ctx, false)
}

// beginRefresh with onlyIfStale returns a nil channel, and leaves the session alone, when there
// is nothing to refresh: no refresh token, or no refresh in flight and a valid access token.
// The store is read under refreshMu, so a failed refresh has already cleared it.
func (s *Service) beginRefresh(ctx context.Context, onlyIfStale bool) (<-chan singleflight.Result, error) {
	s.refreshMu.Lock()

	refreshToken, ok := s.store.Get(ctx, tokenstore.KeyRefresh)
	if !ok {
		s.refreshMu.Unlock()
		if onlyIfStale {
			return nil, nil
		}
		s.log.Warn().Msg("refresh requested without a refresh token")
		s.Logout(ctx)
		return nil, autherrors.ErrNoRefreshToken
	}
	defer s.refreshMu.Unlock()

	if onlyIfStale && !s.inFlight && s.HasValidAccessToken(ctx) {
		return nil, nil
	}

	callCtx := context.WithoutCancel(ctx)
	result := s.group.DoChan(refreshKey, func() (any, error) {
		return s.refresh(callCtx, refreshToken)
	})
	if !s.inFlight {
		s.inFlight = true
		s.refreshing.set(true)
		s.log.Debug().Str("refresh", logging.Redact(refreshToken)).Msg("refresh started")
	}
	return result, nil
}

func await(ctx context.Context, result <-chan singleflight.Result) (string, error) {
	select {
	case res := <-result:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		s.log.Error().Err(err).Bool("rejected", errors.Is(err, autherrors.ErrRefreshRejected)).Msg("refresh failed, ending session")
		// Credentials go before the call is released so late callers see no refresh token.
		s.Logout(ctx)
		s.settle(false)
		if s.reporter != nil {
			s.reporter.ReportRefreshFailure(err)
		}
		return "", err
	}

	if err := s.store.Set(ctx, tokenstore.KeyAccess, resp.Access); err != nil {
		s.log.Error().Err(err).Msg("refreshed access token could not be persisted")
	}
	if resp.Refresh != "" && resp.Refresh != refreshToken {
		if err := s.store.Set(ctx, tokenstore.KeyRefresh, resp.Refresh); err != nil {
			s.log.Error().Err(err).Msg("rotated refresh token could not be persisted")
		}
	}

	s.settle(true)
	s.log.Info().Str("access", logging.Redact(resp.Access)).Bool("rotated", resp.Refresh != "" && resp.Refresh != refreshToken).Msg("access token refreshed")
	return resp.Access, nil
}

// settle ends the in-flight refresh. Later callers start a new one.
func (s *Service) settle(success bool) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.group.Forget(refreshKey)
	s.inFlight = false
	s.refreshing.set(false)
	if success {
		s.authenticated.set(true)
	}
}
