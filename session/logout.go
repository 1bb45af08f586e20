package session

import (
	"context"

	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/tokenstore"
)

// Logout forgets every credential locally and sends the user to the login view. It is safe to
// call any number of times.
func (s *Service) Logout(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("token store could not be cleared")
	}
	s.user.set(nil)
	s.authenticated.set(false)
	s.nav.Navigate(navigation.PathLogin, nil)
}

// SignOut revokes the refresh token server side, best effort, then logs out locally.
func (s *Service) SignOut(ctx context.Context) {
	refreshToken, ok := s.store.Get(ctx, tokenstore.KeyRefresh)
	if ok {
		accessToken, _ := s.store.Get(ctx, tokenstore.KeyAccess)
		if err := s.api.Revoke(ctx, accessToken, refreshToken); err != nil {
			s.log.Warn().Err(err).Msg("server side revoke failed")
		}
	}
	s.Logout(ctx)
}
