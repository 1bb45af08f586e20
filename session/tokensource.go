package session

import (
	"context"

	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx     context.Context
	session *Service
}

// TokenSource adapts the session to oauth2.TokenSource. A stale access token is refreshed
// through the single-flight coordinator. The returned token's Expiry already has the
// expiry buffer subtracted.
func (s *Service) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, session: s}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	s := ts.session
	access := s.AccessToken(ts.ctx)
	if s.codec.IsExpired(access) {
		refreshed, err := s.Refresh(ts.ctx)
		if err != nil {
			return nil, err
		}
		access = refreshed
	}

	token := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken(ts.ctx),
	}
	if exp, err := s.codec.Expiry(access); err == nil {
		token.Expiry = exp.Add(-s.codec.Buffer)
	}
	return token, nil
}
