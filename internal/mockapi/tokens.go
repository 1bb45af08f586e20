package mockapi

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type accessClaims struct {
	TokenType string `json:"token_type"`
	Username  string `json:"username"`
	jwtlib.RegisteredClaims
}

func (s *Server) mintAccess(username string) (string, error) {
	now := s.now()
	claims := accessClaims{
		TokenType: "access",
		Username:  username,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// MintAccess issues an access token for username at the server's current time.
func (s *Server) MintAccess(username string) (string, error) {
	return s.mintAccess(username)
}

func (s *Server) verifyAccess(token string) (string, error) {
	claims := accessClaims{}
	_, err := jwtlib.ParseWithClaims(token, &claims, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.TokenType != "access" {
		return "", errors.New("not an access token")
	}
	return claims.Username, nil
}

func newRefreshToken() string {
	return uuid.NewString() + uuid.NewString()
}
