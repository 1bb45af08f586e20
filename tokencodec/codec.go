// Package tokencodec decides whether a bearer access token is still fresh enough to send.
//
// Tokens are decoded without verifying their signature: the client only needs the exp claim
// to schedule a refresh, the backend remains the authority on validity. Anything that cannot
// be decoded is treated as expired.
package tokencodec

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
)

// DefaultBuffer is how long before its exp claim a token stops being sent.
const DefaultBuffer = 5 * time.Minute

// Codec evaluates access token freshness against a safety buffer.
type Codec struct {
	Buffer time.Duration
	Now    func() time.Time
}

// New returns a codec using the default buffer and the wall clock.
func New() Codec {
	return Codec{Buffer: DefaultBuffer, Now: time.Now}
}

// Expiry returns the token's exp claim. Errors wrap ErrDecodeFailure.
func (c Codec) Expiry(token string) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, fmt.Errorf("empty token: %w", autherrors.ErrDecodeFailure)
	}
	if strings.Count(token, ".") != 2 {
		return time.Time{}, fmt.Errorf("token is not three dot-separated parts: %w", autherrors.ErrDecodeFailure)
	}

	claims := jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", autherrors.ErrDecodeFailure, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim: %w", autherrors.ErrDecodeFailure)
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether token is absent, undecodable, or within Buffer of its expiry.
func (c Codec) IsExpired(token string) bool {
	exp, err := c.Expiry(token)
	if err != nil {
		return true
	}
	return !c.now().Before(exp.Add(-c.buffer()))
}

// Remaining is the time left before the token enters the buffer window; zero when expired.
func (c Codec) Remaining(token string) time.Duration {
	exp, err := c.Expiry(token)
	if err != nil {
		return 0
	}
	left := exp.Add(-c.buffer()).Sub(c.now())
	if left < 0 {
		return 0
	}
	return left
}

func (c Codec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Codec) buffer() time.Duration {
	if c.Buffer < 0 {
		return 0
	}
	return c.Buffer
}

// IsExpired checks token with the default codec.
func IsExpired(token string) bool {
	return New().IsExpired(token)
}
