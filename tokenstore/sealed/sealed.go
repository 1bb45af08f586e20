// Package sealed encrypts values before they reach another tokenstore.Backend. The key is
// derived from a passphrase with argon2id and values are sealed with NaCl secretbox.
package sealed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-hr-session/tokenstore"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keySize   = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var ErrOpen = errors.New("sealed value could not be opened")

// Backend seals every value written to the inner backend.
type Backend struct {
	inner tokenstore.Backend
	key   [keySize]byte
}

var _ tokenstore.Backend = (*Backend)(nil)

// New derives the sealing key for profile and wraps inner.
func New(inner tokenstore.Backend, passphrase, profile string) (*Backend, error) {
	if passphrase == "" {
		return nil, errors.New("sealed backend requires a passphrase")
	}
	b := &Backend{inner: inner}
	derived := argon2.IDKey([]byte(passphrase), []byte("hrauth:"+profile), argonTime, argonMemory, argonThreads, keySize)
	copy(b.key[:], derived)
	return b, nil
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	sealedValue, err := b.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}

	raw, err := base64.RawStdEncoding.DecodeString(sealedValue)
	if err != nil || len(raw) < nonceSize {
		return "", fmt.Errorf("%s: %w", key, ErrOpen)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrOpen)
	}
	value, ok := strings.CutPrefix(string(opened), bound(key))
	if !ok {
		return "", fmt.Errorf("%s: sealed for another key: %w", key, ErrOpen)
	}
	return value, nil
}

func (b *Backend) Set(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(bound(key)+value), &nonce, &b.key)
	return b.inner.Set(ctx, key, base64.RawStdEncoding.EncodeToString(box))
}

// bound prefixes the plaintext so a value only opens under the key it was written to.
func bound(key string) string {
	return key + "\x00"
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, key)
}
