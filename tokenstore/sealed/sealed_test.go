package sealed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/jrsteele09/go-hr-session/tokenstore/sealed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	accessKey  = string(tokenstore.KeyAccess)
	refreshKey = string(tokenstore.KeyRefresh)
	userKey    = string(tokenstore.KeyUser)
)

func TestSealedRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := tokenstore.NewMemoryBackend()
	backend, err := sealed.New(inner, "correct horse", "default")
	require.NoError(t, err)

	require.NoError(t, backend.Set(ctx, refreshKey, "refresh-token-1"))

	stored, err := inner.Get(ctx, refreshKey)
	require.NoError(t, err)
	require.NotContains(t, stored, "refresh-token-1")

	value, err := backend.Get(ctx, refreshKey)
	require.NoError(t, err)
	require.Equal(t, "refresh-token-1", value)
}

func TestSealedWrongPassphraseReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	inner := tokenstore.NewMemoryBackend()

	writer, err := sealed.New(inner, "first", "default")
	require.NoError(t, err)
	require.NoError(t, writer.Set(ctx, accessKey, "a.b.c"))

	reader, err := sealed.New(inner, "second", "default")
	require.NoError(t, err)

	_, err = reader.Get(ctx, accessKey)
	require.ErrorIs(t, err, sealed.ErrOpen)

	store := tokenstore.New(reader, zerolog.Nop())
	_, ok := store.Get(ctx, tokenstore.KeyAccess)
	require.False(t, ok)
}

func TestSealedTamperDetected(t *testing.T) {
	ctx := context.Background()
	inner := tokenstore.NewMemoryBackend()
	backend, err := sealed.New(inner, "pw", "default")
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, userKey, `{"id":1}`))

	stored, err := inner.Get(ctx, userKey)
	require.NoError(t, err)
	flipped := strings.ToUpper(stored[:len(stored)-4]) + stored[len(stored)-4:]
	if flipped == stored {
		flipped = "AAAA" + stored[4:]
	}
	require.NoError(t, inner.Set(ctx, userKey, flipped))

	_, err = backend.Get(ctx, userKey)
	require.ErrorIs(t, err, sealed.ErrOpen)
}

func TestSealedRequiresPassphrase(t *testing.T) {
	_, err := sealed.New(tokenstore.NewMemoryBackend(), "", "default")
	require.Error(t, err)
}

func TestSealedValueOnlyOpensUnderItsKey(t *testing.T) {
	ctx := context.Background()
	inner := tokenstore.NewMemoryBackend()
	backend, err := sealed.New(inner, "pw", "default")
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, accessKey, "access-token"))
	require.NoError(t, backend.Set(ctx, refreshKey, "refresh-token"))

	sealedAccess, err := inner.Get(ctx, accessKey)
	require.NoError(t, err)
	sealedRefresh, err := inner.Get(ctx, refreshKey)
	require.NoError(t, err)
	require.NoError(t, inner.Set(ctx, accessKey, sealedRefresh))
	require.NoError(t, inner.Set(ctx, refreshKey, sealedAccess))

	_, err = backend.Get(ctx, accessKey)
	require.ErrorIs(t, err, sealed.ErrOpen)
	_, err = backend.Get(ctx, refreshKey)
	require.ErrorIs(t, err, sealed.ErrOpen)
}
