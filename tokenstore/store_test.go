package tokenstore_test

import (
	"context"
	"errors"
	"testing"

	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type failingBackend struct {
	getErr, setErr, deleteErr error
}

func (f failingBackend) Get(context.Context, string) (string, error) { return "", f.getErr }
func (f failingBackend) Set(context.Context, string, string) error   { return f.setErr }
func (f failingBackend) Delete(context.Context, string) error        { return f.deleteErr }

func TestStoreWithoutBackendIsNoop(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(nil, zerolog.Nop())

	require.False(t, store.Available())
	require.NoError(t, store.Set(ctx, tokenstore.KeyAccess, "token"))

	_, ok := store.Get(ctx, tokenstore.KeyAccess)
	require.False(t, ok)
	require.NoError(t, store.Remove(ctx, tokenstore.KeyRefresh))
	require.NoError(t, store.Clear(ctx))
	require.Equal(t, tokenstore.Record{}, store.Load(ctx))

	var nilStore *tokenstore.Store
	_, ok = nilStore.Get(ctx, tokenstore.KeyUser)
	require.False(t, ok)
}

func TestStorePartialRecord(t *testing.T) {
	ctx := context.Background()
	backend := tokenstore.NewMemoryBackend()
	store := tokenstore.New(backend, zerolog.Nop())

	require.NoError(t, store.Set(ctx, tokenstore.KeyRefresh, "refresh-only"))

	rec := store.Load(ctx)
	require.Empty(t, rec.AccessToken)
	require.Equal(t, "refresh-only", rec.RefreshToken)
	require.Empty(t, rec.UserJSON)
	require.True(t, rec.HasTokens())

	require.NoError(t, store.Set(ctx, tokenstore.KeyAccess, "a"))
	require.NoError(t, store.Set(ctx, tokenstore.KeyUser, `{"id":1}`))
	require.Equal(t, 3, backend.Len())

	require.NoError(t, store.Set(ctx, tokenstore.KeyAccess, ""))
	_, ok := store.Get(ctx, tokenstore.KeyAccess)
	require.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	require.Zero(t, backend.Len())
	require.False(t, store.Load(ctx).HasTokens())
}

func TestStoreReadErrorsAreAbsent(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(failingBackend{getErr: errors.New("disk on fire")}, zerolog.Nop())

	_, ok := store.Get(ctx, tokenstore.KeyAccess)
	require.False(t, ok)
}

func TestStoreWriteErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("read-only file system")
	store := tokenstore.New(failingBackend{setErr: boom, deleteErr: boom}, zerolog.Nop())

	require.ErrorIs(t, store.Set(ctx, tokenstore.KeyAccess, "x"), boom)
	require.ErrorIs(t, store.Remove(ctx, tokenstore.KeyAccess), boom)
	require.ErrorIs(t, store.Clear(ctx), boom)

	notFound := tokenstore.New(failingBackend{deleteErr: autherrors.ErrNotFound}, zerolog.Nop())
	require.NoError(t, notFound.Remove(ctx, tokenstore.KeyUser))
}
