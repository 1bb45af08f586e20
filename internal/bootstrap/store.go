package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/go-hr-session/internal/config"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/jrsteele09/go-hr-session/tokenstore/redisstore"
	"github.com/jrsteele09/go-hr-session/tokenstore/sealed"
	"github.com/jrsteele09/go-hr-session/tokenstore/sqlitestore"
)

// OpenBackend selects the token store backend named by the configured driver. The returned
// closer releases it; it is never nil.
func OpenBackend(ctx context.Context, cfg config.StoreConfig) (tokenstore.Backend, io.Closer, error) {
	var (
		backend tokenstore.Backend
		closer  io.Closer = nopCloser{}
	)

	switch cfg.GetStoreDriver() {
	case config.StoreDriverNone:
		return nil, closer, nil
	case config.StoreDriverMemory:
		backend = tokenstore.NewMemoryBackend()
	case config.StoreDriverSQLite:
		db, err := sqlitestore.Open(ctx, cfg.GetStorePath(), cfg.GetStoreProfile())
		if err != nil {
			return nil, nil, err
		}
		backend, closer = db, db
	case config.StoreDriverRedis:
		client, err := redisstore.Connect(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, nil, err
		}
		store := redisstore.New(client, cfg.GetStoreProfile())
		backend, closer = store, store
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.GetStoreDriver())
	}

	if passphrase := cfg.GetStorePassphrase(); passphrase != "" {
		wrapped, err := sealed.New(backend, passphrase, cfg.GetStoreProfile())
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
		backend = wrapped
	}
	return backend, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
