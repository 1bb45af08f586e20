package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/internal/bootstrap"
	"github.com/jrsteele09/go-hr-session/internal/config"
	"github.com/jrsteele09/go-hr-session/internal/mockapi"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	t.Setenv("HRAUTH_CONFIG", "")
	t.Setenv("HRAUTH_TIMING_KEEPALIVE", "off")
	for k, v := range env {
		t.Setenv(k, v)
	}
	chdir(t, t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func startBackend(t *testing.T) string {
	t.Helper()
	srv, baseURL := mockapi.Start(t)
	srv.AddUser("alice", "s3cret!", users.Profile{FirstName: "Alice", Role: users.RoleHRManager})
	return baseURL
}

func newApp(t *testing.T, cfg config.Config) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.New(context.Background(), cfg, navigation.NewHistory(navigation.PathDashboard), zerolog.Nop())
	require.NoError(t, err)
	return app
}

func TestSQLiteSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	baseURL := startBackend(t)
	cfg := loadConfig(t, map[string]string{
		"HRAUTH_API_BASE_URL": baseURL,
		"HRAUTH_STORE_DRIVER": config.StoreDriverSQLite,
		"HRAUTH_STORE_PATH":   filepath.Join(t.TempDir(), "tokens.db"),
	})

	first := newApp(t, cfg)
	_, err := first.Session.Login(ctx, backend.Credentials{Username: "alice", Password: "s3cret!"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newApp(t, cfg)
	defer second.Close()

	result := second.Session.Restore(ctx)
	require.True(t, result.Authenticated)
	require.Equal(t, "alice", second.Session.CurrentUser().Username)

	me, err := second.Client.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, users.RoleHRManager, me.Role)
}

func TestSealedRedisStoreHidesTokens(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	baseURL := startBackend(t)
	cfg := loadConfig(t, map[string]string{
		"HRAUTH_API_BASE_URL":     baseURL,
		"HRAUTH_STORE_DRIVER":     config.StoreDriverRedis,
		"HRAUTH_STORE_REDIS_ADDR": mr.Addr(),
		"HRAUTH_STORE_PASSPHRASE": "correct horse",
		"HRAUTH_STORE_PROFILE":    "laptop",
	})

	app := newApp(t, cfg)
	defer app.Close()

	_, err := app.Session.Login(ctx, backend.Credentials{Username: "alice", Password: "s3cret!"})
	require.NoError(t, err)

	access := app.Session.AccessToken(ctx)
	require.NotEmpty(t, access)

	raw, err := mr.Get("hrauth:laptop:access_token")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NotEqual(t, access, raw)
}

func TestMemoryDriver(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"HRAUTH_STORE_DRIVER": config.StoreDriverMemory})

	app := newApp(t, cfg)
	defer app.Close()

	require.True(t, app.Store.Available())
	require.False(t, app.Session.IsAuthenticated())
}

func TestNoneDriverRunsWithoutStorage(t *testing.T) {
	ctx := context.Background()
	baseURL := startBackend(t)
	cfg := loadConfig(t, map[string]string{
		"HRAUTH_API_BASE_URL": baseURL,
		"HRAUTH_STORE_DRIVER": config.StoreDriverNone,
	})

	app := newApp(t, cfg)
	defer app.Close()

	require.False(t, app.Store.Available())
	require.False(t, app.Session.StorageAvailable())
	require.False(t, app.Session.Restore(ctx).Authenticated)
}

func TestUnknownDriver(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"HRAUTH_STORE_DRIVER": "etcd"})

	_, err := bootstrap.New(context.Background(), cfg, nil, zerolog.Nop())
	require.ErrorContains(t, err, `unknown store driver "etcd"`)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
