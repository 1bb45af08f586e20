package config

const (
	StoreDriverNone   = "none"
	StoreDriverMemory = "memory"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"

	defaultStoreDriver  = StoreDriverSQLite
	defaultStorePath    = "./data/hrauth.db"
	defaultStoreProfile = "default"
	defaultRedisAddr    = "127.0.0.1:6379"
)

type RedisSettings struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type Store struct {
	Driver     string        `mapstructure:"driver" yaml:"driver"`
	Path       string        `mapstructure:"path" yaml:"path"`
	Profile    string        `mapstructure:"profile" yaml:"profile"`
	Passphrase string        `mapstructure:"passphrase" yaml:"passphrase"`
	Redis      RedisSettings `mapstructure:"redis" yaml:"redis"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreDriver() string {
	if s.Driver == "" {
		return defaultStoreDriver
	}
	return s.Driver
}

func (s Store) GetStorePath() string {
	if s.Path == "" {
		return defaultStorePath
	}
	return s.Path
}

// GetStoreProfile scopes persisted credentials, the way a browser profile scopes local storage.
func (s Store) GetStoreProfile() string {
	if s.Profile == "" {
		return defaultStoreProfile
	}
	return s.Profile
}

// GetStorePassphrase enables encryption at rest when non-empty.
func (s Store) GetStorePassphrase() string {
	return s.Passphrase
}

func (s Store) GetRedisAddr() string {
	if s.Redis.Addr == "" {
		return defaultRedisAddr
	}
	return s.Redis.Addr
}

func (s Store) GetRedisPassword() string {
	return s.Redis.Password
}

func (s Store) GetRedisDB() int {
	return s.Redis.DB
}
