package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
	TimingConfig
	ObservabilityConfig
}

type EnvConfig interface {
	GetEnv() string
	GetAppName() string
	GetLogLevel() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
}

type StoreConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetStoreProfile() string
	GetStorePassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type TimingConfig interface {
	GetExpiryBuffer() time.Duration
	GetWaitInterval() time.Duration
	GetWaitCeiling() time.Duration
	GetLogoutDelay() time.Duration
	GetKeepaliveSchedule() string
}

type ObservabilityConfig interface {
	GetSentryDSN() string
}

type mainConfig struct {
	EnvVars       `mapstructure:",squash" yaml:",inline"`
	API           `mapstructure:"api" yaml:"api"`
	Store         `mapstructure:"store" yaml:"store"`
	Timing        `mapstructure:"timing" yaml:"timing"`
	Observability `mapstructure:"sentry" yaml:"sentry"`
}

var _ Config = mainConfig{}

// New returns the built-in defaults with environment overrides applied. Use Load to read a
// config file as well.
func New() Config {
	cfg, err := Load()
	if err != nil {
		return defaults()
	}
	return cfg
}

func defaults() mainConfig {
	return mainConfig{
		EnvVars: EnvVars{
			Environment: defaultEnv,
			AppName:     defaultAppName,
			Log:         LogSettings{Level: defaultLogLevel},
		},
		API: API{
			BaseURL: defaultBaseURL,
			Timeout: defaultRequestTimeout,
		},
		Store: Store{
			Driver:  defaultStoreDriver,
			Path:    defaultStorePath,
			Profile: defaultStoreProfile,
			Redis:   RedisSettings{Addr: defaultRedisAddr},
		},
		Timing: Timing{
			ExpiryBuffer: defaultExpiryBuffer,
			WaitInterval: defaultWaitInterval,
			WaitCeiling:  defaultWaitCeiling,
			LogoutDelay:  defaultLogoutDelay,
			Keepalive:    defaultKeepalive,
		},
	}
}
