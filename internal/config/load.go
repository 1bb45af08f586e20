package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Load reads hrauth.yaml (from the given paths, $HRAUTH_CONFIG, ".", "./config" and
// "$HOME/.hrauth") and applies HRAUTH_* environment overrides, e.g. HRAUTH_API_BASE_URL.
// A missing config file is not an error.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("hrauth")
	v.SetConfigType("yaml")

	if file := GetEnv(configFileEnvVar, ""); file != "" {
		v.SetConfigFile(file)
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.hrauth")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg mainConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", defaultEnv)
	v.SetDefault("app_name", defaultAppName)
	v.SetDefault("log.level", defaultLogLevel)

	v.SetDefault("api.base_url", defaultBaseURL)
	v.SetDefault("api.timeout", defaultRequestTimeout.String())

	v.SetDefault("store.driver", defaultStoreDriver)
	v.SetDefault("store.path", defaultStorePath)
	v.SetDefault("store.profile", defaultStoreProfile)
	v.SetDefault("store.passphrase", "")
	v.SetDefault("store.redis.addr", defaultRedisAddr)
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)

	v.SetDefault("timing.expiry_buffer", defaultExpiryBuffer.String())
	v.SetDefault("timing.wait_interval", defaultWaitInterval.String())
	v.SetDefault("timing.wait_ceiling", defaultWaitCeiling.String())
	v.SetDefault("timing.logout_delay", defaultLogoutDelay.String())
	v.SetDefault("timing.keepalive", defaultKeepalive)

	v.SetDefault("sentry.dsn", "")
}

// Dump renders the effective settings as YAML with secrets redacted.
func Dump(c Config) ([]byte, error) {
	cfg, ok := c.(mainConfig)
	if !ok {
		return nil, fmt.Errorf("dump config: unsupported implementation %T", c)
	}
	if cfg.Store.Passphrase != "" {
		cfg.Store.Passphrase = redacted
	}
	if cfg.Store.Redis.Password != "" {
		cfg.Store.Redis.Password = redacted
	}
	if cfg.Observability.DSN != "" {
		cfg.Observability.DSN = redacted
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
