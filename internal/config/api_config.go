package config

import (
	"strings"
	"time"
)

const (
	defaultBaseURL        = "http://localhost:8000/api"
	defaultRequestTimeout = 15 * time.Second
)

type API struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

var _ APIConfig = API{}

// GetBaseURL returns the backend API root without a trailing slash (e.g. "http://localhost:8000/api")
func (a API) GetBaseURL() string {
	if a.BaseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(a.BaseURL, "/")
}

// GetRequestTimeout bounds every backend call, including the refresh call.
func (a API) GetRequestTimeout() time.Duration {
	if a.Timeout <= 0 {
		return defaultRequestTimeout
	}
	return a.Timeout
}
