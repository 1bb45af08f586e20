package config

import "time"

const (
	defaultExpiryBuffer = 5 * time.Minute
	defaultWaitInterval = 100 * time.Millisecond
	defaultWaitCeiling  = 2 * time.Second
	defaultLogoutDelay  = 100 * time.Millisecond
	defaultKeepalive    = "@every 1m"
)

type Timing struct {
	ExpiryBuffer time.Duration `mapstructure:"expiry_buffer" yaml:"expiry_buffer"`
	WaitInterval time.Duration `mapstructure:"wait_interval" yaml:"wait_interval"`
	WaitCeiling  time.Duration `mapstructure:"wait_ceiling" yaml:"wait_ceiling"`
	LogoutDelay  time.Duration `mapstructure:"logout_delay" yaml:"logout_delay"`
	Keepalive    string        `mapstructure:"keepalive" yaml:"keepalive"`
}

var _ TimingConfig = Timing{}

// GetExpiryBuffer is the safety margin subtracted from a token's exp claim.
func (t Timing) GetExpiryBuffer() time.Duration {
	if t.ExpiryBuffer <= 0 {
		return defaultExpiryBuffer
	}
	return t.ExpiryBuffer
}

func (t Timing) GetWaitInterval() time.Duration {
	if t.WaitInterval <= 0 {
		return defaultWaitInterval
	}
	return t.WaitInterval
}

func (t Timing) GetWaitCeiling() time.Duration {
	if t.WaitCeiling <= 0 {
		return defaultWaitCeiling
	}
	return t.WaitCeiling
}

func (t Timing) GetLogoutDelay() time.Duration {
	if t.LogoutDelay <= 0 {
		return defaultLogoutDelay
	}
	return t.LogoutDelay
}

// GetKeepaliveSchedule returns a cron spec; "" or "off" disables proactive refresh.
func (t Timing) GetKeepaliveSchedule() string {
	if t.Keepalive == "off" {
		return ""
	}
	return t.Keepalive
}

type Observability struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

var _ ObservabilityConfig = Observability{}

func (o Observability) GetSentryDSN() string {
	return o.DSN
}
