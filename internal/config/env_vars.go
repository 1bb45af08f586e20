package config

import (
	"os"
)

const (
	envPrefix        = "HRAUTH"
	configFileEnvVar = "HRAUTH_CONFIG"

	defaultEnv      = "DEV"
	defaultAppName  = "HR Portal"
	defaultLogLevel = "info"
)

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type EnvVars struct {
	Environment string      `mapstructure:"env" yaml:"env"`
	AppName     string      `mapstructure:"app_name" yaml:"app_name"`
	Log         LogSettings `mapstructure:"log" yaml:"log"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetEnv() string {
	if e.Environment == "" {
		return defaultEnv
	}
	return e.Environment
}

func (e EnvVars) GetAppName() string {
	if e.AppName == "" {
		return defaultAppName
	}
	return e.AppName
}

func (e EnvVars) GetLogLevel() string {
	if e.Log.Level == "" {
		return defaultLogLevel
	}
	return e.Log.Level
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
