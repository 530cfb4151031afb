package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix shared by every environment variable the server reads.
const EnvPrefix = "APP"

// Well-known profiles.
const (
	ProfileDebug   = "debug"
	ProfileRelease = "release"
)

// Settings holds the bootstrap configuration needed before the layered
// configuration can be built.
type Settings struct {
	Profile    string `envconfig:"PROFILE"`
	ConfigFile string `envconfig:"CONFIG" default:"App.toml"`
	Logging    LogConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// LoadSettings loads bootstrap settings from environment variables.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &s, nil
}

// DefaultSettings returns default bootstrap settings.
func DefaultSettings() *Settings {
	return &Settings{
		ConfigFile: "App.toml",
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Defaults returns the base layer of every configuration.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"address":          "127.0.0.1",
		"port":             8000,
		"shutdown_timeout": "5s",
		"cors_origins":     []string{"*"},
		"rate_limit_rps":   0,
		"rate_limit_burst": 0,
		"rate_limit_scope": "ip",
	}
}

// DefaultProfile picks the profile matching the current gin mode: release
// builds select "release", everything else "debug".
func DefaultProfile() string {
	if gin.Mode() == gin.ReleaseMode {
		return ProfileRelease
	}
	return ProfileDebug
}

// Load builds the layered configuration described by s: defaults, then the
// profile tables of the configuration file, then APP_* environment variables.
// A missing configuration file is tolerated.
func Load(s *Settings) (*Layered, error) {
	if s == nil {
		s = DefaultSettings()
	}

	profile := s.Profile
	if profile == "" {
		profile = DefaultProfile()
	}

	l := NewLayered(profile).Merge(Defaults())

	if s.ConfigFile != "" {
		if err := l.MergeFile(s.ConfigFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	l.MergeEnv(EnvPrefix, os.Environ())
	return l, nil
}
