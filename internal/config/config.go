package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

const (
	maximumConfiguredSessions = 1024
	maximumRatePerMinute      = 10000
	maximumRateBurst          = 1000
	minimumFrameInterval      = 5 * time.Millisecond
	maximumFrameInterval      = time.Second
)

// AudioMode selects how the virtual audio channel behaves.
type AudioMode string

const (
	// AudioVirtual plays tracks on the in-memory mixer shown in the status bar.
	AudioVirtual AudioMode = "virtual"
	// AudioMuted rejects every playback request, as a browser autoplay policy
	// would.
	AudioMuted AudioMode = "muted"
)

// Config captures startup settings for the reveal entrypoint.
type Config struct {
	Host               string        `env:"REVEAL_SSH_HOST"               envDefault:"0.0.0.0"`
	Port               int           `env:"REVEAL_SSH_PORT"               envDefault:"2222"`
	HostKeyPath        string        `env:"REVEAL_SSH_HOST_KEY_PATH"      envDefault:".data/host_ed25519"`
	IdleTimeout        time.Duration `env:"REVEAL_SSH_IDLE_TIMEOUT"       envDefault:"120s"`
	MaxSessions        int           `env:"REVEAL_SSH_MAX_SESSIONS"       envDefault:"32"`
	RateLimitPerMinute int           `env:"REVEAL_RATE_LIMIT_PER_MINUTE"  envDefault:"30"`
	RateLimitBurst     int           `env:"REVEAL_RATE_LIMIT_BURST"       envDefault:"10"`
	StatusAddr         string        `env:"REVEAL_STATUS_ADDR"`
	ThemeFile          string        `env:"REVEAL_THEME_FILE"`
	OptionA            string        `env:"REVEAL_OPTION_A"               envDefault:"expedition33"`
	OptionB            string        `env:"REVEAL_OPTION_B"               envDefault:"baldursgate3"`
	AudioMode          AudioMode     `env:"REVEAL_AUDIO_MODE"             envDefault:"virtual"`
	FrameInterval      time.Duration `env:"REVEAL_FRAME_INTERVAL"         envDefault:"33ms"`
	LogLevel           string        `env:"REVEAL_LOG_LEVEL"              envDefault:"info"`
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               2222,
		HostKeyPath:        ".data/host_ed25519",
		IdleTimeout:        120 * time.Second,
		MaxSessions:        32,
		RateLimitPerMinute: 30,
		RateLimitBurst:     10,
		OptionA:            "expedition33",
		OptionB:            "baldursgate3",
		AudioMode:          AudioVirtual,
		FrameInterval:      33 * time.Millisecond,
		LogLevel:           "info",
	}
}

// LoadFromEnv loads runtime configuration from environment variables.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize trims and cleans values in place and reports every invalid
// setting in one error.
func (c *Config) Normalize() error {
	var errs []error

	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		errs = append(errs, errors.New("REVEAL_SSH_HOST must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("REVEAL_SSH_PORT must be between %d and %d", 1, 65535))
	}

	c.HostKeyPath = filepath.Clean(strings.TrimSpace(c.HostKeyPath))
	if c.HostKeyPath == "." {
		errs = append(errs, errors.New("REVEAL_SSH_HOST_KEY_PATH must not resolve to current directory"))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, errors.New("REVEAL_SSH_IDLE_TIMEOUT must be greater than 0"))
	}
	errs = appendRange(errs, "REVEAL_SSH_MAX_SESSIONS", c.MaxSessions, 1, maximumConfiguredSessions)
	errs = appendRange(errs, "REVEAL_RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute, 1, maximumRatePerMinute)
	errs = appendRange(errs, "REVEAL_RATE_LIMIT_BURST", c.RateLimitBurst, 1, maximumRateBurst)

	c.StatusAddr = strings.TrimSpace(c.StatusAddr)
	if c.StatusAddr != "" {
		if _, _, err := net.SplitHostPort(c.StatusAddr); err != nil {
			errs = append(errs, fmt.Errorf("REVEAL_STATUS_ADDR must be host:port: %w", err))
		}
	}
	c.ThemeFile = strings.TrimSpace(c.ThemeFile)

	c.OptionA = strings.TrimSpace(c.OptionA)
	c.OptionB = strings.TrimSpace(c.OptionB)
	switch {
	case c.OptionA == "" || c.OptionB == "":
		errs = append(errs, errors.New("REVEAL_OPTION_A and REVEAL_OPTION_B must not be empty"))
	case c.OptionA == c.OptionB:
		errs = append(errs, fmt.Errorf("REVEAL_OPTION_A and REVEAL_OPTION_B must differ, both are %q", c.OptionA))
	}

	c.AudioMode = AudioMode(strings.ToLower(strings.TrimSpace(string(c.AudioMode))))
	if c.AudioMode != AudioVirtual && c.AudioMode != AudioMuted {
		errs = append(errs, fmt.Errorf("REVEAL_AUDIO_MODE must be %q or %q", AudioVirtual, AudioMuted))
	}
	if c.FrameInterval < minimumFrameInterval || c.FrameInterval > maximumFrameInterval {
		errs = append(errs, fmt.Errorf("REVEAL_FRAME_INTERVAL must be between %s and %s", minimumFrameInterval, maximumFrameInterval))
	}
	if _, err := log.ParseLevel(strings.TrimSpace(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("REVEAL_LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// Addr is the SSH listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Level is the parsed log level; invalid values fall back to info.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func appendRange(errs []error, key string, value, min, max int) []error {
	if value < min || value > max {
		return append(errs, fmt.Errorf("%s must be between %d and %d", key, min, max))
	}
	return errs
}
