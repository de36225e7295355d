// Package config handles configuration file loading and parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tiagoad/discord-lastfm-rich-presence/internal/failure"
	"github.com/tiagoad/discord-lastfm-rich-presence/internal/model"
)

// Default configuration values.
const (
	DefaultPath             = "./config.toml"
	DefaultScrobbleEndpoint = "https://ws.audioscrobbler.com/2.0/"
	DefaultDiscordClientID  = "872110819100463214"
	DefaultInterval         = 60  // seconds
	DefaultRateLimitBackoff = 180 // seconds
	DefaultPlayingThreshold = 120 // seconds
	DefaultLogLevel         = LogLevelInfo
	DefaultLogFormat        = LogFormatText
)

// Log levels accepted in log_level.
const (
	LogLevelDebug    = "debug"
	LogLevelInfo     = "info"
	LogLevelWarning  = "warning"
	LogLevelError    = "error"
	LogLevelCritical = "critical"
)

// Log formats accepted in log_format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ValidLogLevels returns all valid log_level values.
func ValidLogLevels() []string {
	return []string{LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelCritical}
}

// ValidLogFormats returns all valid log_format values.
func ValidLogFormats() []string {
	return []string{LogFormatText, LogFormatJSON}
}

// Config is the disclfmpresence configuration.
// Durations are whole seconds, as written in the TOML file.
type Config struct {
	ScrobbleAPIKey   string `toml:"scrobble_api_key"`   // https://www.last.fm/api/account/create
	ScrobbleUsername string `toml:"scrobble_username"`
	ScrobbleEndpoint string `toml:"scrobble_endpoint"`
	DiscordClientID  string `toml:"discord_client_id"`
	Interval         int    `toml:"interval"`           // seconds between checks
	RateLimitBackoff int    `toml:"rate_limit_backoff"` // seconds before retrying a failed request
	PlayingThreshold int    `toml:"playing_threshold"`  // seconds a finished track still counts as playing
	LogLevel         string `toml:"log_level"`
	LogFormat        string `toml:"log_format"`
	NotifyOnFatal    bool   `toml:"notify_on_fatal"` // desktop notification when the daemon stops on an error
}

// DefaultConfig returns a Config with default values.
// The API key and username have no default.
func DefaultConfig() *Config {
	return &Config{
		ScrobbleEndpoint: DefaultScrobbleEndpoint,
		DiscordClientID:  DefaultDiscordClientID,
		Interval:         DefaultInterval,
		RateLimitBackoff: DefaultRateLimitBackoff,
		PlayingThreshold: DefaultPlayingThreshold,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

// ResolvePath picks the config file path: a positional argument wins over
// the --config flag, which wins over DefaultPath.
func ResolvePath(args []string, flagPath string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if flagPath != "" {
		return flagPath
	}
	return DefaultPath
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// LoadFile loads and validates the configuration at path.
// All errors are *failure.Error of kind failure.Config.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.NewConfig(failure.CodeConfigLoad, "error loading config file", err)
	}
	return Parse(data)
}

// Parse decodes TOML data on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) && len(strict.Errors) > 0 {
			key := strings.Join(strict.Errors[0].Key(), ".")
			return nil, failure.NewConfig(failure.CodeConfigInvalid,
				fmt.Sprintf("the configured key %q is not supported", key), nil)
		}
		return nil, failure.NewConfig(failure.CodeConfigParse, "error parsing config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, failure.NewConfig(failure.CodeConfigInvalid, err.Error(), nil)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var missing []string
	if c.ScrobbleAPIKey == "" {
		missing = append(missing, `"scrobble_api_key"`)
	}
	if c.ScrobbleUsername == "" {
		missing = append(missing, `"scrobble_username"`)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config key(s): %s", strings.Join(missing, ", "))
	}

	u, err := url.Parse(c.ScrobbleEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("scrobble_endpoint must be an absolute http(s) URL, got %q", c.ScrobbleEndpoint)
	}

	if c.DiscordClientID == "" {
		return errors.New("discord_client_id must not be empty")
	}

	if c.Interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d", c.Interval)
	}
	if c.RateLimitBackoff < 1 {
		return fmt.Errorf("rate_limit_backoff must be at least 1, got %d", c.RateLimitBackoff)
	}
	if c.PlayingThreshold < 0 {
		return fmt.Errorf("playing_threshold must not be negative, got %d", c.PlayingThreshold)
	}

	if !contains(ValidLogLevels(), c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: %v", c.LogLevel, ValidLogLevels())
	}
	if !contains(ValidLogFormats(), c.LogFormat) {
		return fmt.Errorf("invalid log_format %q, must be one of: %v", c.LogFormat, ValidLogFormats())
	}

	return nil
}

// Save writes the configuration to path atomically.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file holds an API key
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// RetryPolicy returns the fetcher retry policy.
func (c *Config) RetryPolicy() model.RetryPolicy {
	return model.NewRetryPolicy(seconds(c.RateLimitBackoff))
}

// PollConfig returns the loop timing.
func (c *Config) PollConfig() model.PollConfig {
	return model.PollConfig{
		Interval:         seconds(c.Interval),
		PlayingThreshold: seconds(c.PlayingThreshold),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
