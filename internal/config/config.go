package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value.
const (
	DefaultAddr           = ":8317"
	DefaultDSN            = "perkpass.db"
	DefaultRotationWindow = 30 * time.Second
	DefaultTolerance      = 1
	DefaultHistorySize    = 10
	DefaultJWTExpiry      = 24 * time.Hour
)

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

// UnmarshalYAML parses a duration string or a bare number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		return nil
	}
	parsed, errParse := time.ParseDuration(raw)
	if errParse != nil {
		var seconds int64
		if _, errScan := fmt.Sscanf(raw, "%d", &seconds); errScan != nil {
			return fmt.Errorf("config: invalid duration %q", raw)
		}
		parsed = time.Duration(seconds) * time.Second
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds the persistence DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RotationConfig controls token rotation behavior.
type RotationConfig struct {
	Window      Duration `yaml:"window"`
	Tolerance   int      `yaml:"tolerance"`
	HistorySize int      `yaml:"history-size"`
}

// VaultConfig holds the hex-encoded key protecting card secrets at rest.
type VaultConfig struct {
	Key string `yaml:"key"`
}

// RedisConfig holds the optional redemption event publisher settings.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// JWTConfig holds bearer token settings for the API.
type JWTConfig struct {
	Secret string   `yaml:"secret"`
	Expiry Duration `yaml:"expiry"`
}

// LogConfig controls log level and optional rotating file output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Rotation RotationConfig `yaml:"rotation"`
	Vault    VaultConfig    `yaml:"vault"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
}

// ResolvePath returns the config file path, preferring the PERKPASS_CONFIG
// environment variable over the provided default.
func ResolvePath(fallback string) string {
	if value := strings.TrimSpace(os.Getenv("PERKPASS_CONFIG")); value != "" {
		return value
	}
	return fallback
}

// Load reads and parses the YAML config file, applying defaults for any
// omitted values.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		if !os.IsNotExist(errRead) {
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	} else if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	cfg.applyDefaults()
	if errValidate := cfg.validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// validate rejects values the engine cannot run with.
func (c *Config) validate() error {
	if w := c.Rotation.Window.Std(); w < time.Second {
		return fmt.Errorf("config: rotation window %s is below the 1s minimum", w)
	}
	return nil
}

// applyDefaults fills zero-valued fields with defaults.
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = DefaultAddr
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		c.Database.DSN = DefaultDSN
	}
	if c.Rotation.Window.Std() <= 0 {
		c.Rotation.Window = Duration(DefaultRotationWindow)
	}
	if c.Rotation.Tolerance <= 0 {
		c.Rotation.Tolerance = DefaultTolerance
	}
	if c.Rotation.HistorySize <= 0 {
		c.Rotation.HistorySize = DefaultHistorySize
	}
	if c.JWT.Expiry.Std() <= 0 {
		c.JWT.Expiry = Duration(DefaultJWTExpiry)
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if strings.TrimSpace(c.Redis.Channel) == "" {
		c.Redis.Channel = "perkpass.redemptions"
	}
}
