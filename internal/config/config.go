package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Session backends.
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// StorageConfig selects and configures the event/invitation/provider store.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver      string `yaml:"driver" json:"driver" env:"EVENTEASE_STORAGE_DRIVER"`
	SQLitePath  string `yaml:"sqlite_path" json:"sqlite_path" env:"EVENTEASE_SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn" env:"EVENTEASE_POSTGRES_DSN"`
}

// SessionsConfig configures where in-progress selections live.
type SessionsConfig struct {
	// Backend is "memory" (single process) or "redis" (shared).
	Backend   string `yaml:"backend" json:"backend" env:"EVENTEASE_SESSIONS_BACKEND"`
	RedisAddr string `yaml:"redis_addr" json:"redis_addr" env:"EVENTEASE_REDIS_ADDR"`
	// TTLMinutes bounds how long an untouched selection survives.
	TTLMinutes int `yaml:"ttl_minutes" json:"ttl_minutes" env:"EVENTEASE_SESSION_TTL_MINUTES"`
	// SweepCron is the cron schedule for evicting expired in-memory selections.
	SweepCron string `yaml:"sweep" json:"sweep" env:"EVENTEASE_SESSION_SWEEP"`
}

// DispatchConfig tunes invitation delivery.
type DispatchConfig struct {
	Workers              int `yaml:"workers" json:"workers" env:"EVENTEASE_DISPATCH_WORKERS"`
	SendTimeoutSeconds   int `yaml:"send_timeout_seconds" json:"send_timeout_seconds" env:"EVENTEASE_SEND_TIMEOUT_SECONDS"`
	EventDurationMinutes int `yaml:"event_duration_minutes" json:"event_duration_minutes" env:"EVENTEASE_EVENT_DURATION_MINUTES"`
}

// SMTPConfig configures the email transport. With an empty Host messages
// are only logged: invitations stay pending unless LogOnly is set, in which
// case logging counts as delivery (development setups).
type SMTPConfig struct {
	Host     string `yaml:"host" json:"host" env:"EVENTEASE_SMTP_HOST"`
	Port     int    `yaml:"port" json:"port" env:"EVENTEASE_SMTP_PORT"`
	Username string `yaml:"username" json:"username" env:"EVENTEASE_SMTP_USERNAME"`
	Password string `yaml:"password" json:"-" env:"EVENTEASE_SMTP_PASSWORD"`
	From     string `yaml:"from" json:"from" env:"EVENTEASE_SMTP_FROM"`
	FromName string `yaml:"from_name" json:"from_name" env:"EVENTEASE_SMTP_FROM_NAME"`
	// TLSPolicy is "mandatory", "opportunistic" or "none".
	TLSPolicy string `yaml:"tls_policy" json:"tls_policy" env:"EVENTEASE_SMTP_TLS_POLICY"`
	LogOnly   bool   `yaml:"log_only" json:"log_only" env:"EVENTEASE_SMTP_LOG_ONLY"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials guarding the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"EVENTEASE_LISTEN"`

	// Timezone is the IANA timezone reminder times are entered in
	// (e.g. "Europe/Lisbon").
	Timezone string `yaml:"timezone" json:"timezone" env:"EVENTEASE_TIMEZONE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"EVENTEASE_LOG_LEVEL"`

	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Sessions SessionsConfig `yaml:"sessions" json:"sessions"`
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`
	SMTP     SMTPConfig     `yaml:"smtp" json:"smtp"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that partially
// filled files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./var/eventease.db"
	}

	switch c.Sessions.Backend {
	case SessionsMemory, SessionsRedis:
	default:
		c.Sessions.Backend = SessionsMemory
	}
	if c.Sessions.RedisAddr == "" {
		c.Sessions.RedisAddr = "127.0.0.1:6379"
	}
	if c.Sessions.TTLMinutes <= 0 {
		c.Sessions.TTLMinutes = 120
	}
	if c.Sessions.SweepCron == "" {
		c.Sessions.SweepCron = "*/5 * * * *"
	}

	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.SendTimeoutSeconds <= 0 {
		c.Dispatch.SendTimeoutSeconds = 30
	}
	if c.Dispatch.EventDurationMinutes <= 0 {
		c.Dispatch.EventDurationMinutes = 120
	}

	if c.SMTP.Port <= 0 {
		c.SMTP.Port = 587
	}
	switch c.SMTP.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		c.SMTP.TLSPolicy = "mandatory"
	}
	if c.SMTP.From == "" {
		c.SMTP.From = "no-reply@eventease.local"
	}
	if c.SMTP.FromName == "" {
		c.SMTP.FromName = "EventEase"
	}
}

// Validate reports configuration combinations that cannot work.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.Storage.Driver == DriverPostgres && strings.TrimSpace(c.Storage.PostgresDSN) == "" {
		return errors.New("storage.postgres_dsn is required for the postgres driver")
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SessionTTL returns the selection lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// SendTimeout returns the per-invitation delivery timeout.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Dispatch.SendTimeoutSeconds) * time.Second
}

// EventDuration returns the default length of a generated calendar entry.
func (c *Config) EventDuration() time.Duration {
	return time.Duration(c.Dispatch.EventDurationMinutes) * time.Minute
}

// Load loads configuration from the given YAML path and applies
// EVENTEASE_* environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Return cfg with error so caller can decide.
			return cfg, err
		}
		if err := applyEnv(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	return nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventease-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
