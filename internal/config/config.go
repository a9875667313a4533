package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the command
// API. When nil (or incomplete) the API is unauthenticated, which is
// only sensible behind a trusted reverse proxy.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the command API.
	Listen string `yaml:"listen"`

	// Timezone is the IANA timezone in which "today" is evaluated for
	// reminder thresholds (e.g. "America/Sao_Paulo").
	Timezone string `yaml:"timezone"`

	// ReminderCron is the cron schedule for reminder scans. The
	// reference cadence is hourly.
	ReminderCron string `yaml:"reminder_cron"`

	// ReminderDays is the advance-notice window: a reminder fires on
	// the day exactly this many days before an event start or task
	// deadline.
	ReminderDays int `yaml:"reminder_days"`

	// DataPath is the JSON snapshot location for the calendar.
	DataPath string `yaml:"data_path"`

	// WebhookURL receives reminder notifications. May also be supplied
	// via the GRACECAL_WEBHOOK_URL environment variable so the secret
	// stays out of the config file.
	WebhookURL string `yaml:"webhook_url"`

	// Managers is the allow-list of identities holding the
	// manager/leadership role (event creation, task review).
	Managers []string `yaml:"managers"`

	// BasicAuth, if set, protects all API endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "America/Sao_Paulo",
		ReminderCron: "0 * * * *",
		ReminderDays: 14,
		DataPath:     "data/events.json",
		Managers:     []string{},
	}
}

// Normalize fills missing or zero values with defaults so that
// partially filled configs from older versions still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	if c.ReminderCron == "" {
		c.ReminderCron = "0 * * * *"
	}
	if c.ReminderDays <= 0 {
		c.ReminderDays = 14
	}
	if c.DataPath == "" {
		c.DataPath = "data/events.json"
	}
	if c.Managers == nil {
		c.Managers = []string{}
	}
	if env := os.Getenv("GRACECAL_WEBHOOK_URL"); env != "" {
		c.WebhookURL = env
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600,
// parent directory created) and returned, so a first run leaves an
// editable file behind.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions, creating the parent directory if needed.
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

	tmp, err := os.CreateTemp(dir, ".gracecal-config-*.tmp")
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
