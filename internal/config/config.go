package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "transitdesk"
	configFileName = "config.yaml"

	DefaultAPIURL = "http://localhost:8080/api/v1"

	BackendFile    = "file"
	BackendKeyring = "keyring"
	BackendSQLite  = "sqlite"
	BackendMemory  = "memory"
)

// Config holds all configuration for the console
type Config struct {
	// API Configuration
	API APIConfig `yaml:"api"`

	// Session storage Configuration
	Session SessionConfig `yaml:"session"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// LogoutOnRefreshRejected ends the local session when the backend refuses
	// the refresh token
	LogoutOnRefreshRejected bool `yaml:"logout_on_refresh_rejected"`
}

// SessionConfig selects where the session is persisted
type SessionConfig struct {
	Backend string `yaml:"backend"` // file, keyring, sqlite, memory
	Path    string `yaml:"path"`    // file and sqlite only
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// Dir returns the user config directory, honouring XDG_CONFIG_HOME
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName), nil
}

// DefaultPath returns the path to the user config file
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads .env files, the YAML config file and environment overrides.
// An empty path means the default location, which may be absent. The result
// is not validated: callers layer their own overrides and then call Validate.
func Load(path string) (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file yet, defaults apply
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefaults returns the built-in defaults with environment overrides
// applied. No config file is read.
func LoadDefaults() (*Config, error) {
	cfg := defaultConfig()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:                     DefaultAPIURL,
			Timeout:                 30 * time.Second,
			LogoutOnRefreshRejected: true,
		},
		Session: SessionConfig{
			Backend: BackendFile,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TRANSITDESK_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("TRANSITDESK_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TRANSITDESK_HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("TRANSITDESK_SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("TRANSITDESK_SESSION_PATH"); v != "" {
		cfg.Session.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("invalid api url %q: %w", c.API.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q: must be an absolute http(s) URL", c.API.URL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}

	switch c.Session.Backend {
	case BackendFile, BackendKeyring, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid session backend '%s', must be one of: file, keyring, sqlite, memory", c.Session.Backend)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format '%s', must be one of: json, console", c.Logging.Format)
	}

	return nil
}

// APIHost returns host[:port] of the API, used to key per-server storage
func (c *Config) APIHost() string {
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return c.API.URL
	}
	return u.Host
}

// SessionPath returns the session file or database path for the selected
// backend, defaulting into the user config directory
func (c *Config) SessionPath() (string, error) {
	if c.Session.Path != "" {
		return c.Session.Path, nil
	}

	dir, err := Dir()
	if err != nil {
		return "", err
	}

	switch c.Session.Backend {
	case BackendSQLite:
		return filepath.Join(dir, "session.db"), nil
	default:
		return filepath.Join(dir, "session.json"), nil
	}
}

// Save writes the configuration to path as YAML
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
