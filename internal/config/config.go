// Package config loads client configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds everything the client core needs to talk to the API and
// persist its state.
type Config struct {
	// APIBaseURL is the API origin all relative endpoint paths resolve
	// against.
	APIBaseURL string `yaml:"api_base_url" envconfig:"REVULY_API_URL" default:"https://api.revuly.io/v1/"`

	// TokenCookie is the storage key holding the bearer credential.
	TokenCookie string `yaml:"token_cookie" envconfig:"REVULY_TOKEN_COOKIE" default:"revuly_token"`

	// StorePrefix namespaces every key in the client store.
	StorePrefix string `yaml:"store_prefix" envconfig:"REVULY_STORE_PREFIX"`

	// StateDir is where the credential and session snapshots live.
	// Empty means the user config dir; "-" disables persistence entirely.
	StateDir string `yaml:"state_dir" envconfig:"REVULY_STATE_DIR"`

	// ProtectedPrefix is the path prefix of the authenticated app section.
	ProtectedPrefix string `yaml:"protected_prefix" envconfig:"REVULY_PROTECTED_PREFIX" default:"/app"`

	// SessionKey is the storage key for the persisted session snapshot.
	SessionKey string `yaml:"session_key" envconfig:"REVULY_SESSION_KEY" default:"UserStore"`

	// HTTPTimeout bounds each API call. Zero disables the bound.
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"REVULY_HTTP_TIMEOUT" default:"30s"`

	// EnableRetry turns on the backoff retry transport for transient
	// upstream failures.
	EnableRetry bool `yaml:"enable_retry" envconfig:"REVULY_ENABLE_RETRY"`

	// PageSize is the review feed page size.
	PageSize int `yaml:"page_size" envconfig:"REVULY_PAGE_SIZE" default:"18"`

	LogLevel string `yaml:"log_level" envconfig:"REVULY_LOG_LEVEL" default:"info"`
}

// Load builds the configuration from a best-effort .env file and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromPath loads the environment configuration and applies a YAML file
// on top of it.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base URL is required")
	}
	if !strings.HasSuffix(c.APIBaseURL, "/") {
		c.APIBaseURL += "/"
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err == nil {
			c.StateDir = filepath.Join(dir, "revuly")
		}
	}
	return nil
}

// CookieFile is the credential snapshot path, or "" when persistence is off.
func (c *Config) CookieFile() string {
	return c.stateFile("cookies.json")
}

// SessionFile is the session snapshot path, or "" when persistence is off.
func (c *Config) SessionFile() string {
	return c.stateFile("storage.json")
}

func (c *Config) stateFile(name string) string {
	if c.StateDir == "" || c.StateDir == "-" {
		return ""
	}
	return filepath.Join(c.StateDir, name)
}
