// Package config loads the client configuration from
// ~/.config/driftboard/config.yaml. The file supplies the API credential,
// the target project, and UI preferences; a missing file is fine (defaults
// apply) but a missing credential is not.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvToken overrides the file-based credential when set.
	EnvToken = "DRIFTBOARD_TOKEN"

	// EnvConfigPath overrides the default config file location.
	EnvConfigPath = "DRIFTBOARD_CONFIG"

	defaultBaseURL        = "https://app.asana.com/api/1.0"
	defaultTimeoutSeconds = 10
	defaultMaxRetries     = 4
)

// ErrMissingCredential means neither the config file nor the environment
// supplied an access token.
var ErrMissingCredential = errors.New("config: no access token configured")

// Prefs holds persisted UI preferences.
type Prefs struct {
	ShowCompleted bool   `yaml:"show_completed"`
	LogFile       string `yaml:"log_file,omitempty"`
}

// FileConfig models the YAML document on disk.
type FileConfig struct {
	Token          string `yaml:"token,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty"`
	ProjectGID     string `yaml:"project,omitempty"`
	WorkspaceGID   string `yaml:"workspace,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	MaxRetries     int    `yaml:"max_retries,omitempty"`
	Prefs          Prefs  `yaml:"prefs,omitempty"`
}

// Config is the validated runtime configuration.
type Config struct {
	Path string
	File FileConfig

	token string
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(EnvConfigPath)); override != "" {
		return override, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve config dir: %w", err)
	}
	return filepath.Join(base, "driftboard", "config.yaml"), nil
}

// Load reads, defaults, normalizes, and validates the configuration at the
// given path. An absent file yields defaults; the credential may still come
// from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{Path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg.File); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// No file yet: run on defaults.
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.File.applyDefaults()
	cfg.File.normalize()
	if err := cfg.File.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.token = strings.TrimSpace(os.Getenv(EnvToken))
	if cfg.token == "" {
		cfg.token = cfg.File.Token
	}
	return cfg, nil
}

// Credential returns the access token. This is the only credential accessor
// the core needs; the token is read-only and safe to share across calls.
func (c *Config) Credential() (string, error) {
	if c.token == "" {
		return "", ErrMissingCredential
	}
	return c.token, nil
}

// BaseURL returns the service root.
func (c *Config) BaseURL() string { return c.File.BaseURL }

// ProjectGID returns the configured board's project GID.
func (c *Config) ProjectGID() string { return c.File.ProjectGID }

// RequestTimeout bounds each network call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.File.TimeoutSeconds) * time.Second
}

// MaxRetries bounds the client's retry loop.
func (c *Config) MaxRetries() int { return c.File.MaxRetries }

// LogFile returns the diagnostics log path, defaulting next to the config
// file.
func (c *Config) LogFile() string {
	if c.File.Prefs.LogFile != "" {
		return c.File.Prefs.LogFile
	}
	return filepath.Join(filepath.Dir(c.Path), "driftboard.log")
}

func (f *FileConfig) applyDefaults() {
	if f.BaseURL == "" {
		f.BaseURL = defaultBaseURL
	}
	if f.TimeoutSeconds == 0 {
		f.TimeoutSeconds = defaultTimeoutSeconds
	}
	if f.MaxRetries == 0 {
		f.MaxRetries = defaultMaxRetries
	}
}

func (f *FileConfig) normalize() {
	f.Token = strings.TrimSpace(f.Token)
	f.BaseURL = strings.TrimRight(strings.TrimSpace(f.BaseURL), "/")
	f.ProjectGID = strings.TrimSpace(f.ProjectGID)
	f.WorkspaceGID = strings.TrimSpace(f.WorkspaceGID)
	f.Prefs.LogFile = strings.TrimSpace(f.Prefs.LogFile)
}

func (f *FileConfig) validate() error {
	parsed, err := url.Parse(f.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("base_url %q is not a valid URL", f.BaseURL)
	}
	if f.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be >= 1, got %d", f.TimeoutSeconds)
	}
	if f.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", f.MaxRetries)
	}
	return nil
}
