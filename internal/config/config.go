package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oukeidos/lapsectl/internal/files"
	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/remote"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultWatchInterval = 5 * time.Second
	MinWatchInterval     = time.Second
	fileName             = "config.yaml"
)

// Config is the client configuration. It never stores timelapse settings;
// those always come from the service or the user.
type Config struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	DownloadDir   string        `yaml:"download_dir"`
	WatchInterval time.Duration `yaml:"watch_interval"`
	LogLevel      string        `yaml:"log_level"`
}

func Default() Config {
	dir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, "Videos", "timelapses")
	}
	return Config{
		BaseURL:       remote.DefaultBaseURL,
		Timeout:       DefaultTimeout,
		DownloadDir:   dir,
		WatchInterval: DefaultWatchInterval,
		LogLevel:      "info",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/lapsectl/config.yaml or the platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "lapsectl", fileName), nil
}

// Load reads path. A missing file yields the defaults; any other read or
// parse failure is returned. Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("Config file not found; using defaults", "path", path)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.WatchInterval < MinWatchInterval {
		return fmt.Errorf("watch_interval must be at least %s, got %s", MinWatchInterval, c.WatchInterval)
	}
	if strings.TrimSpace(c.DownloadDir) == "" {
		return fmt.Errorf("download_dir is empty")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Write stores c at path, creating the parent directory.
func Write(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := files.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
