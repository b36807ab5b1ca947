// ABOUTME: Configuration loading for the sitever-check update monitor client
// ABOUTME: Loads TOML config with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/2389/sitever/internal/monitor"
)

// Client monitor defaults, shared with the monitor itself.
const (
	DefaultAutoReloadDelay = monitor.DefaultAutoReloadDelay
	DefaultShowDelay       = monitor.DefaultShowDelay
)

// ClientConfig represents the sitever-check configuration
type ClientConfig struct {
	Monitor MonitorConfig       `toml:"monitor"`
	Page    PageConfig          `toml:"page"`
	Storage ClientStorageConfig `toml:"storage"`
	Logging LoggingConfig       `toml:"logging"`
}

// MonitorConfig mirrors the options recognized by the update monitor
type MonitorConfig struct {
	APIEndpoint      string `toml:"api_endpoint"`
	ShowNotification *bool  `toml:"show_notification"`
	Debug            bool   `toml:"debug"`

	AutoReloadDelay time.Duration `toml:"-"`
	ShowDelay       time.Duration `toml:"-"`

	// Raw string values for TOML unmarshaling
	AutoReloadDelayRaw string `toml:"auto_reload_delay"`
	ShowDelayRaw       string `toml:"show_delay"`
}

// Notify reports whether the update prompt should be shown. Defaults to true.
func (m MonitorConfig) Notify() bool {
	return m.ShowNotification == nil || *m.ShowNotification
}

// PageConfig identifies the page the client is "viewing"
type PageConfig struct {
	URL string `toml:"url"` // defaults to the API endpoint's origin
	// WorkerScript is registered as the page's background worker.
	// Empty disables registration.
	WorkerScript string `toml:"worker_script"`
}

// ClientStorageConfig holds where durable client state and caches live
type ClientStorageConfig struct {
	StatePath string `toml:"state_path"`
	CacheDir  string `toml:"cache_dir"`
}

// LoadClient reads a client config from the given path, expanding environment variables.
func LoadClient(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg ClientConfig
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := parseClientDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func parseClientDurations(cfg *ClientConfig) error {
	cfg.Monitor.AutoReloadDelay = DefaultAutoReloadDelay
	cfg.Monitor.ShowDelay = DefaultShowDelay

	if raw := cfg.Monitor.AutoReloadDelayRaw; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing auto_reload_delay %q: %w", raw, err)
		}
		cfg.Monitor.AutoReloadDelay = d
	}

	if raw := cfg.Monitor.ShowDelayRaw; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing show_delay %q: %w", raw, err)
		}
		cfg.Monitor.ShowDelay = d
	}

	return nil
}

// Validate checks that required client config fields are present and valid.
func (c *ClientConfig) Validate() error {
	if c.Monitor.APIEndpoint == "" {
		return fmt.Errorf("monitor.api_endpoint is required")
	}
	u, err := url.Parse(c.Monitor.APIEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("monitor.api_endpoint must be an absolute URL, got %q", c.Monitor.APIEndpoint)
	}
	if c.Monitor.AutoReloadDelay <= 0 {
		return fmt.Errorf("monitor.auto_reload_delay must be positive")
	}
	if c.Monitor.ShowDelay < 0 {
		return fmt.Errorf("monitor.show_delay must not be negative")
	}
	if c.Storage.StatePath == "" {
		return fmt.Errorf("storage.state_path is required")
	}
	return nil
}
