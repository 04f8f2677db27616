package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"pagewise/internal/domain"
)

// Backend names accepted in [search] backend
const (
	BackendChannel = "channel"
	BackendDirect  = "direct"
	BackendScan    = "scan"
)

// Config represents the application configuration
type Config struct {
	Version int             `toml:"version"`
	Viewer  ViewerSettings  `toml:"viewer"`
	Search  SearchSettings  `toml:"search"`
	Channel ChannelSettings `toml:"channel"`
	Log     LogSettings     `toml:"log"`
	Watch   WatchSettings   `toml:"watch"`
}

// ViewerSettings bounds navigation and zoom
type ViewerSettings struct {
	DefaultScale float64 `toml:"default_scale"`
	MinScale     float64 `toml:"min_scale"`
	MaxScale     float64 `toml:"max_scale"`
	ZoomStep     float64 `toml:"zoom_step"`
	LinesPerPage int     `toml:"lines_per_page"` // plain text without form feeds
	AltScreen    bool    `toml:"alt_screen"`
}

// SearchSettings picks the search backend and its options
type SearchSettings struct {
	Backend     string             `toml:"backend"`
	Legacy      bool               `toml:"legacy_topics"`
	Incremental bool               `toml:"incremental"`
	RateLimit   float64            `toml:"rate_limit"` // incremental searches per second
	Find        domain.FindOptions `toml:"find"`
}

// ChannelSettings configures the cross-context channel
type ChannelSettings struct {
	Name      string  `toml:"name"`
	InboxSize int     `toml:"inbox_size"`
	URL       string  `toml:"url"` // relay base URL; empty keeps the surface in process
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// LogSettings controls the log file
type LogSettings struct {
	File    string `toml:"file"`
	Verbose bool   `toml:"verbose"`
}

// WatchSettings controls reload on file change
type WatchSettings struct {
	Enabled    bool `toml:"enabled"`
	DebounceMS int  `toml:"debounce_ms"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	filePath string
}

// NewConfigService creates a config service for the default location
func NewConfigService() ConfigService {
	return &configService{filePath: DefaultPath()}
}

// NewConfigServiceAt creates a config service for path
func NewConfigServiceAt(path string) ConfigService {
	return &configService{filePath: path}
}

// DefaultPath returns $XDG_CONFIG_HOME/pagewise/config.toml or its
// platform equivalent
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "pagewise", "config.toml")
}

func (cs *configService) Path() string {
	return cs.filePath
}

// Load loads the configuration, falling back to defaults when the file
// does not exist
func (cs *configService) Load() (*Config, error) {
	cfg, err := cs.LoadFromPath(cs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Save saves the configuration to file
func (cs *configService) Save(config *Config) error {
	return cs.SaveToPath(config, cs.filePath)
}

// LoadFromPath loads configuration from a specific path. Keys missing from
// the file keep their default values.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Viewer: ViewerSettings{
			DefaultScale: 1.0,
			MinScale:     0.25,
			MaxScale:     5.0,
			ZoomStep:     1.2,
			LinesPerPage: 50,
			AltScreen:    true,
		},
		Search: SearchSettings{
			Backend:     BackendChannel,
			Incremental: true,
			RateLimit:   4,
			Find:        domain.DefaultFindOptions(),
		},
		Channel: ChannelSettings{
			Name:      "pdf-find",
			InboxSize: 256,
			RateLimit: 50,
			Burst:     20,
		},
		Log: LogSettings{
			File: "pagewise.log",
		},
		Watch: WatchSettings{
			Enabled:    true,
			DebounceMS: 150,
		},
	}
}

// Validate rejects settings the viewer cannot run with
func (c *Config) Validate() error {
	var errs []error
	v := c.Viewer
	if v.MinScale <= 0 || v.MaxScale < v.MinScale {
		errs = append(errs, fmt.Errorf("viewer: scale range [%g, %g] is empty", v.MinScale, v.MaxScale))
	}
	if v.DefaultScale < v.MinScale || v.DefaultScale > v.MaxScale {
		errs = append(errs, fmt.Errorf("viewer: default_scale %g outside [%g, %g]", v.DefaultScale, v.MinScale, v.MaxScale))
	}
	if v.ZoomStep <= 1 {
		errs = append(errs, fmt.Errorf("viewer: zoom_step must be greater than 1, got %g", v.ZoomStep))
	}
	switch c.Search.Backend {
	case BackendChannel, BackendDirect, BackendScan:
	default:
		errs = append(errs, fmt.Errorf("search: unknown backend %q", c.Search.Backend))
	}
	if c.Channel.Name == "" {
		errs = append(errs, errors.New("channel: name is empty"))
	}
	if c.Channel.InboxSize < 0 {
		errs = append(errs, fmt.Errorf("channel: negative inbox_size %d", c.Channel.InboxSize))
	}
	return errors.Join(errs...)
}
