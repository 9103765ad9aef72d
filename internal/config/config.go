package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"ngoexplorer/internal/fileutil"
)

// EventsConfig describes the outbound event source.
type EventsConfig struct {
	// Endpoint is the post collection URL; the loader adds ?_limit=N.
	Endpoint string `yaml:"endpoint" json:"endpoint" env:"ENDPOINT"`
	// Limit is the batch size requested per load.
	Limit int `yaml:"limit" json:"limit" env:"LIMIT"`
	// BaseDate (YYYY-MM-DD) is the day the first event is scheduled on.
	BaseDate string `yaml:"base_date" json:"base_date" env:"BASE_DATE"`
	// Timeout bounds one fetch. Zero (the default) applies no deadline.
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
}

// StorageConfig selects where registrations are persisted.
type StorageConfig struct {
	// Driver is one of "file", "sqlite", "memory".
	Driver string `yaml:"driver" json:"driver" env:"DRIVER"`
	// Path is the JSON file or SQLite database path.
	Path string `yaml:"path" json:"path" env:"PATH"`
	// Key is the slot registrations are stored under.
	Key string `yaml:"key" json:"key" env:"KEY"`
	// OnMalformed is "fail" (refuse to start) or "reset" (start empty)
	// when the stored slot cannot be decoded.
	OnMalformed string `yaml:"on_malformed" json:"on_malformed" env:"ON_MALFORMED"`
}

// PreviewConfig controls headless screenshots of the explorer page.
type PreviewConfig struct {
	// Cron is a 5-field cron schedule (e.g. "*/30 * * * *"). Empty disables.
	Cron string `yaml:"cron" json:"cron" env:"CRON"`
	// Path is where preview.png is written.
	Path   string `yaml:"path" json:"path" env:"PATH"`
	Width  int    `yaml:"width" json:"width" env:"WIDTH"`
	Height int    `yaml:"height" json:"height" env:"HEIGHT"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the explorer UI.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`
	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`

	Events  EventsConfig  `yaml:"events" json:"events" envPrefix:"EVENTS_"`
	Storage StorageConfig `yaml:"storage" json:"storage" envPrefix:"STORAGE_"`
	Preview PreviewConfig `yaml:"preview" json:"preview" envPrefix:"PREVIEW_"`
}

// EnvPrefix prefixes every environment override, e.g.
// NGOEXPLORER_STORAGE_DRIVER=sqlite.
const EnvPrefix = "NGOEXPLORER_"

const (
	defaultListen      = "127.0.0.1:8080"
	defaultEndpoint    = "https://jsonplaceholder.typicode.com/posts"
	defaultLimit       = 12
	defaultBaseDate    = "2026-03-12"
	defaultStoragePath = "./data/registrations.json"
	defaultStorageKey  = "ngo-registrations"
	defaultPreviewPath = "./data/preview.png"
	defaultPreviewW    = 1280
	defaultPreviewH    = 960
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		LogLevel: "info",
		Events: EventsConfig{
			Endpoint: defaultEndpoint,
			Limit:    defaultLimit,
			BaseDate: defaultBaseDate,
		},
		Storage: StorageConfig{
			Driver:      "file",
			Path:        defaultStoragePath,
			Key:         defaultStorageKey,
			OnMalformed: "fail",
		},
		Preview: PreviewConfig{
			Path:   defaultPreviewPath,
			Width:  defaultPreviewW,
			Height: defaultPreviewH,
		},
	}
}

// Normalize fills in missing/zero values so partially-filled files
// still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Events.Endpoint == "" {
		c.Events.Endpoint = defaultEndpoint
	}
	if c.Events.Limit <= 0 {
		c.Events.Limit = defaultLimit
	}
	if c.Events.BaseDate == "" {
		c.Events.BaseDate = defaultBaseDate
	}
	if c.Events.Timeout < 0 {
		c.Events.Timeout = 0
	}

	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}
	if c.Storage.Key == "" {
		c.Storage.Key = defaultStorageKey
	}
	switch c.Storage.OnMalformed {
	case "fail", "reset":
	default:
		c.Storage.OnMalformed = "fail"
	}

	if c.Preview.Path == "" {
		c.Preview.Path = defaultPreviewPath
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = defaultPreviewW
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = defaultPreviewH
	}
}

// BaseDate parses Events.BaseDate as a UTC calendar day.
func (c *Config) BaseDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Events.BaseDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: events.base_date: %w", err)
	}
	return t, nil
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := c.BaseDate(); err != nil {
		return err
	}
	return nil
}

// Load loads configuration from the given YAML path and then applies
// NGOEXPLORER_* environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
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
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions, creating
// the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}
