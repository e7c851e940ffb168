// Package config loads and saves the YAML configuration of the qical
// driver: the calendar sources to read, the agenda horizon and the refresh
// schedule.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one calendar source: either a local .ics file
// (Path) or a remote feed (URL). Exactly one of the two should be set; when
// both are, Path wins.
type SourceConfig struct {
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Path is a local .ics file path.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// URL is a remote feed endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Name is a human-friendly label for output.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// Config is the top-level driver configuration.
type Config struct {
	// HorizonDays is how many days ahead of "now" the agenda window spans.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// RefreshCron is a cron-style schedule (e.g. "*/30 * * * *") for
	// periodic re-read of the sources in watch mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir is where remote feed bodies and their conditional-request
	// metadata are cached.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Sources is the list of calendars to read.
	Sources []SourceConfig `yaml:"sources" json:"sources"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		HorizonDays: 7,
		RefreshCron: "*/30 * * * *",
		CacheDir:    "./var/feed-cache",
		Sources:     []SourceConfig{},
	}
}

// Normalize fills missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 7
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/30 * * * *"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/feed-cache"
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		if c.Sources[i].ID == "" {
			if c.Sources[i].Path != "" {
				c.Sources[i].ID = filepath.Base(c.Sources[i].Path)
			} else {
				c.Sources[i].ID = c.Sources[i].URL
			}
		}
	}
}

// Load reads the configuration from the given YAML path. A missing file is
// first-run: the default config is written there (0600) and returned.
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

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions, creating the parent directory as needed.
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

	tmp, err := os.CreateTemp(dir, ".qical-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
