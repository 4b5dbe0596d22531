package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/teranos/mangasync/am/geotime"
	"github.com/teranos/mangasync/errors"
)

// Built-in defaults
const (
	DefaultDatabasePath      = "mangasync.db"
	DefaultTimezone          = "Asia/Jakarta"
	DefaultLabelSeparator    = ";"
	DefaultScrapeWorkers     = 4
	DefaultRequestsPerMinute = 60
	DefaultMirrorDir         = "mirror"
	DefaultScrapeTimeout     = 30
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("sync.timezone", DefaultTimezone)
	v.SetDefault("sync.skip_invalid", false)
	v.SetDefault("sync.atomic_reconcile", false)
	v.SetDefault("sync.label_separator", DefaultLabelSeparator)
	v.SetDefault("sync.services.overviews", DefaultOverviewsService)
	v.SetDefault("sync.services.chapters", DefaultChaptersService)

	v.SetDefault("scrape.workers", DefaultScrapeWorkers)
	v.SetDefault("scrape.requests_per_minute", DefaultRequestsPerMinute) // polite default for the upstream site
	v.SetDefault("scrape.source", SourceMirror)
	v.SetDefault("scrape.mirror_dir", DefaultMirrorDir)
	v.SetDefault("scrape.base_url", "")
	v.SetDefault("scrape.allow_private", false)
	v.SetDefault("scrape.timeout_seconds", DefaultScrapeTimeout)
	v.SetDefault("scrape.slugs", []string{})
}

// BindSensitiveEnvVars explicitly binds configuration that deployments set through the environment
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "MANGASYNC_DATABASE_PATH")
	v.BindEnv("sync.timezone", "MANGASYNC_SYNC_TIMEZONE")
	v.BindEnv("scrape.base_url", "MANGASYNC_SCRAPE_BASE_URL")
}

// Default returns a Config populated with built-in defaults only
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// defaults always unmarshal
		panic(err)
	}
	return cfg
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// Location resolves sync.timezone, accepting abbreviations and city names
func (c *Config) Location() (*time.Location, error) {
	tz := c.Sync.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	name, err := geotime.NormalizeTimezone(tz)
	if err != nil {
		return nil, errors.Wrap(err, "sync.timezone")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %s", name)
	}
	return loc, nil
}

// GetLabelSeparator returns the label list separator (default ";")
func (c *Config) GetLabelSeparator() string {
	if c.Sync.LabelSeparator == "" {
		return DefaultLabelSeparator
	}
	return c.Sync.LabelSeparator
}

// GetOverviewsService returns the overview producer service name
func (c *Config) GetOverviewsService() string {
	if c.Sync.Services.Overviews == "" {
		return DefaultOverviewsService
	}
	return c.Sync.Services.Overviews
}

// GetChaptersService returns the chapter producer service name
func (c *Config) GetChaptersService() string {
	if c.Sync.Services.Chapters == "" {
		return DefaultChaptersService
	}
	return c.Sync.Services.Chapters
}

// GetScrapeTimeout returns the per-request timeout of the http source
func (c *Config) GetScrapeTimeout() time.Duration {
	if c.Scrape.TimeoutSeconds <= 0 {
		return DefaultScrapeTimeout * time.Second
	}
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Sync: {Timezone: %s, SkipInvalid: %t}, Scrape: {Source: %s, Workers: %d, Slugs: %d}}",
		c.Database.Path, c.Sync.Timezone, c.Sync.SkipInvalid, c.Scrape.Source, c.Scrape.Workers, len(c.Scrape.Slugs))
}
