package am

// Config represents the mangasync configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Sync     SyncConfig     `mapstructure:"sync" toml:"sync" json:"sync" yaml:"sync"`
	Scrape   ScrapeConfig   `mapstructure:"scrape" toml:"scrape" json:"scrape" yaml:"scrape"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// SyncConfig configures the reconciliation flows
type SyncConfig struct {
	Timezone        string         `mapstructure:"timezone" toml:"timezone" json:"timezone" yaml:"timezone"`                                 // job ids are rendered in this zone (default: Asia/Jakarta)
	SkipInvalid     bool           `mapstructure:"skip_invalid" toml:"skip_invalid" json:"skip_invalid" yaml:"skip_invalid"`                 // skip and count invalid raw rows instead of aborting
	AtomicReconcile bool           `mapstructure:"atomic_reconcile" toml:"atomic_reconcile" json:"atomic_reconcile" yaml:"atomic_reconcile"` // delete+insert of join rows in one transaction
	LabelSeparator  string         `mapstructure:"label_separator" toml:"label_separator" json:"label_separator" yaml:"label_separator"`     // separator of author_list / genre_list (default: ";")
	Services        ServicesConfig `mapstructure:"services" toml:"services" json:"services" yaml:"services"`
}

// ServicesConfig names the producer services in scraper_logs
type ServicesConfig struct {
	Overviews string `mapstructure:"overviews" toml:"overviews" json:"overviews" yaml:"overviews"`
	Chapters  string `mapstructure:"chapters" toml:"chapters" json:"chapters" yaml:"chapters"`
}

// ScrapeConfig configures the producer flows
type ScrapeConfig struct {
	Workers           int      `mapstructure:"workers" toml:"workers" json:"workers" yaml:"workers"`                                                 // concurrent per-slug fetches (default: 4)
	RequestsPerMinute int      `mapstructure:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute" yaml:"requests_per_minute"` // 0 = unlimited
	Source            string   `mapstructure:"source" toml:"source" json:"source" yaml:"source"`                                                     // "mirror" or "http"
	MirrorDir         string   `mapstructure:"mirror_dir" toml:"mirror_dir" json:"mirror_dir" yaml:"mirror_dir"`                                     // <mirror_dir>/<slug>.yaml
	BaseURL           string   `mapstructure:"base_url" toml:"base_url" json:"base_url" yaml:"base_url"`                                             // catalogue API root for source = "http"
	AllowPrivate      bool     `mapstructure:"allow_private" toml:"allow_private" json:"allow_private" yaml:"allow_private"`                         // permit loopback/private base_url
	TimeoutSeconds    int      `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`                 // per request
	Slugs             []string `mapstructure:"slugs" toml:"slugs" json:"slugs" yaml:"slugs"`
}

// Scrape sources
const (
	SourceMirror = "mirror"
	SourceHTTP   = "http"
)

// Producer service and job names as recorded in scraper_logs
const (
	DefaultOverviewsService = "scraper-overviews"
	DefaultChaptersService  = "scraper-chapters"
	OverviewsJobName        = "mangabats_manga_scraper_overview"
	ChaptersJobName         = "mangabats_manga_scraper_chapters"
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
