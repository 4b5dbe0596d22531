package am

import (
	"strings"

	"github.com/teranos/mangasync/am/geotime"
	"github.com/teranos/mangasync/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Empty database path defaults to DefaultDatabasePath

	if c.Sync.Timezone != "" {
		if _, err := geotime.NormalizeTimezone(c.Sync.Timezone); err != nil {
			return errors.WithHint(
				errors.Wrapf(err, "sync.timezone %q", c.Sync.Timezone),
				"use an IANA zone name such as Asia/Jakarta",
			)
		}
	}

	// The separator must not be whitespace: labels are trimmed after splitting
	if c.Sync.LabelSeparator != "" && strings.TrimSpace(c.Sync.LabelSeparator) == "" {
		return errors.New("sync.label_separator cannot be whitespace")
	}

	if c.Sync.Services.Overviews != "" && c.Sync.Services.Overviews == c.Sync.Services.Chapters {
		return errors.Newf("sync.services.overviews and sync.services.chapters must differ, both are %q",
			c.Sync.Services.Overviews)
	}

	// Scrape workers: 0 is invalid (a fan-out needs at least one worker)
	if c.Scrape.Workers <= 0 {
		return errors.Newf("scrape.workers must be > 0, got %d", c.Scrape.Workers)
	}

	// Requests per minute: 0 = unlimited, negative = invalid
	if c.Scrape.RequestsPerMinute < 0 {
		return errors.Newf("scrape.requests_per_minute must be >= 0, got %d", c.Scrape.RequestsPerMinute)
	}

	switch c.Scrape.Source {
	case "", SourceMirror:
	case SourceHTTP:
		if c.Scrape.BaseURL == "" {
			return errors.WithHint(errors.New("scrape.base_url is required when scrape.source is \"http\""),
				"set scrape.base_url or MANGASYNC_SCRAPE_BASE_URL")
		}
	default:
		return errors.Newf("scrape.source must be %q or %q, got %q", SourceMirror, SourceHTTP, c.Scrape.Source)
	}

	if c.Scrape.TimeoutSeconds < 0 {
		return errors.Newf("scrape.timeout_seconds must be >= 0, got %d", c.Scrape.TimeoutSeconds)
	}

	seen := make(map[string]bool, len(c.Scrape.Slugs))
	for i, slug := range c.Scrape.Slugs {
		if strings.TrimSpace(slug) == "" {
			return errors.Newf("scrape.slugs[%d] is empty", i)
		}
		if seen[slug] {
			return errors.Newf("scrape.slugs contains %q twice", slug)
		}
		seen[slug] = true
	}

	return nil
}
