// Package scrape is the producer side: sources that describe a manga by
// slug, and a bounded fan-out that calls them.
package scrape

import (
	"context"
	"strings"

	"github.com/teranos/mangasync/errors"
)

// Overview is a source's description of one manga.
type Overview struct {
	Code      string   `yaml:"code" json:"code"`
	Title     string   `yaml:"title" json:"title"`
	Authors   []string `yaml:"authors" json:"authors"`
	Genres    []string `yaml:"genres" json:"genres"`
	Completed bool     `yaml:"completed" json:"completed"`
}

// Chapter is one chapter listing. UpdatedAt is the source's rendering,
// "2006-01-02 15:04:05" in the catalogue's timezone.
type Chapter struct {
	Code      string `yaml:"code" json:"code"`
	Title     string `yaml:"title" json:"title"`
	URL       string `yaml:"url" json:"url"`
	UpdatedAt string `yaml:"updated_at" json:"updated_at"`
}

// Source is implemented by each catalogue a producer can read.
type Source interface {
	Name() string
	FetchOverview(ctx context.Context, slug string) (Overview, error)
	FetchChapters(ctx context.Context, slug string) ([]Chapter, error)
}

// checkSlug rejects slugs that could escape a directory or a URL path.
func checkSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\?#%`) {
		return errors.NewValidationError("invalid slug %q", slug)
	}
	return nil
}
