// Package ingest moves raw producer batches in and out of the raw tables.
package ingest

import (
	"sort"
	"strings"
	"time"
)

// ChapterTimeLayout is how producers render chapter_updated_at.
const ChapterTimeLayout = "2006-01-02 15:04:05"

// Completion flags as producers write them.
const (
	CompletedTrue  = "TRUE"
	CompletedFalse = "FALSE"
)

// RawManga is one scraped overview row of raw_mangas.
type RawManga struct {
	ID          int64
	JobID       string
	Code        string
	Title       string
	AuthorList  string
	GenreList   string
	IsCompleted string
}

// Field implements dedup.Record.
func (r RawManga) Field(name string) (string, bool) {
	switch name {
	case "job_id":
		return r.JobID, r.JobID != ""
	case "code":
		return r.Code, r.Code != ""
	case "title":
		return r.Title, true
	case "author_list":
		return r.AuthorList, true
	case "genre_list":
		return r.GenreList, true
	case "is_completed":
		return r.IsCompleted, true
	}
	return "", false
}

// Completed reports whether IsCompleted is TRUE, ignoring case.
func (r RawManga) Completed() bool {
	return strings.EqualFold(strings.TrimSpace(r.IsCompleted), CompletedTrue)
}

// RawChapter is one scraped chapter row of raw_manga_chapters.
type RawChapter struct {
	ID               int64
	JobID            string
	Code             string
	ChapterTitle     string
	ChapterURL       string
	ChapterUpdatedAt string

	// UpdatedAt is ChapterUpdatedAt parsed by Validator.
	UpdatedAt time.Time
}

// Field implements dedup.Record.
func (r RawChapter) Field(name string) (string, bool) {
	switch name {
	case "job_id":
		return r.JobID, r.JobID != ""
	case "code":
		return r.Code, r.Code != ""
	case "chapter_url":
		return r.ChapterURL, r.ChapterURL != ""
	case "chapter_title":
		return r.ChapterTitle, true
	case "chapter_updated_at":
		return r.ChapterUpdatedAt, true
	}
	return "", false
}

// JoinLabels renders a label list the way producers store it: sorted,
// de-duplicated and joined by sep.
func JoinLabels(labels []string, sep string) string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return strings.Join(out, sep)
}

// CompletedFlag renders a completion flag.
func CompletedFlag(done bool) string {
	if done {
		return CompletedTrue
	}
	return CompletedFalse
}

// JobIDs returns the distinct job ids of rows in ascending order.
func JobIDs[T interface{ Field(string) (string, bool) }](rows []T) []string {
	seen := map[string]bool{}
	var ids []string
	for _, r := range rows {
		if id, ok := r.Field("job_id"); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
