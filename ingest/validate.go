package ingest

import (
	"strings"
	"time"

	"github.com/teranos/mangasync/errors"
)

// Rejection describes one raw row that failed validation.
type Rejection struct {
	ID     int64
	JobID  string
	Key    string
	Reason string
}

// Validated holds the rows that passed and the ones that did not.
type Validated[T any] struct {
	Valid    []T
	Rejected []Rejection
}

// Validator checks raw rows for the fields the sync flows depend on.
// With SkipInvalid unset the first batch containing an invalid row fails
// with a ValidationError; with it set, invalid rows are returned in
// Rejected and left out of Valid.
type Validator struct {
	Location    *time.Location
	SkipInvalid bool
}

// Overviews validates raw overview rows.
func (v Validator) Overviews(rows []RawManga) (Validated[RawManga], error) {
	var out Validated[RawManga]
	for _, r := range rows {
		if reason := overviewProblem(r); reason != "" {
			out.Rejected = append(out.Rejected, Rejection{ID: r.ID, JobID: r.JobID, Key: r.Code, Reason: reason})
			continue
		}
		out.Valid = append(out.Valid, r)
	}
	return out, v.verdict("overview", out.Rejected)
}

// Chapters validates raw chapter rows and parses their timestamps.
// Rows without a timestamp pass with a zero UpdatedAt.
func (v Validator) Chapters(rows []RawChapter) (Validated[RawChapter], error) {
	loc := v.Location
	if loc == nil {
		loc = time.UTC
	}

	var out Validated[RawChapter]
	for _, r := range rows {
		reason := chapterProblem(r)
		// an empty chapter_updated_at is unknown and stays zero
		if raw := strings.TrimSpace(r.ChapterUpdatedAt); reason == "" && raw != "" {
			ts, err := time.ParseInLocation(ChapterTimeLayout, raw, loc)
			if err != nil {
				reason = "chapter_updated_at is not " + ChapterTimeLayout
			} else {
				r.UpdatedAt = ts
			}
		}
		if reason != "" {
			out.Rejected = append(out.Rejected, Rejection{ID: r.ID, JobID: r.JobID, Key: r.Code + " " + r.ChapterURL, Reason: reason})
			continue
		}
		out.Valid = append(out.Valid, r)
	}
	return out, v.verdict("chapter", out.Rejected)
}

func (v Validator) verdict(kind string, rejected []Rejection) error {
	if len(rejected) == 0 || v.SkipInvalid {
		return nil
	}
	first := rejected[0]
	err := errors.NewValidationError("%d invalid raw %s row(s); first: id %d job %s %q: %s",
		len(rejected), kind, first.ID, first.JobID, first.Key, first.Reason)
	return errors.WithHint(err, "fix the producer output or set sync.skip_invalid to skip and count such rows")
}

func overviewProblem(r RawManga) string {
	switch {
	case r.JobID == "":
		return "job_id is empty"
	case strings.TrimSpace(r.Code) == "":
		return "code is empty"
	case strings.TrimSpace(r.Title) == "":
		return "title is empty"
	}
	flag := strings.ToUpper(strings.TrimSpace(r.IsCompleted))
	if flag != CompletedTrue && flag != CompletedFalse {
		return "is_completed must be TRUE or FALSE"
	}
	return ""
}

func chapterProblem(r RawChapter) string {
	switch {
	case r.JobID == "":
		return "job_id is empty"
	case strings.TrimSpace(r.Code) == "":
		return "code is empty"
	case strings.TrimSpace(r.ChapterURL) == "":
		return "chapter_url is empty"
	case strings.TrimSpace(r.ChapterTitle) == "":
		return "chapter_title is empty"
	}
	return ""
}
