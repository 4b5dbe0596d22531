// Package jobid generates and parses batch job identifiers.
//
// A job id is a scheduled timestamp rendered in a fixed reference timezone
// as YYYYMMDDhhmmss. Ids sort lexicographically in time order. Two ids
// generated for the same second collide; callers schedule at most one
// producer run per service per second.
package jobid

import (
	"time"
	_ "time/tzdata"

	"github.com/teranos/mangasync/errors"
)

// Layout is the Go time layout of a job id.
const Layout = "20060102150405"

// Width is the length of every valid job id.
const Width = len(Layout)

// DefaultZone is the reference timezone producers have always used.
const DefaultZone = "Asia/Jakarta"

// Generator converts between scheduled times and job ids in one location.
type Generator struct {
	Location *time.Location
}

// NewGenerator returns a Generator for loc; nil means DefaultZone.
func NewGenerator(loc *time.Location) (*Generator, error) {
	if loc == nil {
		l, err := time.LoadLocation(DefaultZone)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", DefaultZone)
		}
		loc = l
	}
	return &Generator{Location: loc}, nil
}

func (g *Generator) location() *time.Location {
	if g == nil || g.Location == nil {
		return defaultGenerator.Location
	}
	return g.Location
}

// Generate renders scheduled in the generator's location. Sub-second
// precision is truncated.
func (g *Generator) Generate(scheduled time.Time) string {
	return scheduled.In(g.location()).Format(Layout)
}

// Parse is the inverse of Generate. The returned time is in the
// generator's location.
func (g *Generator) Parse(id string) (time.Time, error) {
	if len(id) != Width {
		return time.Time{}, errors.NewFormatError("job id %q: want %d digits, got %d characters", id, Width, len(id))
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return time.Time{}, errors.NewFormatError("job id %q: non-digit at position %d", id, i)
		}
	}
	t, err := time.ParseInLocation(Layout, id, g.location())
	if err != nil {
		// digits that do not form a calendar time, e.g. month 13
		return time.Time{}, errors.Mark(errors.Wrapf(err, "job id %q", id), errors.ErrFormat)
	}
	return t, nil
}

// Valid reports whether id parses.
func (g *Generator) Valid(id string) bool {
	_, err := g.Parse(id)
	return err == nil
}

var defaultGenerator = mustDefault()

func mustDefault() *Generator {
	g, err := NewGenerator(nil)
	if err != nil {
		// unreachable with embedded tzdata
		panic(err)
	}
	return g
}

// Default returns the package-level generator.
func Default() *Generator { return defaultGenerator }

// Generate formats scheduled with the default generator.
func Generate(scheduled time.Time) string { return defaultGenerator.Generate(scheduled) }

// Parse parses id with the default generator.
func Parse(id string) (time.Time, error) { return defaultGenerator.Parse(id) }
