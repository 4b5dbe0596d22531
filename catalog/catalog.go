// Package catalog persists the normalized manga catalogue: entity upserts
// with surrogate-key resolution and delete-then-insert reconciliation of
// the many-to-many label mappings.
package catalog

import (
	"sort"
	"time"
)

// Manga is the primary entity, keyed naturally by Code.
type Manga struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	JobID       string `json:"job_id"`
}

// Label is an author or a genre, keyed naturally by Name.
type Label struct {
	ID   int64
	Name string
}

// MangaChapter is the child entity. MangaID is nil while the parent manga
// is unknown.
type MangaChapter struct {
	ID        int64
	MangaID   *int64
	MangaCode string
	Title     string
	URL       string
	UpdatedAt time.Time
	JobID     string
}

// Resolved reports whether the chapter is linked to its parent.
func (c MangaChapter) Resolved() bool { return c.MangaID != nil }

// Mapping is one join row between a manga and a label.
type Mapping struct {
	MangaID int64
	LabelID int64
	JobID   string
}

// Index resolves natural keys to surrogate ids. Build it once per upsert
// batch from the upserted entities.
type Index struct {
	parents map[string]int64
	labels  map[string]int64
}

// NewIndex indexes mangas by code and labels by name.
func NewIndex(mangas []Manga, labels []Label) *Index {
	ix := &Index{
		parents: make(map[string]int64, len(mangas)),
		labels:  make(map[string]int64, len(labels)),
	}
	for _, m := range mangas {
		ix.parents[m.Code] = m.ID
	}
	for _, l := range labels {
		ix.labels[l.Name] = l.ID
	}
	return ix
}

// Parent returns the manga id for code.
func (ix *Index) Parent(code string) (int64, bool) {
	id, ok := ix.parents[code]
	return id, ok
}

// Label returns the label id for name.
func (ix *Index) Label(name string) (int64, bool) {
	id, ok := ix.labels[name]
	return id, ok
}

// ParentIDs returns every indexed manga id, ascending.
func (ix *Index) ParentIDs() []int64 {
	ids := make([]int64, 0, len(ix.parents))
	for _, id := range ix.parents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
