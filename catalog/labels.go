package catalog

import (
	"strings"

	"github.com/teranos/mangasync/dedup"
)

// DefaultSeparator joins label lists in raw overview rows.
const DefaultSeparator = ";"

// ExplodeLabels splits a joined label list into trimmed, non-empty,
// distinct names in first-seen order. An empty sep means DefaultSeparator.
func ExplodeLabels(list, sep string) []string {
	if sep == "" {
		sep = DefaultSeparator
	}
	var names []string
	seen := map[string]bool{}
	for _, part := range strings.Split(list, sep) {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Pair links a parent code to a label name before ids are known.
type Pair struct {
	ParentCode string
	LabelName  string
}

// Field implements dedup.Record.
func (p Pair) Field(name string) (string, bool) {
	switch name {
	case "parent_code":
		return p.ParentCode, true
	case "label_name":
		return p.LabelName, true
	}
	return "", false
}

// pairKey is the natural key of a Pair.
var pairKey = dedup.Options{Keys: []string{"parent_code", "label_name"}}

// LabelSet accumulates parent/label pairs and distinct label names over a
// batch of parents.
type LabelSet struct {
	sep   string
	pairs []Pair
	names []string
	seen  map[string]bool
}

// NewLabelSet returns an empty set splitting lists on sep.
func NewLabelSet(sep string) *LabelSet {
	return &LabelSet{sep: sep, seen: map[string]bool{}}
}

// Add records every label of list under parentCode.
func (s *LabelSet) Add(parentCode, list string) {
	for _, name := range ExplodeLabels(list, s.sep) {
		s.pairs = append(s.pairs, Pair{ParentCode: parentCode, LabelName: name})
		if !s.seen[name] {
			s.seen[name] = true
			s.names = append(s.names, name)
		}
	}
}

// Names returns the distinct label names across the batch, first-seen order.
func (s *LabelSet) Names() []string { return s.names }

// Pairs returns the distinct parent/label pairs.
func (s *LabelSet) Pairs() []Pair { return dedup.Resolve(s.pairs, pairKey) }
