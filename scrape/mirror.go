package scrape

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/teranos/mangasync/errors"
)

// mirrorDoc is the layout of <dir>/<slug>.yaml.
type mirrorDoc struct {
	Overview `yaml:",inline"`
	Chapters []Chapter `yaml:"chapters"`
}

// MirrorSource reads a local mirror: one YAML document per slug. A
// chapter without a code inherits the document's code.
type MirrorSource struct {
	Dir string
}

// NewMirrorSource returns a source over dir.
func NewMirrorSource(dir string) *MirrorSource {
	return &MirrorSource{Dir: dir}
}

// Name implements Source.
func (m *MirrorSource) Name() string { return "mirror" }

// FetchOverview implements Source.
func (m *MirrorSource) FetchOverview(ctx context.Context, slug string) (Overview, error) {
	doc, err := m.read(ctx, slug)
	if err != nil {
		return Overview{}, err
	}
	return doc.Overview, nil
}

// FetchChapters implements Source.
func (m *MirrorSource) FetchChapters(ctx context.Context, slug string) ([]Chapter, error) {
	doc, err := m.read(ctx, slug)
	if err != nil {
		return nil, err
	}
	for i := range doc.Chapters {
		if doc.Chapters[i].Code == "" {
			doc.Chapters[i].Code = doc.Code
		}
	}
	return doc.Chapters, nil
}

func (m *MirrorSource) read(ctx context.Context, slug string) (mirrorDoc, error) {
	if err := ctx.Err(); err != nil {
		return mirrorDoc{}, err
	}
	if err := checkSlug(slug); err != nil {
		return mirrorDoc{}, err
	}
	path := filepath.Join(m.Dir, slug+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "mirror %s", slug)
		if errors.Is(err, os.ErrNotExist) {
			err = errors.WithHintf(err, "add %s or drop %q from scrape.slugs", path, slug)
		}
		return mirrorDoc{}, err
	}
	var doc mirrorDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return mirrorDoc{}, errors.Wrapf(err, "parse %s", path)
	}
	if doc.Code == "" {
		doc.Code = slug
	}
	return doc, nil
}
