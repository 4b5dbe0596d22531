package scrape

import (
	"context"
	"net/url"
	"strings"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/internal/httpclient"
)

// HTTPSource reads a JSON catalogue API:
//
//	GET {base}/manga/{slug}           -> Overview
//	GET {base}/manga/{slug}/chapters  -> []Chapter
type HTTPSource struct {
	base   string
	client *httpclient.Client
}

// NewHTTPSource returns a source rooted at baseURL.
func NewHTTPSource(baseURL string, client *httpclient.Client) (*HTTPSource, error) {
	if client == nil {
		client = httpclient.New(httpclient.Options{})
	}
	base := strings.TrimRight(baseURL, "/")
	if err := client.Check(base); err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "scrape.base_url %q", baseURL),
			"set scrape.allow_private for a mirror on a private network")
	}
	return &HTTPSource{base: base, client: client}, nil
}

// Name implements Source.
func (h *HTTPSource) Name() string { return "http" }

// FetchOverview implements Source.
func (h *HTTPSource) FetchOverview(ctx context.Context, slug string) (Overview, error) {
	if err := checkSlug(slug); err != nil {
		return Overview{}, err
	}
	var ov Overview
	if err := h.client.GetJSON(ctx, h.base+"/manga/"+url.PathEscape(slug), &ov); err != nil {
		return Overview{}, errors.Wrapf(err, "overview %s", slug)
	}
	if ov.Code == "" {
		ov.Code = slug
	}
	return ov, nil
}

// FetchChapters implements Source.
func (h *HTTPSource) FetchChapters(ctx context.Context, slug string) ([]Chapter, error) {
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	var chapters []Chapter
	if err := h.client.GetJSON(ctx, h.base+"/manga/"+url.PathEscape(slug)+"/chapters", &chapters); err != nil {
		return nil, errors.Wrapf(err, "chapters %s", slug)
	}
	for i := range chapters {
		if chapters[i].Code == "" {
			chapters[i].Code = slug
		}
	}
	return chapters, nil
}
