package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/mangasync/errors"
)

func TestCheck(t *testing.T) {
	c := New(Options{})

	tests := []struct {
		name    string
		url     string
		blocked bool
	}{
		{name: "https", url: "https://example.com/manga/x1"},
		{name: "http", url: "http://example.com"},
		{name: "file scheme", url: "file:///etc/passwd", blocked: true},
		{name: "ftp scheme", url: "ftp://example.com", blocked: true},
		{name: "localhost", url: "http://localhost/admin", blocked: true},
		{name: "localhost subdomain", url: "http://admin.localhost/", blocked: true},
		{name: "loopback", url: "http://127.0.0.1/", blocked: true},
		{name: "rfc1918", url: "http://192.168.1.1/", blocked: true},
		{name: "metadata", url: "http://169.254.169.254/latest", blocked: true},
		{name: "ipv6 loopback", url: "http://[::1]/", blocked: true},
		{name: "mapped loopback", url: "http://[::ffff:127.0.0.1]/", blocked: true},
		{name: "credentials", url: "http://user@example.com/", blocked: true},
		{name: "no host", url: "http:///path", blocked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(tt.url)
			if !tt.blocked {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBlocked), "got %v", err)
		})
	}
}

func TestCheck_AllowPrivate(t *testing.T) {
	c := New(Options{AllowPrivate: true})
	assert.NoError(t, c.Check("http://127.0.0.1:8080/mirror"))
	assert.Error(t, c.Check("file:///etc/passwd"), "scheme is checked regardless")
}

func TestIsPrivate(t *testing.T) {
	for addr, want := range map[string]bool{
		"10.1.2.3":      true,
		"172.16.0.1":    true,
		"100.64.0.1":    true,
		"0.1.2.3":       true,
		"fd00::1":       true,
		"fe80::1":       true,
		"8.8.8.8":       false,
		"2606:4700::11": false,
	} {
		assert.Equal(t, want, isPrivate(netip.MustParseAddr(addr)), addr)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"code":"x1","title":"One"}`))
		case "/bad":
			_, _ = w.Write([]byte(`{"code":`))
		default:
			http.Error(w, "no such manga", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(Options{AllowPrivate: true})
	ctx := context.Background()

	var got struct {
		Code  string `json:"code"`
		Title string `json:"title"`
	}
	require.NoError(t, c.GetJSON(ctx, srv.URL+"/ok", &got))
	assert.Equal(t, "x1", got.Code)

	err := c.GetJSON(ctx, srv.URL+"/missing", &got)
	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusNotFound, status.Status)
	assert.Equal(t, "no such manga", status.Body)

	assert.Error(t, c.GetJSON(ctx, srv.URL+"/bad", &got))
}

func TestGetJSON_BlocksLoopbackByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer srv.Close()

	var v any
	err := New(Options{}).GetJSON(context.Background(), srv.URL, &v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlocked))
}

func TestRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	var v any
	err := New(Options{AllowPrivate: true, MaxRedirects: 2}).GetJSON(context.Background(), srv.URL+"/r", &v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlocked))
}
