// Package httpclient is the HTTP client producers use to reach catalogue
// sites. Requests are limited to http(s) and, unless AllowPrivate is set,
// to public addresses, including after redirects and DNS resolution.
package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/mangasync/errors"
)

// Defaults for Options.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "mangasync/1"
	maxBodyBytes        = 8 << 20
)

// ErrBlocked marks requests refused before they left the process.
var ErrBlocked = errors.New("request blocked")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return "GET " + e.URL + ": " + http.StatusText(e.Status) + ": " + e.Body
}

// Options configures a Client. Zero values take the defaults.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
	// AllowPrivate permits loopback and private targets, e.g. a local mirror.
	AllowPrivate bool
}

// Client fetches JSON documents.
type Client struct {
	http         *http.Client
	userAgent    string
	allowPrivate bool
}

// New returns a Client for opts.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	c := &Client{
		http:         &http.Client{Timeout: opts.Timeout},
		userAgent:    opts.UserAgent,
		allowPrivate: opts.AllowPrivate,
	}
	c.http.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= opts.MaxRedirects {
			return errors.Mark(errors.Newf("stopped after %d redirects", opts.MaxRedirects), ErrBlocked)
		}
		return errors.Wrap(c.check(req.URL), "redirect")
	}
	if !opts.AllowPrivate {
		dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
		c.http.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "resolve %q", host)
				}
				for _, a := range addrs {
					if isPrivate(a) {
						return nil, errors.Mark(errors.Newf("private address %s for %s", a, host), ErrBlocked)
					}
				}
				// dial the checked address, not the name, so a second lookup cannot differ
				return dialer.DialContext(ctx, network, net.JoinHostPort(addrs[0].String(), port))
			},
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	return c
}

// Check validates rawURL without sending anything.
func (c *Client) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "invalid URL")
	}
	return c.check(u)
}

func (c *Client) check(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return errors.Mark(errors.Newf("scheme %q not allowed", u.Scheme), ErrBlocked)
	}
	if u.User != nil {
		return errors.Mark(errors.New("credentials in URL not allowed"), ErrBlocked)
	}
	host := u.Hostname()
	if host == "" {
		return errors.Mark(errors.New("URL missing host"), ErrBlocked)
	}
	if c.allowPrivate {
		return nil
	}
	if isLocalhost(host) {
		return errors.Mark(errors.Newf("localhost %q not allowed", host), ErrBlocked)
	}
	if a, err := netip.ParseAddr(host); err == nil && isPrivate(a) {
		return errors.Mark(errors.Newf("private address %s not allowed", host), ErrBlocked)
	}
	return nil
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	if err := c.Check(rawURL); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", rawURL)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return &StatusError{URL: rawURL, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", rawURL)
	}
	return nil
}

// isPrivate covers loopback, RFC 1918 / unique-local, link-local,
// multicast, unspecified and the reserved IPv4 ranges.
func isPrivate(a netip.Addr) bool {
	a = a.Unmap()
	if a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() ||
		a.IsMulticast() || a.IsUnspecified() || a.IsInterfaceLocalMulticast() {
		return true
	}
	for _, p := range reserved {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

var reserved = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fec0::/10"),
	netip.MustParsePrefix("2001:db8::/32"),
}

func isLocalhost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host == "localhost" || host == "localhost.localdomain" || strings.HasSuffix(host, ".localhost")
}
