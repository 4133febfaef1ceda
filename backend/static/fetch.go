package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/grafana/pincers/lib/fsext"
)

// DefaultUserAgent is sent by the HTTP fetcher unless configured otherwise.
const DefaultUserAgent = "pincers/static"

// Page is a fetched document body.
type Page struct {
	// URL is the final location, after redirects.
	URL         *url.URL
	ContentType string
	Body        []byte
	StatusCode  int
}

// Fetcher loads documents for the static backend.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*Page, error)
	Cookies(u *url.URL) []*http.Cookie
}

// FetcherOptions configures NewHTTPFetcher.
type FetcherOptions struct {
	Timeout   time.Duration
	UserAgent string
	// Fs serves file:// locations. Defaults to the OS file system.
	Fs        fsext.Fs
	Transport http.RoundTripper
}

// HTTPFetcher fetches http(s) locations with a cookie jar and decodes
// compressed bodies itself, and reads file:// locations from an afero fs.
type HTTPFetcher struct {
	client    *http.Client
	jar       *cookiejar.Jar
	fs        fsext.Fs
	userAgent string
}

// NewHTTPFetcher returns a fetcher configured by opts.
func NewHTTPFetcher(opts FetcherOptions) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.Fs == nil {
		opts.Fs = fsext.NewOsFs()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client: &http.Client{
			Jar:       jar,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		jar:       jar,
		fs:        opts.Fs,
		userAgent: opts.UserAgent,
	}, nil
}

// Fetch loads u. HTTP error statuses still produce a page, like a browser
// showing an error document.
func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (*Page, error) {
	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "file":
		return f.fetchFile(u)
	case "about":
		return &Page{URL: u, ContentType: "text/html; charset=utf-8", StatusCode: http.StatusOK}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, u)
	}
}

// Cookies returns the jar's cookies for u.
func (f *HTTPFetcher) Cookies(u *url.URL) []*http.Cookie {
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return f.jar.Cookies(u)
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, u *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	// Setting Accept-Encoding turns off the transport's transparent gzip
	// handling, decodeBody takes over.
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return &Page{
		URL:         resp.Request.URL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		StatusCode:  resp.StatusCode,
	}, nil
}

// ncloser matches decoders whose Close returns nothing, like zstd.Decoder.
type ncloser interface {
	Close()
}

func decodeBody(r io.Reader, contentEncoding string) ([]byte, error) {
	var (
		decoder io.Reader
		err     error
	)
	switch enc := strings.ToLower(strings.TrimSpace(contentEncoding)); enc {
	case "", "identity":
		return io.ReadAll(r)
	case "gzip", "x-gzip":
		decoder, err = gzip.NewReader(r)
	case "deflate":
		decoder, err = zlib.NewReader(r)
	case "zstd":
		decoder, err = zstd.NewReader(r)
	case "br":
		decoder = brotli.NewReader(r)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
	if err != nil {
		return nil, fmt.Errorf("decompressing body: %w", err)
	}

	body, err := io.ReadAll(decoder)
	switch c := decoder.(type) {
	case io.Closer:
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	case ncloser:
		c.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("decompressing body: %w", err)
	}
	return body, nil
}

func (f *HTTPFetcher) fetchFile(u *url.URL) (*Page, error) {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	body, err := fsext.ReadFile(f.fs, p)
	if err != nil {
		return nil, err
	}
	ct := "text/html"
	if ext := path.Ext(p); ext == ".xhtml" || ext == ".xml" {
		ct = "application/xhtml+xml"
	}
	return &Page{URL: u, ContentType: ct, Body: body, StatusCode: http.StatusOK}, nil
}
