// Package static implements a core.Backend over parsed HTML documents. It
// fetches pages over HTTP or from files but runs no scripts, so it cannot
// click or tell whether an element is visible.
package static

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/internal/log"
)

// Name is the backend name used in errors and configuration.
const Name = "static"

const blankURL = "about:blank"

type document struct {
	url  *url.URL
	root *html.Node
	// loaded is false for documents handed in directly, which cannot be
	// fetched again.
	loaded bool
}

// Backend is the static core.Backend. It is safe for concurrent use, but
// a single root context should drive it.
type Backend struct {
	core.BaseBackend

	ctx     context.Context
	fetcher Fetcher
	logger  *log.Logger

	mu      sync.Mutex
	history []*document
	pos     int
	frames  []*document
}

// Option configures a Backend.
type Option func(*Backend)

// WithFetcher sets the fetcher used for navigation and iframes.
func WithFetcher(f Fetcher) Option {
	return func(b *Backend) {
		b.fetcher = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// WithContext sets the context fetches run under.
func WithContext(ctx context.Context) Option {
	return func(b *Backend) {
		b.ctx = ctx
	}
}

// New returns a backend showing an empty document. Without WithFetcher it
// uses an HTTPFetcher with default options.
func New(opts ...Option) (*Backend, error) {
	b := &Backend{
		BaseBackend: core.BaseBackend{Name: Name},
		ctx:         context.Background(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fetcher == nil {
		f, err := NewHTTPFetcher(FetcherOptions{})
		if err != nil {
			return nil, err
		}
		b.fetcher = f
	}
	blank, _ := url.Parse(blankURL)
	root, err := parse(nil, "")
	if err != nil {
		return nil, err
	}
	b.history = []*document{{url: blank, root: root}}
	return b, nil
}

// NewFromString returns a backend showing src as if it was loaded from
// baseURL, which may be empty.
func NewFromString(src, baseURL string, opts ...Option) (*Backend, error) {
	b, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Load(src, baseURL); err != nil {
		return nil, err
	}
	return b, nil
}

// NewFromReader is NewFromString for a document read from r. The charset is
// sniffed from the content.
func NewFromReader(r io.Reader, baseURL string, opts ...Option) (*Backend, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	b, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := b.loadBody(body, "", baseURL); err != nil {
		return nil, err
	}
	return b, nil
}

// Load pushes src onto the history as a new document at baseURL.
func (b *Backend) Load(src, baseURL string) error {
	return b.loadBody([]byte(src), "text/html; charset=utf-8", baseURL)
}

func (b *Backend) loadBody(body []byte, contentType, baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		u, _ = url.Parse(blankURL)
	}
	root, err := parse(body, contentType)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.push(&document{url: u, root: root})
	return nil
}

func parse(body []byte, contentType string) (*html.Node, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return root, nil
}

func (b *Backend) load(u *url.URL) (*document, error) {
	page, err := b.fetcher.Fetch(b.ctx, u)
	if err != nil {
		return nil, err
	}
	if page.StatusCode >= 400 {
		b.logger.Warnf("Static:load", "url:%s status:%d", page.URL, page.StatusCode)
	}
	root, err := parse(page.Body, page.ContentType)
	if err != nil {
		return nil, err
	}
	b.logger.Debugf("Static:load", "url:%s status:%d bytes:%d", page.URL, page.StatusCode, len(page.Body))
	return &document{url: page.URL, root: root, loaded: true}, nil
}

// push must be called with mu held.
func (b *Backend) push(doc *document) {
	b.history = append(b.history[:b.pos+1], doc)
	b.pos = len(b.history) - 1
	b.frames = nil
}

func (b *Backend) page() *document {
	return b.history[b.pos]
}

// scope must be called with mu held.
func (b *Backend) scope() *document {
	if n := len(b.frames); n > 0 {
		return b.frames[n-1]
	}
	return b.page()
}

// resolveLocation turns a location into an absolute URL. Locations without
// a scheme are resolved against base when it is an http(s) or file URL, and
// are otherwise taken as file paths.
func resolveLocation(base *url.URL, location string) (*url.URL, error) {
	u, err := url.Parse(location)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return u, nil
	}
	if base != nil && err == nil {
		switch base.Scheme {
		case "http", "https", "file":
			return base.ResolveReference(u), nil
		}
	}
	p, ferr := filepath.Abs(location)
	if ferr != nil {
		return nil, &core.InvalidArgumentError{Operation: "NavigateTo", Reason: ferr.Error()}
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(p)}, nil
}

func (b *Backend) DocumentRoot() ([]core.ElementHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return []core.ElementHandle{b.scope().root}, nil
}

func (b *Backend) DocumentURL() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page().url.String(), nil
}

func (b *Backend) DocumentTitle() (string, error) {
	b.mu.Lock()
	root := b.page().root
	b.mu.Unlock()
	return strings.TrimSpace(selection(root).Find("title").First().Text()), nil
}

func (b *Backend) FetchCookies() ([]core.Cookie, error) {
	b.mu.Lock()
	u := b.page().url
	b.mu.Unlock()

	var out []core.Cookie
	for _, c := range b.fetcher.Cookies(u) {
		out = append(out, core.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return out, nil
}

func (b *Backend) NavigateTo(location string) error {
	b.mu.Lock()
	base := b.page().url
	b.mu.Unlock()

	u, err := resolveLocation(base, location)
	if err != nil {
		return err
	}
	b.logger.Debugf("Static:NavigateTo", "url:%s", u)
	doc, err := b.load(u)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.push(doc)
	return nil
}

// NavigateBack moves back in history. Steps past the first document stay
// on it.
func (b *Backend) NavigateBack(steps int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return core.Steps("NavigateBack", steps, func() error {
		if b.pos > 0 {
			b.pos--
		}
		b.frames = nil
		return nil
	})
}

// NavigateForward moves forward in history. Steps past the last document
// stay on it.
func (b *Backend) NavigateForward(steps int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return core.Steps("NavigateForward", steps, func() error {
		if b.pos < len(b.history)-1 {
			b.pos++
		}
		b.frames = nil
		return nil
	})
}

// RefreshDocument fetches the current document again, in place. Documents
// that were not fetched are only reset to the top frame.
func (b *Backend) RefreshDocument() error {
	b.mu.Lock()
	cur := b.page()
	b.frames = nil
	b.mu.Unlock()
	if !cur.loaded {
		return nil
	}

	doc, err := b.load(cur.url)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page() == cur {
		b.history[b.pos] = doc
	}
	return nil
}

func (b *Backend) SwitchToFrame(el core.ElementHandle) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	if n.Type != html.ElementNode || (n.Data != "iframe" && n.Data != "frame") {
		return &core.FrameNavigationError{Reason: fmt.Sprintf("<%s> is not a frame", n.Data)}
	}

	b.mu.Lock()
	base := b.scope().url
	b.mu.Unlock()

	doc, err := b.frameDocument(n, base)
	if err != nil {
		return &core.FrameNavigationError{Reason: err.Error()}
	}
	b.logger.Debugf("Static:SwitchToFrame", "url:%s", doc.url)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, doc)
	return nil
}

func (b *Backend) frameDocument(n *html.Node, base *url.URL) (*document, error) {
	if srcdoc, ok := attr(n, "srcdoc"); ok {
		root, err := parse([]byte(srcdoc), "text/html; charset=utf-8")
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse("about:srcdoc")
		return &document{url: u, root: root}, nil
	}
	src, ok := attr(n, "src")
	if !ok || strings.TrimSpace(src) == "" || src == blankURL {
		root, err := parse(nil, "")
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse(blankURL)
		return &document{url: u, root: root}, nil
	}
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return nil, err
	}
	return b.load(base.ResolveReference(ref))
}

func (b *Backend) SwitchToTopFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
	return nil
}

func (b *Backend) SwitchToParentFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == 0 {
		return &core.FrameNavigationError{Reason: "already at the top frame"}
	}
	b.frames = b.frames[:len(b.frames)-1]
	return nil
}

var _ core.Backend = &Backend{}
