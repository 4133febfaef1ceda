// Package browser implements a core.Backend that drives a live Chrome
// instance through the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/internal/log"
)

// Name is the backend name used in errors and configuration.
const Name = "browser"

// Default timeouts applied when Config leaves them unset.
const (
	DefaultActionTimeout     = 5 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
)

// Config tells Launch how to reach a browser.
type Config struct {
	// ControlURL is the DevTools websocket URL of a running browser. When
	// empty a browser is launched.
	ControlURL string
	// Bin is the browser executable to launch. Empty lets the launcher find
	// or download one.
	Bin      string
	Headless bool
	// Flags are extra command line flags for a launched browser, in
	// "--name=value" or "--name" form.
	Flags             []string
	UserAgent         string
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
}

// documentRoot is the handle standing for the current frame's document.
type documentRoot struct{}

var rootHandle = &documentRoot{} //nolint:gochecknoglobals

// Backend is the browser core.Backend. It is not safe for concurrent use.
type Backend struct {
	core.BaseBackend

	ctx      context.Context
	cfg      Config
	logger   *log.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	frames   []*rod.Page
}

// Launch connects to cfg.ControlURL, or launches a browser when it is
// empty, and opens a blank page.
func Launch(ctx context.Context, cfg Config, logger *log.Logger) (*Backend, error) {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = DefaultActionTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	b := &Backend{
		BaseBackend: core.BaseBackend{Name: Name},
		ctx:         ctx,
		cfg:         cfg,
		logger:      logger,
	}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		for _, raw := range cfg.Flags {
			name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launching browser: %w", err)
		}
		b.launcher = l
		controlURL = u
	}
	logger.Debugf("Browser:Launch", "controlURL:%s launched:%t", controlURL, b.launcher != nil)

	b.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.browser.Connect(); err != nil {
		b.kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}
	b.page = page
	return b, nil
}

// Close closes the browser connection and kills a launched browser.
func (b *Backend) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	b.kill()
	return err
}

func (b *Backend) kill() {
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
		b.launcher = nil
	}
}

// scope returns the page of the current frame.
func (b *Backend) scope() *rod.Page {
	if n := len(b.frames); n > 0 {
		return b.frames[n-1]
	}
	return b.page
}

func (b *Backend) element(el core.ElementHandle) (*rod.Element, error) {
	e, ok := el.(*rod.Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("element handle %T does not belong to the %s backend", el, Name)
	}
	return e.Timeout(b.cfg.ActionTimeout), nil
}

func (b *Backend) DocumentRoot() ([]core.ElementHandle, error) {
	return []core.ElementHandle{rootHandle}, nil
}

func (b *Backend) DocumentURL() (string, error) {
	info, err := b.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (b *Backend) DocumentTitle() (string, error) {
	info, err := b.page.Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (b *Backend) FetchCookies() ([]core.Cookie, error) {
	cookies, err := b.page.Cookies(nil)
	if err != nil {
		return nil, err
	}
	out := make([]core.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := core.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			cookie.Expires = c.Expires.Time()
		}
		out = append(out, cookie)
	}
	return out, nil
}

func (b *Backend) navigated() error {
	b.frames = nil
	p := b.page.Timeout(b.cfg.NavigationTimeout)
	defer p.CancelTimeout()
	return p.WaitLoad()
}

func (b *Backend) NavigateTo(url string) error {
	b.logger.Debugf("Browser:NavigateTo", "url:%s", url)
	p := b.page.Timeout(b.cfg.NavigationTimeout)
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return err
	}
	return b.navigated()
}

func (b *Backend) NavigateBack(steps int) error {
	return core.Steps("NavigateBack", steps, func() error {
		if err := b.page.NavigateBack(); err != nil {
			return err
		}
		return b.navigated()
	})
}

func (b *Backend) NavigateForward(steps int) error {
	return core.Steps("NavigateForward", steps, func() error {
		if err := b.page.NavigateForward(); err != nil {
			return err
		}
		return b.navigated()
	})
}

func (b *Backend) RefreshDocument() error {
	if err := b.page.Reload(); err != nil {
		return err
	}
	return b.navigated()
}

func toHandles(els rod.Elements) []core.ElementHandle {
	out := make([]core.ElementHandle, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}

func (b *Backend) SearchByCSS(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	if el == rootHandle {
		els, err := b.scope().Timeout(b.cfg.ActionTimeout).Elements(selector)
		return toHandles(els), searchError("SearchByCSS", err)
	}
	e, err := b.element(el)
	if err != nil {
		return nil, err
	}
	els, err := e.Elements(selector)
	return toHandles(els), searchError("SearchByCSS", err)
}

func (b *Backend) SearchByXPath(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	if el == rootHandle {
		els, err := b.scope().Timeout(b.cfg.ActionTimeout).ElementsX(selector)
		return toHandles(els), searchError("SearchByXPath", err)
	}
	e, err := b.element(el)
	if err != nil {
		return nil, err
	}
	els, err := e.ElementsX(selector)
	return toHandles(els), searchError("SearchByXPath", err)
}

// searchError reports selector syntax errors thrown by the page as
// *core.InvalidArgumentError.
func searchError(op string, err error) error {
	var evalErr *rod.EvalError
	if errors.As(err, &evalErr) && strings.Contains(evalErr.Error(), "not a valid") {
		return &core.InvalidArgumentError{Operation: op, Reason: evalErr.Error()}
	}
	return err
}

func (b *Backend) ExtractElementTag(el core.ElementHandle) (string, error) {
	if el == rootHandle {
		return "html", nil
	}
	e, err := b.element(el)
	if err != nil {
		return "", err
	}
	node, err := e.Describe(0, false)
	if err != nil {
		return "", err
	}
	return strings.ToLower(node.LocalName), nil
}

func (b *Backend) ExtractElementText(el core.ElementHandle) (string, error) {
	if el == rootHandle {
		body, err := b.scope().Timeout(b.cfg.ActionTimeout).Element("body")
		if err != nil {
			return "", err
		}
		return body.Text()
	}
	e, err := b.element(el)
	if err != nil {
		return "", err
	}
	return e.Text()
}

func (b *Backend) ExtractElementHTML(el core.ElementHandle) (string, error) {
	if el == rootHandle {
		return b.scope().HTML()
	}
	e, err := b.element(el)
	if err != nil {
		return "", err
	}
	return e.HTML()
}

// liveProperties are read from the DOM property, which follows user input,
// instead of the markup attribute.
var liveProperties = map[string]bool{ //nolint:gochecknoglobals
	"value":    true,
	"checked":  true,
	"selected": true,
	"disabled": true,
}

func (b *Backend) ExtractElementAttribute(el core.ElementHandle, name string) (string, bool, error) {
	var e *rod.Element
	var err error
	if el == rootHandle {
		e, err = b.scope().Timeout(b.cfg.ActionTimeout).Element("html")
	} else {
		e, err = b.element(el)
	}
	if err != nil {
		return "", false, err
	}
	if liveProperties[name] {
		prop, err := e.Property(name)
		if err != nil {
			return "", false, err
		}
		switch {
		case prop.Nil():
			// no such property, fall through to the attribute
		case name == "value":
			return prop.Str(), true, nil
		case prop.Bool():
			return "", true, nil
		default:
			return "", false, nil
		}
	}
	v, err := e.Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}

func (b *Backend) SetElementText(el core.ElementHandle, value string) error {
	e, err := b.element(el)
	if err != nil {
		return err
	}
	if err := e.SelectAllText(); err != nil {
		return &core.InteractionError{Operation: "SetElementText", Err: err}
	}
	if err := e.Input(value); err != nil {
		return &core.InteractionError{Operation: "SetElementText", Err: err}
	}
	return nil
}

func (b *Backend) ClickOnElement(el core.ElementHandle) error {
	e, err := b.element(el)
	if err != nil {
		return err
	}
	if err := e.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &core.InteractionError{Operation: "ClickOnElement", Err: err}
	}
	return nil
}

func (b *Backend) SwitchToFrame(el core.ElementHandle) error {
	e, err := b.element(el)
	if err != nil {
		return err
	}
	frame, err := e.Frame()
	if err != nil {
		return &core.FrameNavigationError{Reason: err.Error()}
	}
	b.frames = append(b.frames, frame)
	return nil
}

func (b *Backend) SwitchToTopFrame() error {
	b.frames = nil
	return nil
}

func (b *Backend) SwitchToParentFrame() error {
	if len(b.frames) == 0 {
		return &core.FrameNavigationError{Reason: "already at the top frame"}
	}
	b.frames = b.frames[:len(b.frames)-1]
	return nil
}

// CheckVisible reports whether every element is visible. An empty set is
// an empty set.
func (b *Backend) CheckVisible(els []core.ElementHandle) (bool, error) {
	if len(els) == 0 {
		return false, nil
	}
	for _, el := range els {
		if el == rootHandle {
			continue
		}
		e, err := b.element(el)
		if err != nil {
			return false, err
		}
		visible, err := e.Visible()
		if err != nil || !visible {
			return false, err
		}
	}
	return true, nil
}

// CheckNotVisible reports whether no element is displayed, which holds for
// an empty set.
func (b *Backend) CheckNotVisible(els []core.ElementHandle) (bool, error) {
	for _, el := range els {
		if el == rootHandle {
			return false, nil
		}
		e, err := b.element(el)
		if err != nil {
			return false, err
		}
		visible, err := e.Visible()
		if err != nil || visible {
			return false, err
		}
	}
	return true, nil
}

// CheckEnabled reports whether no element is disabled. An empty set is not
// enabled.
func (b *Backend) CheckEnabled(els []core.ElementHandle) (bool, error) {
	if len(els) == 0 {
		return false, nil
	}
	for _, el := range els {
		_, disabled, err := b.ExtractElementAttribute(el, "disabled")
		if err != nil || disabled {
			return false, err
		}
	}
	return true, nil
}

var _ core.Backend = &Backend{}
