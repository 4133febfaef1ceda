package core

import (
	"fmt"
	"sort"
	"strings"
)

// FrameScope names a frame relative to the current one.
type FrameScope string

// Frame scopes accepted as GotoOptions.Frame.
const (
	FrameTop    FrameScope = "top"
	FrameParent FrameScope = "parent"
)

// GotoOptions selects where Goto moves. Exactly one of URL and Frame may be
// set. Frame is a FrameScope, a *Context whose first element is the frame,
// or a CSS selector string resolved against the receiving context.
type GotoOptions struct {
	URL   string
	Frame interface{}
}

// ParseGotoOptions builds GotoOptions from loose key/value pairs. The known
// keys are "url" and "frame"; a frame of "top" or "parent" is a FrameScope,
// anything else a selector.
func ParseGotoOptions(kv map[string]string) (GotoOptions, error) {
	var opts GotoOptions
	var unknown []string
	for k, v := range kv {
		switch k {
		case "url":
			opts.URL = v
		case "frame":
			switch FrameScope(v) {
			case FrameTop, FrameParent:
				opts.Frame = FrameScope(v)
			default:
				opts.Frame = v
			}
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return GotoOptions{}, &InvalidArgumentError{
			Operation: "Goto",
			Reason:    "unknown options " + strings.Join(unknown, ", "),
		}
	}
	return opts, nil
}

// Goto navigates the document to url and returns the root context.
func (c *Context) Goto(url string) (*Context, error) {
	return c.GotoWith(GotoOptions{URL: url})
}

// GotoFrame moves the frame scope and returns the root context.
func (c *Context) GotoFrame(frame interface{}) (*Context, error) {
	return c.GotoWith(GotoOptions{Frame: frame})
}

// GotoWith navigates to a URL or switches frame scope and returns the root
// context. A search context called with empty options switches into its
// own first element.
func (c *Context) GotoWith(opts GotoOptions) (*Context, error) {
	if c.err != nil {
		return nil, c.err
	}
	switch {
	case opts.URL != "" && opts.Frame != nil:
		return nil, &InvalidArgumentError{Operation: "Goto", Reason: "url and frame are mutually exclusive"}
	case opts.URL != "":
		c.logger().Debugf("Context:Goto", "url:%q", opts.URL)
		if err := c.backend.NavigateTo(opts.URL); err != nil {
			return nil, fmt.Errorf("navigating to %q: %w", opts.URL, err)
		}
		return c.root, nil
	case opts.Frame != nil:
		return c.gotoFrame(opts.Frame)
	case c.IsRoot():
		return nil, &InvalidArgumentError{Operation: "Goto", Reason: "either url or frame is required"}
	default:
		return c.gotoFrame(c)
	}
}

func (c *Context) gotoFrame(frame interface{}) (*Context, error) {
	var err error
	switch f := frame.(type) {
	case FrameScope:
		c.logger().Debugf("Context:GotoFrame", "scope:%s", f)
		switch f {
		case FrameTop:
			err = c.backend.SwitchToTopFrame()
		case FrameParent:
			err = c.backend.SwitchToParentFrame()
		default:
			return nil, &InvalidArgumentError{Operation: "GotoFrame", Reason: fmt.Sprintf("unknown frame scope %q", f)}
		}
	case *Context:
		if f == nil {
			return nil, &InvalidArgumentError{Operation: "GotoFrame", Reason: "nil frame context"}
		}
		var el ElementHandle
		if el, err = f.first("GotoFrame"); err != nil {
			return nil, err
		}
		c.logger().Debugf("Context:GotoFrame", "chain:%q", f.Chain())
		err = f.annotate("GotoFrame", f.backend.SwitchToFrame(el))
	case string:
		found := c.CSS(f)
		if found.err != nil {
			return nil, found.err
		}
		if len(found.elements) == 0 {
			return nil, &NoSuchFrameError{Selector: f, Chain: c.Chain()}
		}
		c.logger().Debugf("Context:GotoFrame", "chain:%q", found.Chain())
		err = found.annotate("GotoFrame", c.backend.SwitchToFrame(found.elements[0]))
	default:
		return nil, &InvalidArgumentError{Operation: "GotoFrame", Reason: fmt.Sprintf("unsupported frame target %T", frame)}
	}
	if err != nil {
		return nil, err
	}
	return c.root, nil
}

// Back navigates n steps back in history and returns the root context.
func (c *Context) Back(n int) (*Context, error) {
	c.logger().Debugf("Context:Back", "steps:%d", n)
	if err := c.history("Back", n, c.backend.NavigateBack); err != nil {
		return nil, err
	}
	return c.root, nil
}

// Forward navigates n steps forward in history and returns the root context.
func (c *Context) Forward(n int) (*Context, error) {
	c.logger().Debugf("Context:Forward", "steps:%d", n)
	if err := c.history("Forward", n, c.backend.NavigateForward); err != nil {
		return nil, err
	}
	return c.root, nil
}

func (c *Context) history(op string, n int, nav func(int) error) error {
	if n < 0 {
		return &InvalidArgumentError{Operation: op, Reason: "step count must not be negative"}
	}
	if n == 0 {
		return nil
	}
	return nav(n)
}

// Reload reloads the current document and returns the root context.
func (c *Context) Reload() (*Context, error) {
	c.logger().Debugf("Context:Reload", "")
	if err := c.backend.RefreshDocument(); err != nil {
		return nil, err
	}
	return c.root, nil
}

// URL returns the URL of the current document.
func (c *Context) URL() (string, error) {
	return c.backend.DocumentURL()
}

// Title returns the title of the current document.
func (c *Context) Title() (string, error) {
	return c.backend.DocumentTitle()
}

// Cookies returns the cookies visible to the current document.
func (c *Context) Cookies() ([]Cookie, error) {
	return c.backend.FetchCookies()
}
