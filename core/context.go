package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/grafana/pincers/internal/log"
)

// Default wait settings used when neither the root options nor the call
// override them.
const (
	DefaultWaitTimeout  = 10 * time.Second
	DefaultWaitInterval = 200 * time.Millisecond
)

type settings struct {
	logger       *log.Logger
	waitTimeout  time.Duration
	waitInterval time.Duration
}

// Option configures a root Context.
type Option func(*settings)

// WithLogger makes contexts log their operations through l.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithWaitDefaults sets the timeout and poll interval WaitUntil uses when the
// call does not set them. Non-positive values keep the package defaults.
func WithWaitDefaults(timeout, interval time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.waitTimeout = timeout
		}
		if interval > 0 {
			s.waitInterval = interval
		}
	}
}

// Context is an immutable, ordered set of element handles bound to a
// backend. The root Context stands for the whole document; every other
// Context is derived from a parent by one query step.
type Context struct {
	backend  Backend
	settings *settings
	root     *Context
	parent   *Context
	step     step

	elements []ElementHandle
	err      error
}

// NewRootContext returns the root context for b. Create one per backend and
// reuse it for the whole session.
func NewRootContext(b Backend, opts ...Option) *Context {
	s := &settings{
		waitTimeout:  DefaultWaitTimeout,
		waitInterval: DefaultWaitInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	c := &Context{backend: b, settings: s}
	c.root = c
	return c
}

// Backend returns the backend the context is bound to.
func (c *Context) Backend() Backend {
	return c.backend
}

// IsRoot reports whether c is the root context.
func (c *Context) IsRoot() bool {
	return c.parent == nil
}

// Root returns the root context c was derived from.
func (c *Context) Root() *Context {
	return c.root
}

// Parent returns the context c was derived from, or nil for the root.
func (c *Context) Parent() *Context {
	return c.parent
}

// Err returns the error that occurred while producing c, if any. On the
// root it reports whether the backend can currently return a document root.
func (c *Context) Err() error {
	if c.IsRoot() {
		_, err := c.resolve()
		return err
	}
	return c.err
}

// Chain describes how c was produced, e.g. `document > css("ul") > [1]`.
// It is only meant for messages.
func (c *Context) Chain() string {
	var parts []string
	for cur := c; cur != nil; cur = cur.parent {
		if cur.IsRoot() {
			parts = append(parts, "document")
			continue
		}
		parts = append(parts, cur.step.String())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func (c *Context) String() string {
	return c.Chain()
}

// resolve returns the handles held by c. The root asks the backend for the
// current document root on every call.
func (c *Context) resolve() ([]ElementHandle, error) {
	if c.IsRoot() {
		return c.backend.DocumentRoot()
	}
	return c.elements, c.err
}

// Count returns the number of held elements, 0 if c failed. Err reports the
// failure.
func (c *Context) Count() int {
	els, err := c.resolve()
	if err != nil {
		return 0
	}
	return len(els)
}

// Elements returns a copy of the held handles.
func (c *Context) Elements() ([]ElementHandle, error) {
	els, err := c.resolve()
	if err != nil {
		return nil, err
	}
	out := make([]ElementHandle, len(els))
	copy(out, els)
	return out, nil
}

// Slice returns one single-element context per held element, in order.
func (c *Context) Slice() ([]*Context, error) {
	els, err := c.resolve()
	if err != nil {
		return nil, err
	}
	out := make([]*Context, len(els))
	for i, el := range els {
		out[i] = c.child(indexStep(i), []ElementHandle{el}, nil)
	}
	return out, nil
}

// Each calls fn with a single-element context for every held element,
// stopping at the first error fn returns.
func (c *Context) Each(fn func(i int, el *Context) error) error {
	items, err := c.Slice()
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := fn(i, item); err != nil {
			return err
		}
	}
	return nil
}

// At returns a single-element context holding the i-th element. The result
// carries an *IndexOutOfRangeError if i is outside the held elements.
func (c *Context) At(i int) *Context {
	return c.derive(indexStep(i))
}

// First is At(0).
func (c *Context) First() *Context {
	return c.At(0)
}

// Last returns a context holding the last element.
func (c *Context) Last() *Context {
	return c.derive(lastStep())
}

// Refresh re-runs the query chain that produced c, starting from the same
// root, and returns the fresh result. The root returns itself.
func (c *Context) Refresh() *Context {
	if c.IsRoot() {
		return c
	}
	return c.parent.Refresh().derive(c.step)
}

func (c *Context) derive(s step) *Context {
	if c.err != nil {
		return c.child(s, nil, c.err)
	}
	els, err := s.apply(c)
	return c.child(s, els, err)
}

func (c *Context) child(s step, els []ElementHandle, err error) *Context {
	return &Context{
		backend:  c.backend,
		settings: c.settings,
		root:     c.root,
		parent:   c,
		step:     s,
		elements: els,
		err:      err,
	}
}

func (c *Context) logger() *log.Logger {
	return c.settings.logger
}

// first returns the first held element or an *EmptyResultError naming op.
func (c *Context) first(op string) (ElementHandle, error) {
	els, err := c.resolve()
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, &EmptyResultError{Operation: op, Chain: c.Chain()}
	}
	return els[0], nil
}

// annotate adds the operation and selector chain to a backend error.
func (c *Context) annotate(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s on %s: %w", op, c.Chain(), err)
}
