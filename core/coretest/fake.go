// Package coretest provides an in-memory Backend for testing code built on
// the core package.
package coretest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/grafana/pincers/core"
)

// Node is an element of a fake document.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Hidden   bool
	Children []*Node
	// Content is the document of an iframe node.
	Content *Node

	parent *Node
}

// El builds a Node. attrs holds name/value pairs.
func El(tag string, attrs []string, children ...*Node) *Node {
	n := &Node{Tag: tag, Attrs: map[string]string{}, Children: children}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs[attrs[i]] = attrs[i+1]
	}
	return n
}

// TextEl builds a Node with text content.
func TextEl(tag, text string, attrs ...string) *Node {
	n := El(tag, attrs)
	n.Text = text
	return n
}

// Doc builds a document node holding children.
func Doc(children ...*Node) *Node {
	return El("#document", nil, children...)
}

func (n *Node) link() *Node {
	for _, c := range n.Children {
		c.parent = n
		c.link()
	}
	if n.Content != nil {
		n.Content.link()
	}
	return n
}

func (n *Node) text() string {
	var sb strings.Builder
	sb.WriteString(n.Text)
	for _, c := range n.Children {
		sb.WriteString(c.text())
	}
	return sb.String()
}

func (n *Node) html() string {
	if n.Tag == "#document" {
		var sb strings.Builder
		for _, c := range n.Children {
			sb.WriteString(c.html())
		}
		return sb.String()
	}
	var sb strings.Builder
	sb.WriteString("<" + n.Tag)
	for _, k := range sortedKeys(n.Attrs) {
		fmt.Fprintf(&sb, " %s=%q", k, n.Attrs[k])
	}
	sb.WriteString(">" + n.Text)
	for _, c := range n.Children {
		sb.WriteString(c.html())
	}
	sb.WriteString("</" + n.Tag + ">")
	return sb.String()
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.Children {
		fn(c)
		c.walk(fn)
	}
}

// Backend is a fake core.Backend over static Node trees. Pages maps URLs to
// documents; navigating to an unknown URL yields an empty document. It
// records every call in Calls.
type Backend struct {
	core.BaseBackend

	mu      sync.Mutex
	Pages   map[string]*Node
	Calls   []string
	Cookies []core.Cookie

	// Errs makes the named operations fail with the given error.
	Errs map[string]error
	// OnCheck runs before every Check* call, e.g. to mutate the document
	// while a wait is polling.
	OnCheck func(b *Backend)

	history []string
	pos     int
	frames  []*Node
}

// New returns a fake backend showing doc at url.
func New(url string, doc *Node) *Backend {
	b := &Backend{
		BaseBackend: core.BaseBackend{Name: "fake"},
		Pages:       map[string]*Node{url: doc.link()},
		history:     []string{url},
	}
	return b
}

func (b *Backend) record(op string, args ...interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	call := op
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprint(a)
		}
		call += "(" + strings.Join(parts, ",") + ")"
	}
	b.Calls = append(b.Calls, call)
	return b.Errs[op]
}

// CallsTo returns the recorded calls of op.
func (b *Backend) CallsTo(op string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.Calls {
		if c == op || strings.HasPrefix(c, op+"(") {
			out = append(out, c)
		}
	}
	return out
}

// SetPage replaces the document served for url.
func (b *Backend) SetPage(url string, doc *Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Pages == nil {
		b.Pages = map[string]*Node{}
	}
	b.Pages[url] = doc.link()
}

func (b *Backend) current() *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) > 0 {
		return b.frames[len(b.frames)-1]
	}
	if doc, ok := b.Pages[b.history[b.pos]]; ok {
		return doc
	}
	return Doc()
}

func node(el core.ElementHandle) (*Node, error) {
	n, ok := el.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("foreign element handle %T", el)
	}
	return n, nil
}

func (b *Backend) DocumentRoot() ([]core.ElementHandle, error) {
	if err := b.record("DocumentRoot"); err != nil {
		return nil, err
	}
	return []core.ElementHandle{b.current()}, nil
}

func (b *Backend) DocumentURL() (string, error) {
	if err := b.record("DocumentURL"); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history[b.pos], nil
}

func (b *Backend) DocumentTitle() (string, error) {
	if err := b.record("DocumentTitle"); err != nil {
		return "", err
	}
	title := ""
	b.current().walk(func(n *Node) {
		if n.Tag == "title" && title == "" {
			title = n.text()
		}
	})
	return title, nil
}

func (b *Backend) FetchCookies() ([]core.Cookie, error) {
	if err := b.record("FetchCookies"); err != nil {
		return nil, err
	}
	return b.Cookies, nil
}

func (b *Backend) NavigateTo(url string) error {
	if err := b.record("NavigateTo", url); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history[:b.pos+1], url)
	b.pos++
	b.frames = nil
	return nil
}

func (b *Backend) NavigateBack(steps int) error {
	if err := b.record("NavigateBack", steps); err != nil {
		return err
	}
	return core.Steps("NavigateBack", steps, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.pos > 0 {
			b.pos--
		}
		b.frames = nil
		return nil
	})
}

func (b *Backend) NavigateForward(steps int) error {
	if err := b.record("NavigateForward", steps); err != nil {
		return err
	}
	return core.Steps("NavigateForward", steps, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.pos < len(b.history)-1 {
			b.pos++
		}
		b.frames = nil
		return nil
	})
}

func (b *Backend) RefreshDocument() error {
	if err := b.record("RefreshDocument"); err != nil {
		return err
	}
	b.mu.Lock()
	b.frames = nil
	b.mu.Unlock()
	return nil
}

func (b *Backend) SearchByCSS(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	if err := b.record("SearchByCSS", selector); err != nil {
		return nil, err
	}
	n, err := node(el)
	if err != nil {
		return nil, err
	}
	return search(n, strings.Fields(selector))
}

// SearchByXPath understands descendant paths of tag names, e.g. "//ul//li"
// or ".//li".
func (b *Backend) SearchByXPath(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	if err := b.record("SearchByXPath", selector); err != nil {
		return nil, err
	}
	n, err := node(el)
	if err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(selector, ".")
	if !strings.HasPrefix(path, "//") {
		return nil, fmt.Errorf("unsupported xpath %q", selector)
	}
	return search(n, strings.Split(strings.TrimPrefix(path, "//"), "//"))
}

// search matches a descendant chain of simple selectors: tag, .class, #id
// and [attr] parts, e.g. "ul li.item input[checked]".
func search(root *Node, chain []string) ([]core.ElementHandle, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	scopes := []*Node{root}
	for _, part := range chain {
		sel, err := parseSimple(part)
		if err != nil {
			return nil, err
		}
		seen := map[*Node]bool{}
		var next []*Node
		for _, s := range scopes {
			s.walk(func(n *Node) {
				if !seen[n] && sel.match(n) {
					seen[n] = true
					next = append(next, n)
				}
			})
		}
		scopes = next
	}
	out := make([]core.ElementHandle, len(scopes))
	for i, n := range scopes {
		out[i] = n
	}
	return out, nil
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []string
}

func parseSimple(s string) (simpleSelector, error) {
	var sel simpleSelector
	for s != "" {
		end := strings.IndexAny(s[1:], ".#[")
		if end < 0 {
			end = len(s)
		} else {
			end++
		}
		tok := s[:end]
		s = s[end:]
		switch tok[0] {
		case '.':
			sel.classes = append(sel.classes, tok[1:])
		case '#':
			sel.id = tok[1:]
		case '[':
			if !strings.HasSuffix(tok, "]") {
				return sel, fmt.Errorf("malformed selector %q", tok)
			}
			sel.attrs = append(sel.attrs, strings.TrimSuffix(tok[1:], "]"))
		default:
			sel.tag = tok
		}
	}
	return sel, nil
}

func (sel simpleSelector) match(n *Node) bool {
	if sel.tag != "" && sel.tag != "*" && !strings.EqualFold(sel.tag, n.Tag) {
		return false
	}
	if sel.id != "" && n.Attrs["id"] != sel.id {
		return false
	}
	classes := strings.Fields(n.Attrs["class"])
	for _, want := range sel.classes {
		if !contains(classes, want) {
			return false
		}
	}
	for _, a := range sel.attrs {
		if _, ok := n.Attrs[a]; !ok {
			return false
		}
	}
	return true
}

func (b *Backend) ExtractElementTag(el core.ElementHandle) (string, error) {
	if err := b.record("ExtractElementTag"); err != nil {
		return "", err
	}
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return n.Tag, nil
}

func (b *Backend) ExtractElementText(el core.ElementHandle) (string, error) {
	if err := b.record("ExtractElementText"); err != nil {
		return "", err
	}
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return n.text(), nil
}

func (b *Backend) ExtractElementHTML(el core.ElementHandle) (string, error) {
	if err := b.record("ExtractElementHTML"); err != nil {
		return "", err
	}
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return n.html(), nil
}

func (b *Backend) ExtractElementAttribute(el core.ElementHandle, name string) (string, bool, error) {
	if err := b.record("ExtractElementAttribute", name); err != nil {
		return "", false, err
	}
	n, err := node(el)
	if err != nil {
		return "", false, err
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (b *Backend) SetElementText(el core.ElementHandle, value string) error {
	if err := b.record("SetElementText", value); err != nil {
		return err
	}
	n, err := node(el)
	if err != nil {
		return err
	}
	if n.Hidden {
		return &core.InteractionError{Operation: "SetElementText", Err: fmt.Errorf("%s is hidden", n.Tag)}
	}
	if n.Tag == "input" {
		n.Attrs["value"] = value
	} else {
		n.Text, n.Children = value, nil
	}
	return nil
}

func (b *Backend) ClickOnElement(el core.ElementHandle) error {
	if err := b.record("ClickOnElement"); err != nil {
		return err
	}
	n, err := node(el)
	if err != nil {
		return err
	}
	if n.Hidden {
		return &core.InteractionError{Operation: "ClickOnElement", Err: fmt.Errorf("%s is hidden", n.Tag)}
	}
	if n.Attrs["type"] == "checkbox" {
		if _, ok := n.Attrs["checked"]; ok {
			delete(n.Attrs, "checked")
		} else {
			n.Attrs["checked"] = ""
		}
	}
	return nil
}

func (b *Backend) SwitchToFrame(el core.ElementHandle) error {
	if err := b.record("SwitchToFrame"); err != nil {
		return err
	}
	n, err := node(el)
	if err != nil {
		return err
	}
	if n.Content == nil {
		return &core.FrameNavigationError{Reason: n.Tag + " is not a frame"}
	}
	b.mu.Lock()
	b.frames = append(b.frames, n.Content)
	b.mu.Unlock()
	return nil
}

func (b *Backend) SwitchToTopFrame() error {
	if err := b.record("SwitchToTopFrame"); err != nil {
		return err
	}
	b.mu.Lock()
	b.frames = nil
	b.mu.Unlock()
	return nil
}

func (b *Backend) SwitchToParentFrame() error {
	if err := b.record("SwitchToParentFrame"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == 0 {
		return &core.FrameNavigationError{Reason: "already at the top frame"}
	}
	b.frames = b.frames[:len(b.frames)-1]
	return nil
}

func (b *Backend) check(op string) error {
	if b.OnCheck != nil {
		b.OnCheck(b)
	}
	return b.record(op)
}

func (b *Backend) CheckPresent(els []core.ElementHandle) (bool, error) {
	if err := b.check("CheckPresent"); err != nil {
		return false, err
	}
	return len(els) > 0, nil
}

func (b *Backend) CheckNotPresent(els []core.ElementHandle) (bool, error) {
	if err := b.check("CheckNotPresent"); err != nil {
		return false, err
	}
	return len(els) == 0, nil
}

func (b *Backend) CheckVisible(els []core.ElementHandle) (bool, error) {
	if err := b.check("CheckVisible"); err != nil {
		return false, err
	}
	for _, el := range els {
		if n, err := node(el); err != nil || n.Hidden {
			return false, err
		}
	}
	return len(els) > 0, nil
}

func (b *Backend) CheckNotVisible(els []core.ElementHandle) (bool, error) {
	if err := b.check("CheckNotVisible"); err != nil {
		return false, err
	}
	for _, el := range els {
		if n, err := node(el); err != nil || !n.Hidden {
			return false, err
		}
	}
	return true, nil
}

func (b *Backend) CheckEnabled(els []core.ElementHandle) (bool, error) {
	if err := b.check("CheckEnabled"); err != nil {
		return false, err
	}
	for _, el := range els {
		n, err := node(el)
		if err != nil {
			return false, err
		}
		if _, ok := n.Attrs["disabled"]; ok {
			return false, nil
		}
	}
	return len(els) > 0, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ core.Backend = &Backend{}
