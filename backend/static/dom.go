package static

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/grafana/pincers/core"
)

func node(el core.ElementHandle) (*html.Node, error) {
	n, ok := el.(*html.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("element handle %T does not belong to the %s backend", el, Name)
	}
	return n, nil
}

// documentElement maps a document node to its <html> element. Other nodes
// are returned unchanged.
func documentElement(n *html.Node) *html.Node {
	if n.Type != html.DocumentNode {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return n
}

func selection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func handles(nodes []*html.Node) []core.ElementHandle {
	out := make([]core.ElementHandle, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

var selectorCache sync.Map //nolint:gochecknoglobals

func compile(selector string) (cascadia.Selector, error) {
	if sel, ok := selectorCache.Load(selector); ok {
		return sel.(cascadia.Selector), nil //nolint:forcetypeassert
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &core.InvalidArgumentError{Operation: "SearchByCSS", Reason: err.Error()}
	}
	selectorCache.Store(selector, sel)
	return sel, nil
}

func (b *Backend) SearchByCSS(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	n, err := node(el)
	if err != nil {
		return nil, err
	}
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	return handles(selection(n).FindMatcher(sel).Nodes), nil
}

// SearchByXPath evaluates selector with n as the context node. As in any
// XPath engine, absolute paths like "//li" start from the document root;
// use ".//li" to stay under the element.
func (b *Backend) SearchByXPath(el core.ElementHandle, selector string) ([]core.ElementHandle, error) {
	n, err := node(el)
	if err != nil {
		return nil, err
	}
	nodes, err := htmlquery.QueryAll(n, selector)
	if err != nil {
		return nil, &core.InvalidArgumentError{Operation: "SearchByXPath", Reason: err.Error()}
	}
	elements := nodes[:0]
	for _, found := range nodes {
		if found.Type == html.ElementNode {
			elements = append(elements, found)
		}
	}
	return handles(elements), nil
}

func (b *Backend) ExtractElementTag(el core.ElementHandle) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	n = documentElement(n)
	if n.Type != html.ElementNode {
		return "", nil
	}
	return n.Data, nil
}

func (b *Backend) ExtractElementText(el core.ElementHandle) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return selection(n).Text(), nil
}

func (b *Backend) ExtractElementHTML(el core.ElementHandle) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	if n.Type == html.DocumentNode {
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	return goquery.OuterHtml(selection(n))
}

func (b *Backend) ExtractElementAttribute(el core.ElementHandle, name string) (string, bool, error) {
	n, err := node(el)
	if err != nil {
		return "", false, err
	}
	n = documentElement(n)
	if n.Type != html.ElementNode {
		return "", false, nil
	}
	v, ok := attr(n, name)
	return v, ok, nil
}

// SetElementText sets the value attribute of inputs and replaces the
// content of any other element with value.
func (b *Backend) SetElementText(el core.ElementHandle, value string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	if n.Type != html.ElementNode {
		return &core.InteractionError{Operation: "SetElementText", Err: fmt.Errorf("%s is not an element", n.Data)}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	sel := selection(n)
	if n.Data == "input" {
		sel.SetAttr("value", value)
	} else {
		sel.SetText(value)
	}
	return nil
}

// CheckEnabled reports whether the elements are present and the first one
// has no disabled attribute.
func (b *Backend) CheckEnabled(els []core.ElementHandle) (bool, error) {
	if len(els) == 0 {
		return false, nil
	}
	n, err := node(els[0])
	if err != nil {
		return false, err
	}
	_, disabled := attr(n, "disabled")
	return !disabled, nil
}
