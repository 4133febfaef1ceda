package core

import (
	"fmt"
	"strings"
)

type stepKind uint8

const (
	stepCSS stepKind = iota + 1
	stepXPath
	stepIndex
	stepLast
	stepFilter
)

// step is one link of a query chain. Keeping it lets Refresh replay the
// chain against the current document.
type step struct {
	kind     stepKind
	selector string
	index    int
	filter   *filter
}

func cssStep(selector string) step   { return step{kind: stepCSS, selector: selector} }
func xpathStep(selector string) step { return step{kind: stepXPath, selector: selector} }
func indexStep(i int) step           { return step{kind: stepIndex, index: i} }
func lastStep() step                 { return step{kind: stepLast} }
func filterStep(f *filter) step      { return step{kind: stepFilter, filter: f} }

func (s step) String() string {
	switch s.kind {
	case stepCSS:
		return fmt.Sprintf("css(%q)", s.selector)
	case stepXPath:
		return fmt.Sprintf("xpath(%q)", s.selector)
	case stepIndex:
		return fmt.Sprintf("[%d]", s.index)
	case stepLast:
		return "last"
	case stepFilter:
		return s.filter.name
	default:
		return "?"
	}
}

func (s step) apply(parent *Context) ([]ElementHandle, error) {
	switch s.kind {
	case stepCSS:
		return parent.search("CSS", s.selector, parent.backend.SearchByCSS)
	case stepXPath:
		return parent.search("XPath", s.selector, parent.backend.SearchByXPath)
	case stepIndex, stepLast:
		els, err := parent.resolve()
		if err != nil {
			return nil, err
		}
		i := s.index
		if s.kind == stepLast {
			i = len(els) - 1
		}
		if i < 0 || i >= len(els) {
			return nil, &IndexOutOfRangeError{Index: i, Len: len(els), Chain: parent.Chain()}
		}
		return []ElementHandle{els[i]}, nil
	case stepFilter:
		return s.filter.apply(parent)
	default:
		return nil, fmt.Errorf("unknown query step %d", s.kind)
	}
}

// CSS returns a context with the elements matching selector under every
// element of c. Results keep the order of the originating elements and are
// not deduplicated across them.
func (c *Context) CSS(selector string) *Context {
	return c.derive(cssStep(selector))
}

// XPath is like CSS for XPath expressions.
func (c *Context) XPath(selector string) *Context {
	return c.derive(xpathStep(selector))
}

// Find is CSS for callers that pick the selector kind at runtime.
func (c *Context) Find(selector string, xpath bool) *Context {
	if xpath {
		return c.XPath(selector)
	}
	return c.CSS(selector)
}

type searchFunc func(el ElementHandle, selector string) ([]ElementHandle, error)

func (c *Context) search(kind, selector string, fn searchFunc) ([]ElementHandle, error) {
	els, err := c.resolve()
	if err != nil {
		return nil, err
	}
	c.logger().Debugf("Context:"+kind, "chain:%q sel:%q scopes:%d", c.Chain(), selector, len(els))

	var out []ElementHandle
	for _, el := range els {
		found, err := fn(el, selector)
		if err != nil {
			return nil, c.annotate(fmt.Sprintf("%s %q", kind, selector), err)
		}
		out = append(out, found...)
	}
	return out, nil
}

// filter keeps the elements (or, for containers, the descendants matching
// expand) for which keep returns true.
type filter struct {
	name   string
	target string
	expand string
	keep   func(c *Context, el ElementHandle) (bool, error)
}

func (f *filter) apply(parent *Context) ([]ElementHandle, error) {
	els, err := parent.resolve()
	if err != nil {
		return nil, err
	}
	b := parent.backend
	var out []ElementHandle
	for _, el := range els {
		candidates := []ElementHandle{el}
		tag, err := b.ExtractElementTag(el)
		if err != nil {
			return nil, parent.annotate(f.name, err)
		}
		if !strings.EqualFold(tag, f.target) {
			if candidates, err = b.SearchByCSS(el, f.expand); err != nil {
				return nil, parent.annotate(f.name, err)
			}
		}
		for _, cand := range candidates {
			ok, err := f.keep(parent, cand)
			if err != nil {
				return nil, parent.annotate(f.name, err)
			}
			if ok {
				out = append(out, cand)
			}
		}
	}
	return out, nil
}

func hasAttribute(name string) func(c *Context, el ElementHandle) (bool, error) {
	return func(c *Context, el ElementHandle) (bool, error) {
		_, ok, err := c.backend.ExtractElementAttribute(el, name)
		return ok, err
	}
}

var (
	selectedFilter = &filter{
		name: "selected", target: "option", expand: "option",
		keep: hasAttribute("selected"),
	}
	checkedFilter = &filter{
		name: "checked", target: "input", expand: "input",
		keep: hasAttribute("checked"),
	}
)

// Selected returns the selected options. Option elements are tested
// directly; any other element contributes its selected option descendants.
func (c *Context) Selected() *Context {
	return c.derive(filterStep(selectedFilter))
}

// Checked returns the checked inputs. Input elements are tested directly;
// any other element contributes its checked input descendants.
func (c *Context) Checked() *Context {
	return c.derive(filterStep(checkedFilter))
}
