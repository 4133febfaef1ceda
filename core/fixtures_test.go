package core_test

import (
	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/core/coretest"
)

const bikesURL = "http://shop.test/bikes"

// bikes returns a fresh copy of the bike shop page used across the tests.
func bikes() *coretest.Node {
	el, text := coretest.El, coretest.TextEl
	return coretest.Doc(
		el("html", nil,
			el("head", nil, text("title", "Bikes")),
			el("body", nil,
				el("ul", []string{"class", "bikes"},
					text("li", "Dahon", "class", "bike folding"),
					text("li", "Brompton", "class", "bike folding", "data-price", "1500"),
					text("li", "Specialized", "class", "bike mtb"),
				),
				el("ul", []string{"class", "parts"},
					text("li", "Chain", "class", "part"),
				),
				el("form", nil,
					el("input", []string{"type", "checkbox", "name", "bell", "checked", ""}),
					el("input", []string{"type", "checkbox", "name", "light"}),
					el("input", []string{"type", "text", "name", "owner", "value", "ana"}),
					el("input", []string{"type", "hidden", "name", "token", "value", "x"}),
					el("input", []string{"type", "file", "name", "photo"}),
					el("input", []string{"type", "radio", "name", "size"}),
					el("input", []string{"type", "submit"}),
					el("textarea", []string{"name", "notes"}),
					el("select", []string{"name", "color"},
						text("option", "Red", "value", "red"),
						text("option", "Blue", "value", "blue", "selected", ""),
					),
					text("button", "Order", "disabled", ""),
				),
				withFrame(el("iframe", []string{"id", "ad"}), coretest.Doc(
					el("div", []string{"class", "ad"}, text("p", "Buy more bikes")),
				)),
			),
		),
	)
}

func withFrame(n, content *coretest.Node) *coretest.Node {
	n.Content = content
	return n
}

func newBikes(opts ...core.Option) (*coretest.Backend, *core.Context) {
	b := coretest.New(bikesURL, bikes())
	return b, core.NewRootContext(b, opts...)
}
