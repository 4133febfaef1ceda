package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/core/coretest"
)

func TestParsePrintMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]printMode{
		"text":      {kind: "text"},
		"html":      {kind: "html"},
		"count":     {kind: "count"},
		"json":      {kind: "json"},
		"attr=href": {kind: "attr", attr: "href"},
	} {
		got, err := parsePrintMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "attr", "attr=", "text=1", "yaml"} {
		_, err := parsePrintMode(in)
		assert.Error(t, err, in)
	}
}

func newShop() (*coretest.Backend, *core.Context) {
	el, text := coretest.El, coretest.TextEl
	b := coretest.New("http://shop.test/", coretest.Doc(
		el("ul", nil,
			text("li", "GT", "data-id", "gt"),
			text("li", "Kona", "data-id", "kona", "class", "sale new"),
		),
	))
	return b, core.NewRootContext(b)
}

func TestRender(t *testing.T) {
	t.Parallel()

	_, root := newShop()
	items := root.CSS("li")

	out, err := render(items, printMode{kind: "text"})
	require.NoError(t, err)
	assert.Equal(t, "GT\nKona\n", out)

	out, err = render(items, printMode{kind: "attr", attr: "data-id"})
	require.NoError(t, err)
	assert.Equal(t, "gt\nkona\n", out)

	out, err = render(items, printMode{kind: "count"})
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = render(items.Last(), printMode{kind: "json"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"tag":"li","text":"Kona","classes":["sale","new"],"inputMode":"none"}]`, out)

	_, err = render(root.CSS("table"), printMode{kind: "text"})
	var emptyErr *core.EmptyResultError
	require.True(t, errors.As(err, &emptyErr))

	out, err = render(root.CSS("table"), printMode{kind: "count"})
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestChainFlagsOpen(t *testing.T) {
	t.Parallel()

	b, root := newShop()
	f := chainFlags{index: 1}
	res, err := f.open(root, "http://shop.test/", []string{"ul", "li"})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, `document > css("ul") > css("li") > [1]`, res.Chain())
	assert.Equal(t, []string{"NavigateTo(http://shop.test/)"}, b.CallsTo("NavigateTo"))

	f = chainFlags{index: 5}
	res, err = f.open(root, "http://shop.test/", []string{"li"})
	require.NoError(t, err)
	var ioe *core.IndexOutOfRangeError
	assert.True(t, errors.As(res.Err(), &ioe))

	gone := errors.New("session gone")
	b.Errs = map[string]error{"DocumentRoot": gone}
	f = chainFlags{index: -1}
	res, err = f.open(root, "http://shop.test/", nil)
	require.NoError(t, err)
	assert.True(t, res.IsRoot())
	assert.ErrorIs(t, res.Err(), gone)
}
