package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/core/coretest"
)

func TestGotoURL(t *testing.T) {
	t.Parallel()
	b, root := newBikes()
	b.SetPage("http://shop.test/parts", coretest.Doc(coretest.TextEl("title", "Parts")))

	got, err := root.CSS("ul").Goto("http://shop.test/parts")
	require.NoError(t, err)
	assert.Same(t, root, got)
	assert.Equal(t, []string{"NavigateTo(http://shop.test/parts)"}, b.CallsTo("NavigateTo"))

	url, err := root.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://shop.test/parts", url)
	title, err := root.Title()
	require.NoError(t, err)
	assert.Equal(t, "Parts", title)

	boom := errors.New("dns")
	b.Errs = map[string]error{"NavigateTo": boom}
	_, err = root.Goto("http://nowhere.test")
	assert.ErrorIs(t, err, boom)
}

func TestGotoOptionsValidation(t *testing.T) {
	t.Parallel()
	b, root := newBikes()

	cases := map[string]struct {
		ctx  *core.Context
		opts core.GotoOptions
	}{
		"url and frame":      {root, core.GotoOptions{URL: "http://x.test", Frame: core.FrameTop}},
		"nothing on root":    {root, core.GotoOptions{}},
		"unknown scope":      {root, core.GotoOptions{Frame: core.FrameScope("sibling")}},
		"unsupported target": {root, core.GotoOptions{Frame: 42}},
		"nil context":        {root, core.GotoOptions{Frame: (*core.Context)(nil)}},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := tc.ctx.GotoWith(tc.opts)
			var iae *core.InvalidArgumentError
			assert.ErrorAs(t, err, &iae)
		})
	}
	t.Cleanup(func() {
		assert.Empty(t, b.CallsTo("NavigateTo"))
		assert.Empty(t, b.CallsTo("SwitchToFrame"))
	})
}

func TestParseGotoOptions(t *testing.T) {
	t.Parallel()

	opts, err := core.ParseGotoOptions(map[string]string{"url": "http://x.test"})
	require.NoError(t, err)
	assert.Equal(t, core.GotoOptions{URL: "http://x.test"}, opts)

	opts, err = core.ParseGotoOptions(map[string]string{"frame": "top"})
	require.NoError(t, err)
	assert.Equal(t, core.FrameTop, opts.Frame)

	opts, err = core.ParseGotoOptions(map[string]string{"frame": "parent"})
	require.NoError(t, err)
	assert.Equal(t, core.FrameParent, opts.Frame)

	opts, err = core.ParseGotoOptions(map[string]string{"frame": "#ad"})
	require.NoError(t, err)
	assert.Equal(t, "#ad", opts.Frame)

	_, err = core.ParseGotoOptions(map[string]string{"url": "http://x.test", "window": "2", "tab": "1"})
	var iae *core.InvalidArgumentError
	require.ErrorAs(t, err, &iae)
	assert.Contains(t, iae.Reason, "tab, window")
}

func TestFrames(t *testing.T) {
	t.Parallel()

	t.Run("by selector", func(t *testing.T) {
		t.Parallel()
		_, root := newBikes()
		got, err := root.GotoFrame("#ad")
		require.NoError(t, err)
		assert.Same(t, root, got)

		text, err := root.CSS("div.ad p").Text()
		require.NoError(t, err)
		assert.Equal(t, "Buy more bikes", text)
		assert.Equal(t, 0, root.CSS("ul").Count())

		_, err = root.GotoFrame(core.FrameParent)
		require.NoError(t, err)
		assert.Equal(t, 2, root.CSS("ul").Count())
	})

	t.Run("by context", func(t *testing.T) {
		t.Parallel()
		_, root := newBikes()
		_, err := root.GotoFrame(root.CSS("iframe"))
		require.NoError(t, err)
		assert.Equal(t, 1, root.CSS("div.ad").Count())

		_, err = root.GotoFrame(core.FrameTop)
		require.NoError(t, err)
		assert.Equal(t, 0, root.CSS("div.ad").Count())
	})

	t.Run("top from nested frames", func(t *testing.T) {
		t.Parallel()
		el, text := coretest.El, coretest.TextEl
		inner := coretest.Doc(text("p", "deep", "class", "inner"))
		outer := coretest.Doc(
			text("p", "middle", "class", "outer"),
			withFrame(el("iframe", []string{"id", "inner"}), inner),
		)
		b := coretest.New(bikesURL, coretest.Doc(
			text("h1", "Top", "class", "top"),
			withFrame(el("iframe", []string{"id", "outer"}), outer),
		))
		root := core.NewRootContext(b)

		_, err := root.GotoFrame("#outer")
		require.NoError(t, err)
		_, err = root.GotoFrame("#inner")
		require.NoError(t, err)
		assert.Equal(t, 1, root.CSS("p.inner").Count())
		assert.Equal(t, 0, root.CSS("h1.top").Count())

		_, err = root.GotoFrame(core.FrameTop)
		require.NoError(t, err)
		assert.Equal(t, 1, root.CSS("h1.top").Count())
		assert.Equal(t, 0, root.CSS("p.inner").Count())
		assert.Equal(t, 0, root.CSS("p.outer").Count())
		assert.Len(t, b.CallsTo("SwitchToFrame"), 2)
		assert.Len(t, b.CallsTo("SwitchToTopFrame"), 1)
	})

	t.Run("search context switches into itself", func(t *testing.T) {
		t.Parallel()
		_, root := newBikes()
		got, err := root.CSS("iframe").GotoWith(core.GotoOptions{})
		require.NoError(t, err)
		assert.Same(t, root, got)
		assert.Equal(t, 1, root.CSS("div.ad").Count())
	})

	t.Run("selector is resolved against the receiver", func(t *testing.T) {
		t.Parallel()
		_, root := newBikes()
		_, err := root.CSS("ul").GotoFrame("iframe")
		var nsf *core.NoSuchFrameError
		require.ErrorAs(t, err, &nsf)
		assert.Equal(t, "iframe", nsf.Selector)
		assert.Equal(t, `document > css("ul")`, nsf.Chain)
	})

	t.Run("empty frame context", func(t *testing.T) {
		t.Parallel()
		_, root := newBikes()
		_, err := root.GotoFrame(root.CSS("frame"))
		var ere *core.EmptyResultError
		assert.ErrorAs(t, err, &ere)
	})

	t.Run("parent of top", func(t *testing.T) {
		t.Parallel()
		_, root := newBikes()
		_, err := root.GotoFrame(core.FrameParent)
		var fne *core.FrameNavigationError
		assert.ErrorAs(t, err, &fne)
	})

	t.Run("failed context", func(t *testing.T) {
		t.Parallel()
		_, root := newBikes()
		_, err := root.CSS("ul").At(7).GotoWith(core.GotoOptions{})
		var ioe *core.IndexOutOfRangeError
		assert.ErrorAs(t, err, &ioe)
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()
	b, root := newBikes()
	for _, u := range []string{"http://shop.test/a", "http://shop.test/b"} {
		_, err := root.Goto(u)
		require.NoError(t, err)
	}

	got, err := root.Back(2)
	require.NoError(t, err)
	assert.Same(t, root, got)
	url, err := root.URL()
	require.NoError(t, err)
	assert.Equal(t, bikesURL, url)

	_, err = root.Forward(1)
	require.NoError(t, err)
	url, err = root.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://shop.test/a", url)

	_, err = root.Back(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"NavigateBack(2)"}, b.CallsTo("NavigateBack"))

	_, err = root.Forward(-1)
	var iae *core.InvalidArgumentError
	require.ErrorAs(t, err, &iae)
	assert.Equal(t, "Forward", iae.Operation)

	got, err = root.CSS("li").Reload()
	require.NoError(t, err)
	assert.Same(t, root, got)
	assert.Len(t, b.CallsTo("RefreshDocument"), 1)
}

func TestCookies(t *testing.T) {
	t.Parallel()
	b, root := newBikes()
	b.Cookies = []core.Cookie{{Name: "cart", Value: "3"}}
	cookies, err := root.Cookies()
	require.NoError(t, err)
	assert.Equal(t, b.Cookies, cookies)
}

func TestStepsHelper(t *testing.T) {
	t.Parallel()
	n := 0
	require.NoError(t, core.Steps("NavigateBack", 3, func() error { n++; return nil }))
	assert.Equal(t, 3, n)
	require.NoError(t, core.Steps("NavigateBack", 0, func() error { n++; return nil }))
	assert.Equal(t, 3, n)

	var iae *core.InvalidArgumentError
	assert.ErrorAs(t, core.Steps("NavigateBack", -2, func() error { return nil }), &iae)

	stop := errors.New("stop")
	n = 0
	assert.ErrorIs(t, core.Steps("NavigateForward", 5, func() error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	}), stop)
	assert.Equal(t, 2, n)
}
