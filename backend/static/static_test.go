package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pincers/core"
	"github.com/grafana/pincers/lib/fsext"
)

const shop = `<!DOCTYPE html>
<html>
<head><title> Bike shop </title></head>
<body>
  <ul class="bikes">
    <li class="bike">Dahon</li>
    <li class="bike" data-price="1500">Brompton</li>
  </ul>
  <form>
    <input type="checkbox" name="bell" checked>
    <input type="text" name="owner" value="ana">
    <select name="color"><option>Red</option><option selected>Blue</option></select>
    <textarea name="notes">old</textarea>
    <button disabled>Order</button>
  </form>
  <iframe id="inline" srcdoc="<p class='ad'>Inline ad</p>"></iframe>
  <iframe id="remote" src="/frame"></iframe>
  <iframe id="blank"></iframe>
</body>
</html>`

func newShop(t *testing.T) *Backend {
	t.Helper()
	b, err := NewFromString(shop, "http://shop.test/")
	require.NoError(t, err)
	return b
}

func docRoot(t *testing.T, b *Backend) core.ElementHandle {
	t.Helper()
	roots, err := b.DocumentRoot()
	require.NoError(t, err)
	require.Len(t, roots, 1)
	return roots[0]
}

func TestSearch(t *testing.T) {
	t.Parallel()
	b := newShop(t)
	root := docRoot(t, b)

	lis, err := b.SearchByCSS(root, "ul.bikes li")
	require.NoError(t, err)
	require.Len(t, lis, 2)
	text, err := b.ExtractElementText(lis[1])
	require.NoError(t, err)
	assert.Equal(t, "Brompton", text)

	ul, err := b.SearchByCSS(root, "ul")
	require.NoError(t, err)
	under, err := b.SearchByCSS(ul[0], "li")
	require.NoError(t, err)
	assert.Equal(t, lis, under)

	none, err := b.SearchByCSS(ul[0], "input")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = b.SearchByCSS(root, "li[")
	var iae *core.InvalidArgumentError
	assert.ErrorAs(t, err, &iae)

	xs, err := b.SearchByXPath(root, "//li[@data-price]")
	require.NoError(t, err)
	require.Len(t, xs, 1)
	assert.Equal(t, lis[1], xs[0])

	rel, err := b.SearchByXPath(ul[0], ".//li")
	require.NoError(t, err)
	assert.Len(t, rel, 2)

	texts, err := b.SearchByXPath(root, "//li/text()")
	require.NoError(t, err)
	assert.Empty(t, texts)

	_, err = b.SearchByXPath(root, "//li[")
	assert.ErrorAs(t, err, &iae)

	_, err = b.SearchByCSS("not a node", "li")
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	t.Parallel()
	b := newShop(t)
	root := docRoot(t, b)

	tag, err := b.ExtractElementTag(root)
	require.NoError(t, err)
	assert.Equal(t, "html", tag)

	html, err := b.ExtractElementHTML(root)
	require.NoError(t, err)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, `<li class="bike" data-price="1500">Brompton</li>`)

	li, err := b.SearchByCSS(root, "li[data-price]")
	require.NoError(t, err)
	html, err = b.ExtractElementHTML(li[0])
	require.NoError(t, err)
	assert.Equal(t, `<li class="bike" data-price="1500">Brompton</li>`, html)

	v, ok, err := b.ExtractElementAttribute(li[0], "DATA-PRICE")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1500", v)
	_, ok, err = b.ExtractElementAttribute(root, "class")
	require.NoError(t, err)
	assert.False(t, ok)

	title, err := b.DocumentTitle()
	require.NoError(t, err)
	assert.Equal(t, "Bike shop", title)
	u, err := b.DocumentURL()
	require.NoError(t, err)
	assert.Equal(t, "http://shop.test/", u)
}

func TestDocumentRootReadsHTMLElement(t *testing.T) {
	t.Parallel()
	b, err := NewFromString(`<!DOCTYPE html><html lang="en"><body><p>hi</p></body></html>`, "http://shop.test/")
	require.NoError(t, err)
	root := core.NewRootContext(b)

	tag, err := root.Tag()
	require.NoError(t, err)
	assert.Equal(t, "html", tag)
	lang, ok, err := root.Attr("lang")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", lang)
	text, err := root.Text()
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestSetElementText(t *testing.T) {
	t.Parallel()
	b := newShop(t)
	root := docRoot(t, b)

	owner, err := b.SearchByCSS(root, "input[name=owner]")
	require.NoError(t, err)
	require.NoError(t, b.SetElementText(owner[0], "bob"))
	v, _, err := b.ExtractElementAttribute(owner[0], "value")
	require.NoError(t, err)
	assert.Equal(t, "bob", v)

	notes, err := b.SearchByCSS(root, "textarea")
	require.NoError(t, err)
	require.NoError(t, b.SetElementText(notes[0], "<b>new</b>"))
	html, err := b.ExtractElementHTML(notes[0])
	require.NoError(t, err)
	assert.Equal(t, `<textarea name="notes">&lt;b&gt;new&lt;/b&gt;</textarea>`, html)

	var ie *core.InteractionError
	assert.ErrorAs(t, b.SetElementText(root, "x"), &ie)
}

func TestUnsupportedCapabilities(t *testing.T) {
	t.Parallel()
	b := newShop(t)
	root := docRoot(t, b)
	btn, err := b.SearchByCSS(root, "button")
	require.NoError(t, err)

	var ce *core.CapabilityNotSupportedError
	require.ErrorAs(t, b.ClickOnElement(btn[0]), &ce)
	assert.Equal(t, Name, ce.Backend)
	_, err = b.CheckVisible(btn)
	assert.ErrorAs(t, err, &ce)
	_, err = b.CheckNotVisible(btn)
	assert.ErrorAs(t, err, &ce)
}

func TestChecks(t *testing.T) {
	t.Parallel()
	b := newShop(t)
	root := docRoot(t, b)
	btn, err := b.SearchByCSS(root, "button")
	require.NoError(t, err)
	sel, err := b.SearchByCSS(root, "select")
	require.NoError(t, err)

	for _, tc := range []struct {
		name  string
		check func([]core.ElementHandle) (bool, error)
		els   []core.ElementHandle
		want  bool
	}{
		{"present", b.CheckPresent, btn, true},
		{"present empty", b.CheckPresent, nil, false},
		{"not present", b.CheckNotPresent, nil, true},
		{"enabled disabled button", b.CheckEnabled, btn, false},
		{"enabled select", b.CheckEnabled, sel, true},
		{"enabled empty", b.CheckEnabled, nil, false},
	} {
		got, err := tc.check(tc.els)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func frameServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/frame":
			fmt.Fprint(w, `<p class="remote">Remote frame</p><iframe srcdoc="<i>nested</i>"></iframe>`)
		case "/":
			fmt.Fprint(w, shop)
		default:
			fmt.Fprintf(w, `<title>%s</title><a href="/">home</a>`, r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFrames(t *testing.T) {
	t.Parallel()
	srv := frameServer(t)
	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.NavigateTo(srv.URL+"/"))

	find := func(sel string) []core.ElementHandle {
		els, err := b.SearchByCSS(docRoot(t, b), sel)
		require.NoError(t, err)
		return els
	}

	require.NoError(t, b.SwitchToFrame(find("#inline")[0]))
	assert.Len(t, find("p.ad"), 1)
	assert.Empty(t, find("ul"))

	require.NoError(t, b.SwitchToTopFrame())
	require.NoError(t, b.SwitchToFrame(find("#remote")[0]))
	assert.Len(t, find("p.remote"), 1)
	require.NoError(t, b.SwitchToFrame(find("iframe")[0]))
	assert.Len(t, find("i"), 1)

	require.NoError(t, b.SwitchToParentFrame())
	assert.Len(t, find("p.remote"), 1)
	require.NoError(t, b.SwitchToParentFrame())
	assert.Len(t, find("ul"), 1)

	var fne *core.FrameNavigationError
	assert.ErrorAs(t, b.SwitchToParentFrame(), &fne)
	assert.ErrorAs(t, b.SwitchToFrame(find("ul")[0]), &fne)

	require.NoError(t, b.SwitchToFrame(find("#blank")[0]))
	assert.Empty(t, find("p"))

	// the page URL and title stay those of the top document
	u, err := b.DocumentURL()
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/", u)
}

func TestHistory(t *testing.T) {
	t.Parallel()
	srv := frameServer(t)
	b, err := New()
	require.NoError(t, err)

	title := func() string {
		s, err := b.DocumentTitle()
		require.NoError(t, err)
		return s
	}

	require.NoError(t, b.NavigateTo(srv.URL+"/a"))
	require.NoError(t, b.NavigateTo("/b"))
	require.NoError(t, b.NavigateTo("c"))
	assert.Equal(t, "/c", title())

	require.NoError(t, b.NavigateBack(2))
	assert.Equal(t, "/a", title())
	require.NoError(t, b.NavigateBack(5))
	u, err := b.DocumentURL()
	require.NoError(t, err)
	assert.Equal(t, "about:blank", u)

	require.NoError(t, b.NavigateForward(1))
	assert.Equal(t, "/a", title())
	require.NoError(t, b.NavigateForward(0))
	assert.Equal(t, "/a", title())

	// navigating drops the forward history
	require.NoError(t, b.NavigateTo("/d"))
	require.NoError(t, b.NavigateForward(3))
	assert.Equal(t, "/d", title())

	var iae *core.InvalidArgumentError
	assert.ErrorAs(t, b.NavigateBack(-1), &iae)

	require.NoError(t, b.RefreshDocument())
	assert.Equal(t, "/d", title())
}

func TestRefreshDocumentRefetches(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "<p>hit %d</p>", hits.Add(1))
	}))
	defer srv.Close()

	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.NavigateTo(srv.URL))
	require.NoError(t, b.RefreshDocument())
	html, err := b.ExtractElementHTML(docRoot(t, b))
	require.NoError(t, err)
	assert.Contains(t, html, "hit 2")

	// documents loaded from strings have nothing to fetch
	s := newShop(t)
	require.NoError(t, s.RefreshDocument())
}

func TestNavigateFiles(t *testing.T) {
	t.Parallel()
	fs := fsext.NewMemMapFs()
	require.NoError(t, fsext.WriteFile(fs, "/site/index.html", []byte(`<a href="next.html">next</a>`), 0o644))
	require.NoError(t, fsext.WriteFile(fs, "/site/next.html", []byte(`<title>Next</title>`), 0o644))
	// latin-1 body with a meta charset
	require.NoError(t, fsext.WriteFile(fs, "/site/latin.html",
		[]byte("<meta charset=\"iso-8859-1\"><p>Pe\xf1a</p>"), 0o644))

	f, err := NewHTTPFetcher(FetcherOptions{Fs: fs})
	require.NoError(t, err)
	b, err := New(WithFetcher(f), WithContext(context.Background()))
	require.NoError(t, err)

	require.NoError(t, b.NavigateTo("file:///site/index.html"))
	require.NoError(t, b.NavigateTo("next.html"))
	title, err := b.DocumentTitle()
	require.NoError(t, err)
	assert.Equal(t, "Next", title)

	require.NoError(t, b.NavigateTo("file:///site/latin.html"))
	ps, err := b.SearchByCSS(docRoot(t, b), "p")
	require.NoError(t, err)
	text, err := b.ExtractElementText(ps[0])
	require.NoError(t, err)
	assert.Equal(t, "Peña", text)

	assert.Error(t, b.NavigateTo("file:///site/missing.html"))
}

func TestFetchCookies(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		fmt.Fprint(w, "<p>hi</p>")
	}))
	defer srv.Close()

	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.NavigateTo(srv.URL))
	cookies, err := b.FetchCookies()
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, core.Cookie{Name: "session", Value: "abc"}, cookies[0])
}

func TestNewFromReaderSniffsCharset(t *testing.T) {
	t.Parallel()

	// "Café" in ISO-8859-1, declared only by the meta tag
	src := "<html><head><meta charset=\"iso-8859-1\"><title>Caf\xe9</title></head><body></body></html>"
	b, err := NewFromReader(strings.NewReader(src), "http://shop.test/menu")
	require.NoError(t, err)

	title, err := b.DocumentTitle()
	require.NoError(t, err)
	assert.Equal(t, "Café", title)

	u, err := b.DocumentURL()
	require.NoError(t, err)
	assert.Equal(t, "http://shop.test/menu", u)
}
