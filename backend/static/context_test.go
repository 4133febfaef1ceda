package static_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pincers/backend/static"
	"github.com/grafana/pincers/core"
)

const bikes = `<html><body>
<ul class="bikes"><li>GT</li><li>Mongoose</li><li>Kona</li></ul>
<ul class="empty"></ul>
<form>
  <input type="checkbox" name="bell" checked>
  <input type="checkbox" name="light">
</form>
</body></html>`

func newRoot(t *testing.T, src string) *core.Context {
	t.Helper()
	b, err := static.NewFromString(src, "http://shop.test/")
	require.NoError(t, err)
	return core.NewRootContext(b)
}

func TestBikes(t *testing.T) {
	t.Parallel()
	root := newRoot(t, bikes)
	items := root.CSS("ul.bikes li")

	assert.Equal(t, 3, items.Count())
	text, err := items.Text()
	require.NoError(t, err)
	assert.Equal(t, "GT", text)
	html, err := items.HTML()
	require.NoError(t, err)
	assert.Equal(t, "<li>GT</li><li>Mongoose</li><li>Kona</li>", html)

	text, err = root.XPath("//ul[@class='bikes']/li").Last().Text()
	require.NoError(t, err)
	assert.Equal(t, "Kona", text)
}

func TestCheckboxes(t *testing.T) {
	t.Parallel()
	root := newRoot(t, bikes)
	boxes := root.CSS("input[type=checkbox]")

	checked, err := boxes.At(0).IsChecked()
	require.NoError(t, err)
	assert.True(t, checked)
	checked, err = boxes.At(1).IsChecked()
	require.NoError(t, err)
	assert.False(t, checked)

	mode, err := boxes.InputMode()
	require.NoError(t, err)
	assert.Equal(t, core.InputModeCheckbox, mode)

	name, _, err := root.CSS("form").Checked().Attr("name")
	require.NoError(t, err)
	assert.Equal(t, "bell", name)
}

func TestEmptyResult(t *testing.T) {
	t.Parallel()
	root := newRoot(t, bikes)
	items := root.CSS("ul.empty").CSS("li")

	assert.Equal(t, 0, items.Count())
	_, err := items.Text()
	var ere *core.EmptyResultError
	require.ErrorAs(t, err, &ere)
	assert.Equal(t, `document > css("ul.empty") > css("li")`, ere.Chain)
}

func TestInvalidSelector(t *testing.T) {
	t.Parallel()
	root := newRoot(t, bikes)
	var iae *core.InvalidArgumentError
	assert.ErrorAs(t, root.CSS("ul[").Err(), &iae)
	assert.ErrorAs(t, root.XPath("//ul[").Err(), &iae)
}

func TestWaitAcrossReloads(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/done" {
			_, _ = w.Write([]byte(`<div class="receipt">paid</div>`))
			return
		}
		_, _ = w.Write([]byte(`<p>processing</p>`))
	}))
	defer srv.Close()

	b, err := static.New()
	require.NoError(t, err)
	root := core.NewRootContext(b)
	_, err = root.Goto(srv.URL + "/pending")
	require.NoError(t, err)

	opts := core.WaitOptions{Timeout: 500 * time.Millisecond, Interval: 10 * time.Millisecond}
	_, err = root.WaitFor(context.Background(), "div.receipt", core.Present, core.WaitOptions{Timeout: 30 * time.Millisecond})
	var te *core.TimeoutError
	require.ErrorAs(t, err, &te)

	_, err = root.Goto(srv.URL + "/done")
	require.NoError(t, err)
	receipt, err := root.WaitFor(context.Background(), "div.receipt", core.Present, opts)
	require.NoError(t, err)
	text, err := receipt.Text()
	require.NoError(t, err)
	assert.Equal(t, "paid", text)

	_, err = root.Back(1)
	require.NoError(t, err)
	_, err = receipt.WaitUntil(context.Background(), core.NotPresent, opts)
	require.NoError(t, err)

	_, err = receipt.WaitUntil(context.Background(), core.Visible, opts)
	var ce *core.CapabilityNotSupportedError
	assert.ErrorAs(t, err, &ce)
}
