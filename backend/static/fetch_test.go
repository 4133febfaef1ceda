package static

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/pincers/lib/fsext"
)

const page = `<html><head><title>Bikes</title></head><body><p>ok</p></body></html>`

func compress(t *testing.T, enc string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch enc {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = zw
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		t.Fatalf("unknown encoding %s", enc)
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func mustParseURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestHTTPFetcherDecodesBodies(t *testing.T) {
	t.Parallel()

	for _, enc := range []string{"gzip", "deflate", "zstd", "br"} {
		enc := enc
		t.Run(enc, func(t *testing.T) {
			t.Parallel()
			body := compress(t, enc, []byte(page))
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), enc)
				w.Header().Set("Content-Encoding", enc)
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			f, err := NewHTTPFetcher(FetcherOptions{})
			require.NoError(t, err)
			got, err := f.Fetch(context.Background(), mustParseURL(t, srv.URL))
			require.NoError(t, err)
			assert.Equal(t, page, string(got.Body))
			assert.Equal(t, http.StatusOK, got.StatusCode)
		})
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write([]byte("not gzip at all"))
		case "/weird":
			w.Header().Set("Content-Encoding", "lzma")
			_, _ = w.Write([]byte("x"))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("<p>missing</p>"))
		}
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(FetcherOptions{})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), mustParseURL(t, srv.URL+"/broken"))
	assert.ErrorContains(t, err, "decompressing body")
	_, err = f.Fetch(context.Background(), mustParseURL(t, srv.URL+"/weird"))
	assert.ErrorContains(t, err, `unsupported content encoding "lzma"`)

	got, err := f.Fetch(context.Background(), mustParseURL(t, srv.URL+"/nope"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.Equal(t, "<p>missing</p>", string(got.Body))

	_, err = f.Fetch(context.Background(), mustParseURL(t, "ftp://example.com/x"))
	assert.ErrorContains(t, err, `unsupported scheme "ftp"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, mustParseURL(t, srv.URL))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcherCookiesAndUserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bikebot/1.0", r.UserAgent())
		http.SetCookie(w, &http.Cookie{Name: "cart", Value: "3", Path: "/"})
		if r.URL.Path == "/login" {
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(FetcherOptions{UserAgent: "bikebot/1.0"})
	require.NoError(t, err)
	got, err := f.Fetch(context.Background(), mustParseURL(t, srv.URL+"/login"))
	require.NoError(t, err)
	assert.Equal(t, "/home", got.URL.Path)

	cookies := f.Cookies(got.URL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "cart", cookies[0].Name)
	assert.Nil(t, f.Cookies(mustParseURL(t, "file:///tmp/x.html")))
}

func TestHTTPFetcherFiles(t *testing.T) {
	t.Parallel()

	fs := fsext.NewMemMapFs()
	require.NoError(t, fsext.WriteFile(fs, "/site/index.html", []byte(page), 0o644))
	f, err := NewHTTPFetcher(FetcherOptions{Fs: fs})
	require.NoError(t, err)

	got, err := f.Fetch(context.Background(), mustParseURL(t, "file:///site/index.html"))
	require.NoError(t, err)
	assert.Equal(t, page, string(got.Body))
	assert.Equal(t, "text/html", got.ContentType)

	_, err = f.Fetch(context.Background(), mustParseURL(t, "file:///site/missing.html"))
	assert.Error(t, err)

	blank, err := f.Fetch(context.Background(), mustParseURL(t, "about:blank"))
	require.NoError(t, err)
	assert.Empty(t, blank.Body)
}
