package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titleServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>
			Tom &amp; Jerry&#39;s   hideout </title></head><body>hi</body></html>`))
	})
	mux.HandleFunc("/none", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTitleFetcher_Fetch(t *testing.T) {
	srv := titleServer(t)
	f, err := NewTitleFetcher("", time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	title, err := f.Fetch(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry's hideout", title)

	_, err = f.Fetch(ctx, srv.URL+"/broken")
	require.ErrorIs(t, err, ErrUpstreamStatus)

	_, err = f.Fetch(ctx, srv.URL+"/none")
	require.ErrorIs(t, err, ErrNoTitle)
}

func TestTitleFetcher_Timeout(t *testing.T) {
	srv := titleServer(t)
	f, err := NewTitleFetcher("", 100*time.Millisecond)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/slow")
	require.ErrorIs(t, err, ErrFetchTimeout)
}

func TestTitleFetcher_InvalidURL(t *testing.T) {
	f, err := NewTitleFetcher("", time.Second)
	require.NoError(t, err)

	for _, raw := range []string{"", "   ", "not a url", "ftp://example.onion/file", "http://"} {
		_, err := f.Fetch(context.Background(), raw)
		require.ErrorIs(t, err, ErrValidation, "url %q", raw)
	}
}

func TestNewTitleFetcher_Proxy(t *testing.T) {
	_, err := NewTitleFetcher("socks5://127.0.0.1:9050", time.Second)
	require.NoError(t, err)

	_, err = NewTitleFetcher("gopher://127.0.0.1:70", time.Second)
	require.Error(t, err)
}

func TestExtractTitle_ReadabilityFallback(t *testing.T) {
	u, _ := url.Parse("http://example.onion/post")
	body := []byte(`<html><head><meta property="og:title" content="Open Graph Title"></head><body><article><h1>Heading</h1><p>` +
		"Some long enough paragraph of text for the parser to consider as content." + `</p></article></body></html>`)

	assert.NotEmpty(t, ExtractTitle(body, u))
	assert.Equal(t, "Plain", ExtractTitle([]byte("<title>Plain</title>"), u))
}
