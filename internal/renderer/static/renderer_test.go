package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

func newPageServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	})
	mux.HandleFunc("/banner.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if _, err := w.Write(pngBytes); err != nil {
			t.Errorf("write image: %v", err)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRenderAndExtract(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Doc Title | Site</title></head><body>
<h1>A Headline Long Enough</h1>
<img src="/icon.png" width="32" height="32">
<img src="/banner.png" width="800" height="420">
</body></html>`
	server := newPageServer(t, html)

	r := New(Config{Timeout: 5 * time.Second, ViewportWidth: 1280})
	content, err := r.RenderAndExtract(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "A Headline Long Enough", content.Title)
	assert.Equal(t, pngBytes, content.Image)
}

func TestRenderAndExtractTitleFallsBackToDocTitle(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>The Article Name | Site</title></head><body>
<h1>Hi</h1>
<img src="/banner.png" width="800" height="420">
</body></html>`
	server := newPageServer(t, html)

	r := New(Config{Timeout: 5 * time.Second, ViewportWidth: 1280})
	content, err := r.RenderAndExtract(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "The Article Name", content.Title)
}

func TestRenderAndExtractNoQualifyingImage(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<h1>A Headline Long Enough</h1>
<img src="/icon.png" width="32" height="32">
</body></html>`
	server := newPageServer(t, html)

	r := New(Config{Timeout: 5 * time.Second, ViewportWidth: 1280})
	_, err := r.RenderAndExtract(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrNoPreviewImage)
}

func TestRenderAndExtractCanceledContext(t *testing.T) {
	t.Parallel()

	r := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RenderAndExtract(ctx, "http://example.com")
	assert.Error(t, err)
}
