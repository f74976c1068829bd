package imagefetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

func TestFetch(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed.jpg":
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			w.Write([]byte("jpegdata"))
		case "/sniffed":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(pngHeader)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		case "/big":
			w.Header().Set("Content-Type", "image/png")
			w.Write(bytes.Repeat([]byte{0}, MaxSize+1))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := New(server.Client(), "crosspost-test")
	ctx := context.Background()

	t.Run("Content Type From Header", func(t *testing.T) {
		image, err := f.Fetch(ctx, server.URL+"/typed.jpg")
		assert.Nil(err)
		if assert.NotNil(image) {
			assert.Equal("image/jpeg", image.ContentType)
			assert.Equal([]byte("jpegdata"), image.Data)
		}
	})

	t.Run("Content Type Sniffed", func(t *testing.T) {
		image, err := f.Fetch(ctx, server.URL+"/sniffed")
		assert.Nil(err)
		if assert.NotNil(image) {
			assert.Equal("image/png", image.ContentType)
		}
	})

	t.Run("Not An Image", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/page")
		assert.NotNil(err)
	})

	t.Run("Not Found", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/missing.png")
		assert.NotNil(err)
	})

	t.Run("Too Large", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/big")
		assert.NotNil(err)
	})
}
