package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"uk.co.dudmesh.crosspost/internal/model"
)

func TestRecorder(t *testing.T) {
	assert := assert.New(t)

	t.Run("Counts", func(t *testing.T) {
		r := New()
		at := time.Unix(1700000000, 0)
		r.Delivered("text", at)
		r.Delivered("text", at)
		r.Delivered("repost", at)
		r.Skipped("reply")
		r.Failed(model.FailureKindRejected)

		assert.Equal(2.0, testutil.ToFloat64(r.statuses.WithLabelValues("text")))
		assert.Equal(1.0, testutil.ToFloat64(r.statuses.WithLabelValues("repost")))
		assert.Equal(1.0, testutil.ToFloat64(r.skipped.WithLabelValues("reply")))
		assert.Equal(0.0, testutil.ToFloat64(r.statuses.WithLabelValues("reply")))
		assert.Equal(1.0, testutil.ToFloat64(r.failures.WithLabelValues("rejected")))
		assert.Equal(1700000000.0, testutil.ToFloat64(r.lastSuccess))
	})

	t.Run("Push Skipped Without URL", func(t *testing.T) {
		assert.Nil(New().Push("", "run"))
	})

	t.Run("Push", func(t *testing.T) {
		var path, body string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			data, _ := io.ReadAll(r.Body)
			body = string(data)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		r := New()
		r.Delivered("images", time.Now())
		assert.Nil(r.Push(server.URL, "abc"))
		assert.Equal("/metrics/job/crosspost/run/abc", path)
		assert.NotEmpty(body)
	})

	t.Run("Push Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		err := New().Push(server.URL, "abc")
		assert.NotNil(err)
		assert.True(strings.HasPrefix(err.Error(), "pushing metrics"))
	})
}
