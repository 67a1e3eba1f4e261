package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("Should count documents by outcome", func(t *testing.T) {
		m := New()
		m.DocumentProduced("s3")
		m.DocumentProduced("s3")
		m.DocumentSkipped("s3")

		assert.Equal(t, 2.0, testutil.ToFloat64(m.documents.WithLabelValues("s3", "ok")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("s3", "blank")))
	})

	t.Run("Should track open sessions", func(t *testing.T) {
		m := New()
		m.SessionOpened()
		m.SessionOpened()
		m.SessionClosed()

		assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
	})

	t.Run("Should be safe on a nil receiver", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.RecordsRead("redis", 3)
			m.PageServed("sources")
			m.ScanFailed("pgvector")
		})
	})

	t.Run("Should expose the registry over HTTP", func(t *testing.T) {
		m := New()
		m.RecordsRead("redis", 5)
		rec := httptest.NewRecorder()

		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		assert.Contains(t, rec.Body.String(), `contexta_metadata_records_total{backend="redis"} 5`)
	})
}
