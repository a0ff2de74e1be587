package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("mindmap")
	b := NewCollector("mindmap")

	a.MapsSaved.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.MapsSaved))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.MapsSaved))
}

func TestCollector_Recorders(t *testing.T) {
	c := NewCollector("mindmap")

	c.RecordDB("save", "memory", nil, time.Millisecond)
	c.RecordDB("save", "memory", errors.New("boom"), time.Millisecond)
	c.RecordHistory("undo", "moved")
	c.RecordCache(true)
	c.RecordCache(false)
	c.RecordCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBOperations.WithLabelValues("save", "memory", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DBOperations.WithLabelValues("save", "memory", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HistoryOperations.WithLabelValues("undo", "moved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheMisses))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordDB("get", "memory", nil, 0)
		c.RecordDispatch("command", "X", nil, 0)
		c.RecordHistory("redo", "noop")
		c.RecordCache(true)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("mindmap")
	c.MapsDeleted.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "mindmap_maps_deleted_total 1")
}
