package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDocument(t *testing.T) {
	docsBefore := testutil.ToFloat64(documentsProcessed)
	chunksBefore := testutil.ToFloat64(chunksCreated)

	RecordDocument(3, 10*time.Millisecond)

	assert.InDelta(t, docsBefore+1, testutil.ToFloat64(documentsProcessed), 0)
	assert.InDelta(t, chunksBefore+3, testutil.ToFloat64(chunksCreated), 0)
}

func TestRecordEntities(t *testing.T) {
	before := testutil.ToFloat64(entitiesExtracted.WithLabelValues(EntityTicker))

	RecordEntities(EntityTicker, 2)
	RecordEntities(EntityTicker, 0)

	assert.InDelta(t, before+2, testutil.ToFloat64(entitiesExtracted.WithLabelValues(EntityTicker)), 0)
}

func TestCacheCounters(t *testing.T) {
	hits := testutil.ToFloat64(cacheHits)
	misses := testutil.ToFloat64(cacheMisses)
	shared := testutil.ToFloat64(singleflightShared)

	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheMiss()
	RecordSingleflightShared()

	assert.InDelta(t, hits+1, testutil.ToFloat64(cacheHits), 0)
	assert.InDelta(t, misses+2, testutil.ToFloat64(cacheMisses), 0)
	assert.InDelta(t, shared+1, testutil.ToFloat64(singleflightShared), 0)
}

func TestHandler(t *testing.T) {
	RecordInvalidConfig()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "ragprep_invalid_config_total"))
	assert.True(t, strings.Contains(body, "ragprep_documents_processed_total"))
}
