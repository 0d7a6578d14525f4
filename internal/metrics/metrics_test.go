package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounters(t *testing.T) {
	r := New()
	r.CacheLookup(CacheHit)
	r.CacheLookup(CacheHit)
	r.CacheLookup(CacheMiss)
	r.ProviderFetch("yahoo", "ok")
	r.TickerOutcome("qualified")
	r.ObserveRun(3*time.Second, 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ProviderFetches.WithLabelValues("yahoo", "ok")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.LastCandidates))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.CacheLookup(CacheHit)
		r.ProviderFetch("yahoo", "ok")
		r.TickerOutcome("qualified")
		r.ObserveRun(time.Second, 1)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.TickerOutcome("no_data")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `screener_tickers_total{outcome="no_data"} 1`))
}
