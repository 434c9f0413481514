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

	"transfer_agents/models"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveFetch(FetchOK)
	m.ObserveFetch(FetchOK)
	m.ObserveFetch(FetchHTTPError)
	m.ObserveListingRows(12, 10)
	m.ObserveOutcome(models.Resolved("Stellar"))
	m.ObserveOutcome(models.HTTPError(503))
	m.ObserveOutcome(models.HTTPError(404))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues(FetchOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues(FetchHTTPError)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.listingRows))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.lastScrapeRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.enrichOutcomes.WithLabelValues("http_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrichOutcomes.WithLabelValues("resolved")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch(FetchOK)
	m.ObserveListingRows(1, 1)
	m.ObserveOutcome(models.NotFound())
	m.ObservePass(time.Second)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveFetch(FetchTransportError)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `transfer_agents_fetches_total{outcome="transport_error"} 1`))
}
