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

func TestNewCollector(t *testing.T) {
	c := NewCollector("")
	require.NotNil(t, c)
	require.NotNil(t, c.Registry())
}

func TestRecordClientCall(t *testing.T) {
	c := NewCollector("test")

	c.RecordClientCall("login", OutcomeSuccess, "200", 10*time.Millisecond)
	c.RecordClientCall("login", OutcomeSuccess, "200", 10*time.Millisecond)
	c.RecordClientCall("login", OutcomeHTTPError, "401", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.clientCalls.WithLabelValues("login", OutcomeSuccess, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.clientCalls.WithLabelValues("login", OutcomeHTTPError, "401")))
}

func TestRecordLedger(t *testing.T) {
	c := NewCollector("test")

	c.RecordFoodResolution("generic")
	c.RecordLedgerFallback()
	c.RecordLedgerFallback()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.foodResolutions.WithLabelValues("generic")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ledgerFallbacks))
}

func TestInFlight(t *testing.T) {
	c := NewCollector("test")

	c.IncrementInFlight()
	c.IncrementInFlight()
	c.DecrementInFlight()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpInFlight))
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordClientCall("login", OutcomeSuccess, "200", time.Millisecond)
		c.RecordFoodResolution("generic")
		c.RecordLedgerFallback()
		c.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		c.IncrementInFlight()
		c.DecrementInFlight()
	})
	assert.Nil(t, c.Registry())
}

func TestHandler(t *testing.T) {
	c := NewCollector("test")
	c.RecordHTTPRequest(http.MethodGet, "/food-info/{barcode}", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_http_requests_total"))
}
