package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersExported(t *testing.T) {
	m := New()
	m.InvoicesGenerated.Add(2)
	m.ClientFailures.WithLabelValues("PUBLISHED").Inc()

	require.Equal(t, 2.0, testutil.ToFloat64(m.InvoicesGenerated))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ClientFailures.WithLabelValues("PUBLISHED")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "eventflow_invoices_generated_total 2")
	require.Contains(t, rec.Body.String(), `eventflow_invoice_client_failures_total{stage="PUBLISHED"} 1`)
}
