package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSimulationsCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(SimulationsTotal.WithLabelValues("last_value"))
	SimulationsTotal.WithLabelValues("last_value").Inc()
	after := testutil.ToFloat64(SimulationsTotal.WithLabelValues("last_value"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %.0f", after-before)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	OptimizationsTotal.WithLabelValues("best_found").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tradeopt_optimizations_total") {
		t.Fatalf("expected optimizations counter in exposition")
	}
}
