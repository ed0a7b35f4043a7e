package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/cafehub/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAPICall_CountsByOutcome(t *testing.T) {
	c := metrics.New("cafehub")

	c.ObserveAPICall("GET", "success", 10*time.Millisecond)
	c.ObserveAPICall("GET", "success", 10*time.Millisecond)
	c.ObserveAPICall("POST", "transport", time.Millisecond)

	if got := testutil.ToFloat64(c.APIRequests.WithLabelValues("GET", "success")); got != 2 {
		t.Errorf("GET success: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.APIRequests.WithLabelValues("POST", "transport")); got != 1 {
		t.Errorf("POST transport: got %v, want 1", got)
	}
}

func TestNilCollector_IsNoop(t *testing.T) {
	var c *metrics.Collector
	c.ObserveAPICall("GET", "success", time.Second)
	c.ObserveUpload("ok")
	c.ObserveMutation("productos", "create", true)
	c.ObserveLogin("password", false)
}

func TestHandler_ExposesNamespace(t *testing.T) {
	c := metrics.New("cafehub")
	c.ObserveMutation("condiciones", "delete", false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `cafehub_resource_mutations_total{action="delete",outcome="error",resource="condiciones"} 1`) {
		t.Errorf("mutation counter missing from exposition:\n%s", body)
	}
}
