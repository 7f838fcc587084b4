package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(VendorCacheLookups.WithLabelValues(CacheHit))
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	if got := testutil.ToFloat64(VendorCacheLookups.WithLabelValues(CacheHit)); got != before+1 {
		t.Fatalf("hit counter = %v, want %v", got, before+1)
	}
}

func TestOutcome(t *testing.T) {
	if Outcome(nil) != OutcomeSuccess || Outcome(errors.New("x")) != OutcomeFailure {
		t.Fatal("unexpected outcome labels")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordFetch("payments", nil, 20*time.Millisecond)
	RecordAggregation(errors.New("upstream"), time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{"renohub_record_fetch_duration_seconds", `outcome="failure"`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
