package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river/rivertype"
)

func TestInit(t *testing.T) {
	Init("v1.0.0", "abc123", "2026-01-30")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("v1.0.0", "abc123", "2026-01-30")); got != 1 {
		t.Fatalf("app_info = %v, want 1", got)
	}
}

func TestHTTPMiddlewareLabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	handler := HTTPMiddleware(mux)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/events/{param}", "200"))
	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/events/{param}", "200"))
	if after-before != 3 {
		t.Fatalf("expected 3 requests under one label, got %v", after-before)
	}
}

func TestHTTPMiddlewareStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Not Found", http.StatusNotFound},
		{"Conflict", http.StatusConflict},
		{"Unauthorized", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

			if rec.Code != tt.statusCode {
				t.Errorf("Expected status %d, got %d", tt.statusCode, rec.Code)
			}
		})
	}
}

func TestDBCollectorStopsWithContext(t *testing.T) {
	collector := NewDBCollector(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		collector.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestRegistrationRecorder(t *testing.T) {
	var rec RegistrationRecorder

	claimed := testutil.ToFloat64(SeatsClaimed)
	released := testutil.ToFloat64(SeatsReleased)
	full := testutil.ToFloat64(RegistrationOutcomes.WithLabelValues("register", "full"))

	rec.SeatsChanged(1)
	rec.SeatsChanged(-3)
	rec.SeatsChanged(0)
	rec.Outcome("register", "full")
	rec.DriftDetected("01ARZ3NDEKTSV4RRFFQ69G5FAV")

	if got := testutil.ToFloat64(SeatsClaimed) - claimed; got != 1 {
		t.Errorf("claimed delta = %v", got)
	}
	if got := testutil.ToFloat64(SeatsReleased) - released; got != 3 {
		t.Errorf("released delta = %v", got)
	}
	if got := testutil.ToFloat64(RegistrationOutcomes.WithLabelValues("register", "full")) - full; got != 1 {
		t.Errorf("outcome delta = %v", got)
	}
}

func TestRiverMetricsHook(t *testing.T) {
	hook := NewRiverMetricsHook()
	ctx := context.Background()
	job := &rivertype.JobRow{ID: 42, Kind: "registration_confirmation"}

	if err := hook.WorkBegin(ctx, job); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(RiverJobsInFlight.WithLabelValues(job.Kind)); got != 1 {
		t.Fatalf("in flight = %v", got)
	}
	if err := hook.WorkEnd(ctx, job, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(RiverJobsInFlight.WithLabelValues(job.Kind)); got != 0 {
		t.Fatalf("in flight after end = %v", got)
	}
	if got := testutil.ToFloat64(RiverJobsCompleted.WithLabelValues(job.Kind, "error")); got != 1 {
		t.Fatalf("completed errors = %v", got)
	}
}

func TestResponseWriterDefaults(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	content := []byte("Hello, World!")
	_, _ = rw.Write(content)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != len(content) {
		t.Errorf("Expected %d bytes written, got %d", len(content), rw.bytesWritten)
	}
}
