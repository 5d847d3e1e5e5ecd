package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestOpenTelemetryMiddleware_PutsSpanInContext(t *testing.T) {
	var extracted bool
	mw := OpenTelemetry(
		WithTracerName("test"),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			extracted = true
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	var sawSpan bool
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.SpanFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/connect", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if !sawSpan {
		t.Fatal("expected a span in the request context")
	}
	if !extracted {
		t.Fatal("expected attribute extractor to be called")
	}
}

func TestOpenTelemetryMiddleware_ErrorStatusStillServes(t *testing.T) {
	r := newTestRouter(OpenTelemetry())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestOpenTelemetryMiddleware_FilterSkipsTracing(t *testing.T) {
	var filtered bool
	mw := OpenTelemetry(WithRequestFilter(func(r *http.Request) bool {
		filtered = true
		return r.URL.Path != "/metrics"
	}))

	nextCalled := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if trace.SpanFromContext(r.Context()).SpanContext().IsValid() {
			t.Error("expected no recording span when the filter skips tracing")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !filtered || !nextCalled {
		t.Fatalf("filtered=%v nextCalled=%v, want both true", filtered, nextCalled)
	}
}
