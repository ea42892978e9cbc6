package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dealsignal/call-analysis/internal/analysis"
	"github.com/dealsignal/call-analysis/internal/config"
	"github.com/dealsignal/call-analysis/internal/resilience"
)

func refinerConfig(url string) *config.Config {
	cfg := testConfig()
	cfg.RefinerEnabled = true
	cfg.RefinerURL = url
	cfg.RetryMaxAttempts = 3
	cfg.RetryInitialBackoff = 1
	return cfg
}

func heuristicResult() analysis.Result {
	var result analysis.Result
	result.Metrics.MeetingID = "meet-r"
	result.Summary.Headline = "Heuristic headline."
	return result
}

func TestNoopRefinerPassesThrough(t *testing.T) {
	in := heuristicResult()
	out, err := NoopRefiner{}.Refine(context.Background(), "meet-r", in)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if out.Summary.Headline != in.Summary.Headline {
		t.Error("noop refiner modified the result")
	}
}

func TestHTTPRefinerSuccess(t *testing.T) {
	var gotMeetingID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req refineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode refine request: %v", err)
		}
		gotMeetingID = req.MeetingID
		req.Result.Summary.Headline = "Refined headline."
		json.NewEncoder(w).Encode(req.Result)
	}))
	defer server.Close()

	refiner := NewHTTPRefiner(refinerConfig(server.URL))
	out, err := refiner.Refine(context.Background(), "meet-r", heuristicResult())
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if gotMeetingID != "meet-r" {
		t.Errorf("refine request meetingId = %q, want meet-r", gotMeetingID)
	}
	if out.Summary.Headline != "Refined headline." {
		t.Errorf("headline = %q, want refined", out.Summary.Headline)
	}
}

func TestHTTPRefinerRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req refineRequest
		json.NewDecoder(r.Body).Decode(&req)
		req.Result.Summary.Headline = "Refined headline."
		json.NewEncoder(w).Encode(req.Result)
	}))
	defer server.Close()

	refiner := NewHTTPRefiner(refinerConfig(server.URL))
	out, err := refiner.Refine(context.Background(), "meet-r", heuristicResult())
	if err != nil {
		t.Fatalf("Refine after retry: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
	if out.Summary.Headline != "Refined headline." {
		t.Error("retried call did not return the refined result")
	}
}

func TestHTTPRefinerDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	refiner := NewHTTPRefiner(refinerConfig(server.URL))
	in := heuristicResult()
	out, err := refiner.Refine(context.Background(), "meet-r", in)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1 (400 is not retryable)", attempts.Load())
	}
	if out.Summary.Headline != in.Summary.Headline {
		t.Error("fallback result differs from heuristic input")
	}
}

func TestHTTPRefinerCircuitOpens(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := refinerConfig(server.URL)
	cfg.CircuitBreakerMaxFailures = 1
	cfg.RetryMaxAttempts = 1
	refiner := NewHTTPRefiner(cfg)

	if _, err := refiner.Refine(context.Background(), "meet-r", heuristicResult()); err == nil {
		t.Fatal("expected error from failing refiner")
	}
	before := attempts.Load()

	_, err := refiner.Refine(context.Background(), "meet-r", heuristicResult())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if attempts.Load() != before {
		t.Error("open circuit still reached the refiner")
	}
}

func TestHTTPRefinerHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := refinerConfig(server.URL)
	cfg.CircuitBreakerMaxFailures = 1
	cfg.RetryMaxAttempts = 1
	refiner := NewHTTPRefiner(cfg)

	if err := refiner.HealthCheck(); err != nil {
		t.Errorf("HealthCheck on closed circuit = %v, want nil", err)
	}

	refiner.Refine(context.Background(), "meet-r", heuristicResult())
	if !errors.Is(refiner.HealthCheck(), resilience.ErrCircuitOpen) {
		t.Error("HealthCheck did not report open circuit")
	}
}
