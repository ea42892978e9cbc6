package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dealsignal/call-analysis/internal/analysis"
	"github.com/dealsignal/call-analysis/internal/config"
	"github.com/dealsignal/call-analysis/internal/observability"
	"github.com/dealsignal/call-analysis/internal/resilience"
)

// Refiner overlays an external rewrite pass on a heuristic result. The
// heuristic result is always authoritative; a refiner may only polish it.
type Refiner interface {
	Refine(ctx context.Context, meetingID string, result analysis.Result) (analysis.Result, error)
}

// NoopRefiner returns the result untouched. Used when no refiner is
// configured.
type NoopRefiner struct{}

func (NoopRefiner) Refine(_ context.Context, _ string, result analysis.Result) (analysis.Result, error) {
	return result, nil
}

type refineRequest struct {
	MeetingID string          `json:"meetingId"`
	Result    analysis.Result `json:"result"`
}

// httpStatusError carries a refiner response status for retry decisions.
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("refiner returned status %d", e.status)
}

// HTTPRefiner posts results to an external refinement service. Calls go
// through a circuit breaker and retry with exponential backoff, so a
// degraded refiner cannot stall the analysis path.
type HTTPRefiner struct {
	url     string
	client  *http.Client
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
	logger  zerolog.Logger
}

// NewHTTPRefiner builds a refiner client from service configuration.
func NewHTTPRefiner(cfg *config.Config) *HTTPRefiner {
	breaker := resilience.NewCircuitBreaker(
		"refiner",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	breaker.OnStateChange(func(name string, state resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(state))
		if state == resilience.StateOpen {
			observability.IncrementCircuitBreakerFailures(name)
		}
	})

	return &HTTPRefiner{
		url: cfg.RefinerURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.RefinerTimeout) * time.Second,
		},
		breaker: breaker,
		retry: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		logger: observability.GetLogger(),
	}
}

// Refine sends the heuristic result to the refinement service and returns
// the refined result. On any failure the caller should fall back to the
// heuristic result.
func (r *HTTPRefiner) Refine(ctx context.Context, meetingID string, result analysis.Result) (analysis.Result, error) {
	body, err := json.Marshal(refineRequest{MeetingID: meetingID, Result: result})
	if err != nil {
		return result, fmt.Errorf("failed to encode refine request: %w", err)
	}

	var refined analysis.Result
	err = r.breaker.Call(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, func(ctx context.Context) error {
			return r.post(ctx, body, &refined)
		}, r.retry, isRetryableRefinerError)
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("meeting_id", meetingID).Msg("Refiner call failed")
		return result, err
	}
	return refined, nil
}

func (r *HTTPRefiner) post(ctx context.Context, body []byte, out *analysis.Result) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &httpStatusError{status: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// HealthCheck reports whether the refiner circuit allows traffic.
func (r *HTTPRefiner) HealthCheck() error {
	if r.breaker.GetState() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}
	return nil
}

func isRetryableRefinerError(err error) bool {
	if statusErr, ok := err.(*httpStatusError); ok {
		return resilience.IsRetryableHTTPStatus(statusErr.status)
	}
	return resilience.IsRetryableNetworkError(err)
}
