// Package httpapi exposes the batch analysis REST endpoint: one POST with a
// transcript in, one heuristic result out, with an optional refiner overlay.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dealsignal/call-analysis/internal/analysis"
	"github.com/dealsignal/call-analysis/internal/config"
	"github.com/dealsignal/call-analysis/internal/observability"
)

const maxRequestBytes = 2 << 20

// Server handles the REST analysis surface.
type Server struct {
	cfg     *config.Config
	engine  *analysis.Engine
	refiner Refiner
}

// NewServer builds the REST handler set. A nil refiner disables refinement.
func NewServer(cfg *config.Config, refiner Refiner) *Server {
	if refiner == nil {
		refiner = NoopRefiner{}
	}
	return &Server{
		cfg: cfg,
		engine: analysis.New(analysis.Config{
			WindowMs:           cfg.AnalysisWindowMs,
			FollowUpDeadlineMs: cfg.FollowUpDeadlineMs,
		}),
		refiner: refiner,
	}
}

// Routes registers the REST endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/meetings/{meetingId}/analysis", s.handleAnalysis)
}

// analysisRequest is the REST request body. Knobs are pointers so omitted
// fields fall back to configured defaults rather than zero.
type analysisRequest struct {
	Chunks                 []analysis.Chunk `json:"chunks"`
	UseHeuristics          *bool            `json:"useHeuristics,omitempty"`
	Sensitivity            *float64         `json:"sensitivity,omitempty"`
	CoachingAggressiveness *float64         `json:"coachingAggressiveness,omitempty"`
	NowMs                  *int64           `json:"nowMs,omitempty"`
	Refine                 *bool            `json:"refine,omitempty"`
}

type analysisResponse struct {
	MeetingID string            `json:"meetingId"`
	Refined   bool              `json:"refined"`
	Snapshot  analysis.Snapshot `json:"snapshot"`
	Result    analysis.Result   `json:"result"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("meetingId")
	if meetingID == "" {
		writeError(w, http.StatusBadRequest, "missing_meeting_id", "meetingId path segment is required")
		return
	}

	// Honor a caller-supplied correlation ID and echo it so the client can
	// tie its own logs to ours.
	correlationID := r.Header.Get("X-Correlation-ID")
	if correlationID == "" {
		correlationID = observability.NewCorrelationID()
	}
	w.Header().Set("X-Correlation-ID", correlationID)
	logger := observability.WithCorrelationID(correlationID).
		With().
		Str("meeting_id", meetingID).
		Logger()

	var req analysisRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "request body is not valid JSON")
		return
	}
	if len(req.Chunks) > s.cfg.MaxAnalysisChunks {
		writeError(w, http.StatusBadRequest, "too_many_chunks",
			"transcript exceeds the accepted chunk limit")
		return
	}

	sensitivity := s.cfg.DefaultSensitivity
	if req.Sensitivity != nil {
		sensitivity = *req.Sensitivity
	}
	coaching := s.cfg.DefaultCoachingAggressiveness
	if req.CoachingAggressiveness != nil {
		coaching = *req.CoachingAggressiveness
	}

	metrics := observability.NewSessionMetrics(meetingID)
	metrics.RecordAnalysisStart()
	result := s.engine.Build(analysis.Request{
		MeetingID:              meetingID,
		Chunks:                 req.Chunks,
		UseHeuristics:          req.UseHeuristics,
		Sensitivity:            sensitivity,
		CoachingAggressiveness: coaching,
		NowMs:                  req.NowMs,
	})
	metrics.RecordAnalysisEnd("rest", true)

	// Results below the confidence floor are never refined.
	refined := false
	if s.cfg.RefinerEnabled && (req.Refine == nil || *req.Refine) &&
		result.Metrics.CallHealthConfidence >= s.cfg.MinAnalysisConfidence {
		metrics.RecordRefinerStart()
		overlay, err := s.refiner.Refine(r.Context(), meetingID, result)
		metrics.RecordRefinerEnd(err == nil)
		if err != nil {
			metrics.RecordError("refiner_failed", "httpapi")
			logger.Warn().Err(err).Msg("Refiner unavailable, serving heuristic result")
		} else {
			result = overlay
			refined = true
		}
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		MeetingID: meetingID,
		Refined:   refined,
		Snapshot:  result.Snapshot(),
		Result:    result,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := observability.GetLogger()
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
