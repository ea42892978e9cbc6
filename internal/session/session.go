package session

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dealsignal/call-analysis/internal/analysis"
	"github.com/dealsignal/call-analysis/internal/config"
	"github.com/dealsignal/call-analysis/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Capture clients connect from browser extensions and native apps;
		// origin allow-listing happens at the edge.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsConn is the subset of *websocket.Conn the session uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Session holds the state of one realtime analysis connection. A session
// serves exactly one meeting; transcript packets are buffered server-side
// and acked so clients can replay after a reconnect.
type Session struct {
	conn wsConn
	cfg  *config.Config
	gate *Gate

	// now is injectable so tests control the clock.
	now func() int64

	correlationID string

	mu                     sync.Mutex
	meetingID              string
	active                 bool
	started                bool
	analysisEnabled        bool
	sensitivity            float64
	coachingAggressiveness float64
	lastAckedSeq           int64
	committed              *ChunkBuffer
	interim                []analysis.Chunk
	pendingPackets         int

	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewSession creates a session on an accepted connection. Every session
// gets a correlation ID so its log lines can be traced across a call.
func NewSession(conn wsConn, cfg *config.Config) *Session {
	correlationID := observability.NewCorrelationID()
	return &Session{
		conn: conn,
		cfg:  cfg,
		gate: NewGate(GateConfig{
			CadenceMs:        cfg.AnalysisCadenceMs,
			UICooldownMs:     cfg.AnalysisUICooldownMs,
			MinConfidence:    cfg.MinAnalysisConfidence,
			WarmupSec:        cfg.WarmupContextSec,
			WarmupContextSec: cfg.WarmupContextSec,
			SteadyContextSec: cfg.SteadyContextSec,
		}),
		now:                    func() int64 { return time.Now().UnixMilli() },
		active:                 true,
		analysisEnabled:        true,
		sensitivity:            cfg.DefaultSensitivity,
		coachingAggressiveness: cfg.DefaultCoachingAggressiveness,
		lastAckedSeq:           -1,
		committed:              NewChunkBuffer(cfg.MaxAnalysisChunks),
		correlationID:          correlationID,
		logger:                 observability.WithCorrelationID(correlationID),
	}
}

// Handler is the entry point for realtime WebSocket connections.
func Handler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger := observability.GetLogger()
			logger.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		s := NewSession(conn, cfg)
		s.run()
	}
}

func (s *Session) run() {
	defer func() {
		s.mu.Lock()
		started := s.started
		metrics := s.metrics
		s.mu.Unlock()
		if started && metrics != nil {
			metrics.RecordSessionEnd()
		}
	}()

	for {
		s.mu.Lock()
		active := s.active
		s.mu.Unlock()
		if !active {
			return
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *Session) handleMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		s.logger.Error().Err(err).Msg("Failed to parse envelope")
		s.sendError("bad_envelope", "message is not a valid envelope")
		return
	}

	switch env.Type {
	case EventSessionStart:
		s.handleStart(env.Payload)
	case EventSessionResume:
		s.handleResume(env.Payload)
	case EventSessionStop:
		s.handleStop()
	case EventAnalysisToggle:
		s.handleToggle(env.Payload)
	case EventTranscriptPacket:
		s.handlePacket(env.Payload)
	case EventAnalysisTick:
		s.handleTick(env.Payload)
	default:
		s.logger.Warn().Str("type", env.Type).Msg("Unknown event type")
		s.sendError("unknown_event", "unsupported event type: "+env.Type)
	}
}

func (s *Session) handleStart(payload json.RawMessage) {
	var p SessionStartPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.MeetingID == "" {
		s.sendError("bad_payload", "session.start requires a meetingId")
		return
	}

	now := s.now()
	s.mu.Lock()
	s.meetingID = p.MeetingID
	s.started = true
	if p.Sensitivity != nil {
		s.sensitivity = clampKnob(*p.Sensitivity)
	}
	if p.CoachingAggressiveness != nil {
		s.coachingAggressiveness = clampKnob(*p.CoachingAggressiveness)
	}
	s.metrics = observability.NewSessionMetrics(p.MeetingID)
	s.logger = observability.WithCorrelationID(s.correlationID).
		With().
		Str("meeting_id", p.MeetingID).
		Logger()
	ackedSeq := s.lastAckedSeq
	s.mu.Unlock()

	s.gate.Start(now)
	s.metrics.RecordSessionStart()
	s.logger.Info().Msg("Session started")

	s.send(EventSessionAck, SessionAckPayload{MeetingID: p.MeetingID, AckedSeq: ackedSeq})
}

func (s *Session) handleResume(payload json.RawMessage) {
	var p SessionResumePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.MeetingID == "" {
		s.sendError("bad_payload", "session.resume requires a meetingId")
		return
	}

	s.mu.Lock()
	if s.meetingID != "" && s.meetingID != p.MeetingID {
		s.mu.Unlock()
		s.sendError("wrong_meeting", "session is bound to another meeting")
		return
	}
	s.meetingID = p.MeetingID
	ackedSeq := s.lastAckedSeq
	s.mu.Unlock()

	s.logger.Info().Int64("acked_seq", ackedSeq).Msg("Session resumed")
	s.send(EventSessionAck, SessionAckPayload{MeetingID: p.MeetingID, AckedSeq: ackedSeq})
}

func (s *Session) handleStop() {
	s.mu.Lock()
	s.active = false
	meetingID := s.meetingID
	buffered := s.committed.Len() + len(s.interim)
	s.mu.Unlock()

	s.logger.Info().Msg("Session stopped")
	s.send(EventSessionStatus, SessionStatusPayload{
		MeetingID:       meetingID,
		State:           "stopped",
		AnalysisEnabled: false,
		BufferedChunks:  buffered,
	})
}

func (s *Session) handleToggle(payload json.RawMessage) {
	var p AnalysisTogglePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("bad_payload", "analysis.toggle payload invalid")
		return
	}

	s.mu.Lock()
	s.analysisEnabled = p.Enabled
	meetingID := s.meetingID
	buffered := s.committed.Len() + len(s.interim)
	s.mu.Unlock()

	s.logger.Info().Bool("enabled", p.Enabled).Msg("Analysis toggled")
	s.send(EventSessionStatus, SessionStatusPayload{
		MeetingID:       meetingID,
		State:           "active",
		AnalysisEnabled: p.Enabled,
		BufferedChunks:  buffered,
	})
}

// handlePacket ingests one transcript packet. Packets at or below the last
// acked sequence are replays and only re-acked; interim packets overwrite
// the interim buffer; final packets merge into the committed transcript.
func (s *Session) handlePacket(payload json.RawMessage) {
	var pkt TranscriptPacket
	if err := json.Unmarshal(payload, &pkt); err != nil {
		s.sendError("bad_payload", "transcript.packet payload invalid")
		return
	}

	s.mu.Lock()
	meetingID := s.meetingID
	metrics := s.metrics

	if pkt.Seq <= s.lastAckedSeq {
		ackedSeq := s.lastAckedSeq
		s.mu.Unlock()
		if metrics != nil {
			metrics.RecordPacket("duplicate")
		}
		s.send(EventSessionAck, SessionAckPayload{MeetingID: meetingID, AckedSeq: ackedSeq})
		return
	}

	if !pkt.IsFinal && s.pendingPackets >= s.cfg.MaxPendingPackets {
		ackedSeq := s.lastAckedSeq
		s.mu.Unlock()
		if metrics != nil {
			metrics.RecordPacket("dropped")
		}
		s.logger.Warn().Int64("seq", pkt.Seq).Msg("Interim packet dropped, pending cap reached")
		s.send(EventSessionAck, SessionAckPayload{MeetingID: meetingID, AckedSeq: ackedSeq})
		return
	}

	if pkt.IsFinal {
		s.committed.Append(pkt.Chunks...)
		s.interim = nil
		s.pendingPackets = 0
	} else {
		s.interim = pkt.Chunks
		s.pendingPackets++
	}
	s.lastAckedSeq = pkt.Seq
	ackedSeq := s.lastAckedSeq
	committed := s.committed.Len()
	s.mu.Unlock()

	if metrics != nil {
		metrics.RecordPacket("accepted")
		metrics.RecordChunks(len(pkt.Chunks))
	}

	if pkt.IsFinal {
		s.send(EventTranscriptCommitted, TranscriptCommittedPayload{
			MeetingID: meetingID,
			Seq:       pkt.Seq,
			Chunks:    committed,
		})
	}
	s.send(EventSessionAck, SessionAckPayload{MeetingID: meetingID, AckedSeq: ackedSeq})
}

func (s *Session) handleTick(payload json.RawMessage) {
	var p AnalysisTickPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			s.sendError("bad_payload", "analysis.tick payload invalid")
			return
		}
	}

	now := s.now()
	if p.NowMs != nil {
		now = *p.NowMs
	}

	s.mu.Lock()
	enabled := s.analysisEnabled
	meetingID := s.meetingID
	metrics := s.metrics
	sensitivity := s.sensitivity
	coaching := s.coachingAggressiveness
	chunks := append(s.committed.Snapshot(), s.interim...)
	s.mu.Unlock()

	if !enabled {
		return
	}
	if !s.gate.ShouldRun(now) {
		if metrics != nil {
			metrics.RecordSuppressed(SuppressCadence)
		}
		return
	}

	if metrics != nil {
		metrics.RecordAnalysisStart()
	}
	engine := analysis.New(analysis.Config{
		WindowMs:           s.gate.ContextWindowMs(now),
		FollowUpDeadlineMs: s.cfg.FollowUpDeadlineMs,
	})
	result := engine.Build(analysis.Request{
		MeetingID:              meetingID,
		Chunks:                 chunks,
		Sensitivity:            sensitivity,
		CoachingAggressiveness: coaching,
		NowMs:                  &now,
	})
	if metrics != nil {
		metrics.RecordAnalysisEnd("tick", true)
	}

	ok, reason := s.gate.ShouldAccept(now, result.Metrics.CallHealthConfidence)
	if !ok {
		if metrics != nil {
			metrics.RecordSuppressed(reason)
		}
		s.logger.Debug().Str("reason", reason).Msg("Analysis result suppressed")
		return
	}

	s.send(EventAnalysisResult, AnalysisResultPayload{
		MeetingID: meetingID,
		Snapshot:  result.Snapshot(),
		Result:    result,
	})
}

func (s *Session) send(eventType string, payload interface{}) {
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("Failed to build envelope")
		return
	}
	if err := s.conn.WriteJSON(env); err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Msg("WebSocket write failed")
	}
}

func (s *Session) sendError(code, message string) {
	s.send(EventError, ErrorPayload{Code: code, Message: message})
}

func clampKnob(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
