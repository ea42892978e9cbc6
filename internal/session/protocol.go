// Package session implements the realtime analysis session: the WebSocket
// protocol spoken with capture clients, per-meeting transcript buffering
// with at-least-once packet acking, and the cadence gate that decides when
// engine output is pushed to the UI.
package session

import (
	"encoding/json"

	"github.com/dealsignal/call-analysis/internal/analysis"
)

// ProtocolVersion is bumped on breaking changes to the wire envelope.
const ProtocolVersion = "1.0"

// Client-originated event types.
const (
	EventSessionStart     = "session.start"
	EventSessionStop      = "session.stop"
	EventSessionResume    = "session.resume"
	EventAnalysisToggle   = "analysis.toggle"
	EventAnalysisTick     = "analysis.tick"
	EventTranscriptPacket = "transcript.packet"
)

// Server-originated event types.
const (
	EventSessionAck          = "session.ack"
	EventSessionStatus       = "session.status"
	EventTranscriptCommitted = "transcript.committed"
	EventAnalysisResult      = "analysis.result"
	EventError               = "error"
)

// Envelope is the framing for every message in both directions.
type Envelope struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Type            string          `json:"type"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload into a versioned envelope.
func NewEnvelope(eventType string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ProtocolVersion: ProtocolVersion, Type: eventType, Payload: raw}, nil
}

// SessionStartPayload opens a session for one meeting. The tuning knobs are
// optional; server defaults apply when omitted.
type SessionStartPayload struct {
	MeetingID              string   `json:"meetingId"`
	Sensitivity            *float64 `json:"sensitivity,omitempty"`
	CoachingAggressiveness *float64 `json:"coachingAggressiveness,omitempty"`
}

// SessionResumePayload reattaches a dropped client to its meeting. The ack
// reply tells the client which packets to replay.
type SessionResumePayload struct {
	MeetingID string `json:"meetingId"`
}

// AnalysisTogglePayload switches live analysis on or off mid-call.
type AnalysisTogglePayload struct {
	Enabled bool `json:"enabled"`
}

// AnalysisTickPayload asks the server to consider running the engine.
// NowMs lets the client pin the clock; the server clock is used otherwise.
type AnalysisTickPayload struct {
	NowMs *int64 `json:"nowMs,omitempty"`
}

// TranscriptPacket carries a batch of ASR chunks. Packets are sequenced so
// the server can ack and deduplicate replays; IsFinal marks the chunks as
// committed rather than interim.
type TranscriptPacket struct {
	Seq     int64            `json:"seq"`
	IsFinal bool             `json:"isFinal"`
	Chunks  []analysis.Chunk `json:"chunks"`
}

// SessionAckPayload confirms the highest packet sequence the server holds.
type SessionAckPayload struct {
	MeetingID string `json:"meetingId"`
	AckedSeq  int64  `json:"ackedSeq"`
}

// SessionStatusPayload reports current session state to the client.
type SessionStatusPayload struct {
	MeetingID       string `json:"meetingId"`
	State           string `json:"state"` // "active" or "stopped"
	AnalysisEnabled bool   `json:"analysisEnabled"`
	BufferedChunks  int    `json:"bufferedChunks"`
}

// TranscriptCommittedPayload confirms a final packet was merged into the
// committed transcript.
type TranscriptCommittedPayload struct {
	MeetingID string `json:"meetingId"`
	Seq       int64  `json:"seq"`
	Chunks    int    `json:"chunks"`
}

// AnalysisResultPayload pushes one engine result to the client.
type AnalysisResultPayload struct {
	MeetingID string            `json:"meetingId"`
	Snapshot  analysis.Snapshot `json:"snapshot"`
	Result    analysis.Result   `json:"result"`
}

// ErrorPayload reports a per-message failure without closing the session.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
