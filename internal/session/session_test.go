package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dealsignal/call-analysis/internal/analysis"
	"github.com/dealsignal/call-analysis/internal/config"
)

type fakeConn struct {
	mu   sync.Mutex
	sent []Envelope
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("fakeConn does not read")
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	env, ok := v.(Envelope)
	if !ok {
		return errors.New("unexpected write type")
	}
	c.mu.Lock()
	c.sent = append(c.sent, env)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) eventsOfType(eventType string) []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Envelope
	for _, env := range c.sent {
		if env.Type == eventType {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeConn) lastOfType(t *testing.T, eventType string) Envelope {
	t.Helper()
	events := c.eventsOfType(eventType)
	if len(events) == 0 {
		t.Fatalf("no %q event sent", eventType)
	}
	return events[len(events)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                          "8080",
		AnalysisWindowMs:              120_000,
		FollowUpDeadlineMs:            25_000,
		MaxAnalysisChunks:             220,
		DefaultSensitivity:            50,
		DefaultCoachingAggressiveness: 40,
		AnalysisCadenceMs:             15_000,
		AnalysisUICooldownMs:          8_000,
		MinAnalysisConfidence:         0.55,
		WarmupContextSec:              60,
		SteadyContextSec:              120,
		MaxPendingPackets:             120,
	}
}

// newTestSession returns a session with a fake connection and a settable clock.
func newTestSession(cfg *config.Config) (*Session, *fakeConn, *int64) {
	conn := &fakeConn{}
	s := NewSession(conn, cfg)
	clock := new(int64)
	s.now = func() int64 { return *clock }
	return s, conn, clock
}

func deliver(t *testing.T, s *Session, eventType string, payload interface{}) {
	t.Helper()
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	s.handleMessage(raw)
}

func decodePayload(t *testing.T, env Envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Payload, v); err != nil {
		t.Fatalf("decode %s payload: %v", env.Type, err)
	}
}

func sampleChunks() []analysis.Chunk {
	conf := 0.9
	return []analysis.Chunk{
		{ID: "u1", TStartMs: 0, TEndMs: 4000, Speaker: "Alex", SpeakerRole: analysis.RoleSales, Confidence: &conf,
			Text: "Thanks for joining, what would success look like for your team this quarter?"},
		{ID: "u2", TStartMs: 4200, TEndMs: 9000, Speaker: "Dana", SpeakerRole: analysis.RoleClient, Confidence: &conf,
			Text: "Great question, we love the direction and the timeline works for us."},
		{ID: "u3", TStartMs: 9500, TEndMs: 13_000, Speaker: "Alex", SpeakerRole: analysis.RoleSales, Confidence: &conf,
			Text: "Happy to walk through the rollout plan and integration details next."},
		{ID: "u4", TStartMs: 13_500, TEndMs: 19_000, Speaker: "Dana", SpeakerRole: analysis.RoleClient, Confidence: &conf,
			Text: "Sounds good, can you also share how onboarding usually goes?"},
	}
}

func TestSessionAssignsCorrelationID(t *testing.T) {
	a, _, _ := newTestSession(testConfig())
	b, _, _ := newTestSession(testConfig())

	if a.correlationID == "" {
		t.Fatal("session created without a correlation id")
	}
	if a.correlationID == b.correlationID {
		t.Error("two sessions share a correlation id")
	}
}

func TestSessionStartSendsAck(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())

	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-1"})

	var ack SessionAckPayload
	decodePayload(t, conn.lastOfType(t, EventSessionAck), &ack)
	if ack.MeetingID != "meet-1" {
		t.Errorf("ack meetingId = %q, want meet-1", ack.MeetingID)
	}
	if ack.AckedSeq != -1 {
		t.Errorf("ack seq = %d, want -1 before any packet", ack.AckedSeq)
	}
}

func TestSessionStartRequiresMeetingID(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())

	deliver(t, s, EventSessionStart, SessionStartPayload{})

	var errPayload ErrorPayload
	decodePayload(t, conn.lastOfType(t, EventError), &errPayload)
	if errPayload.Code != "bad_payload" {
		t.Errorf("error code = %q, want bad_payload", errPayload.Code)
	}
	if len(conn.eventsOfType(EventSessionAck)) != 0 {
		t.Error("ack sent for invalid session.start")
	}
}

func TestSessionFinalPacketCommitsAndAcks(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-2"})

	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 0, IsFinal: true, Chunks: sampleChunks()})

	var committed TranscriptCommittedPayload
	decodePayload(t, conn.lastOfType(t, EventTranscriptCommitted), &committed)
	if committed.Seq != 0 {
		t.Errorf("committed seq = %d, want 0", committed.Seq)
	}
	if committed.Chunks != 4 {
		t.Errorf("committed chunks = %d, want 4", committed.Chunks)
	}

	var ack SessionAckPayload
	decodePayload(t, conn.lastOfType(t, EventSessionAck), &ack)
	if ack.AckedSeq != 0 {
		t.Errorf("ack seq = %d, want 0", ack.AckedSeq)
	}
}

func TestSessionDuplicatePacketOnlyReAcked(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-3"})

	pkt := TranscriptPacket{Seq: 0, IsFinal: true, Chunks: sampleChunks()}
	deliver(t, s, EventTranscriptPacket, pkt)
	deliver(t, s, EventTranscriptPacket, pkt)

	if got := len(conn.eventsOfType(EventTranscriptCommitted)); got != 1 {
		t.Errorf("committed events = %d, want 1 (replay must not re-commit)", got)
	}

	var ack SessionAckPayload
	decodePayload(t, conn.lastOfType(t, EventSessionAck), &ack)
	if ack.AckedSeq != 0 {
		t.Errorf("replay ack seq = %d, want 0", ack.AckedSeq)
	}
}

func TestSessionInterimPacketOverwritesBuffer(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-4"})

	chunks := sampleChunks()
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 0, IsFinal: false, Chunks: chunks[:3]})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 1, IsFinal: false, Chunks: chunks[:1]})

	deliver(t, s, EventAnalysisToggle, AnalysisTogglePayload{Enabled: true})
	var status SessionStatusPayload
	decodePayload(t, conn.lastOfType(t, EventSessionStatus), &status)
	if status.BufferedChunks != 1 {
		t.Errorf("buffered chunks = %d, want 1 (latest interim only)", status.BufferedChunks)
	}

	// Finalizing clears the interim buffer and commits.
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 2, IsFinal: true, Chunks: chunks})
	deliver(t, s, EventAnalysisToggle, AnalysisTogglePayload{Enabled: true})
	decodePayload(t, conn.lastOfType(t, EventSessionStatus), &status)
	if status.BufferedChunks != 4 {
		t.Errorf("buffered chunks after final = %d, want 4", status.BufferedChunks)
	}
}

func TestSessionInterimPacketCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPendingPackets = 2
	s, conn, _ := newTestSession(cfg)
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-5"})

	chunks := sampleChunks()
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 0, IsFinal: false, Chunks: chunks[:1]})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 1, IsFinal: false, Chunks: chunks[:2]})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 2, IsFinal: false, Chunks: chunks[:3]})

	// The third interim packet is dropped; the ack must not advance past it.
	var ack SessionAckPayload
	decodePayload(t, conn.lastOfType(t, EventSessionAck), &ack)
	if ack.AckedSeq != 1 {
		t.Errorf("ack seq = %d, want 1 after dropped packet", ack.AckedSeq)
	}

	deliver(t, s, EventAnalysisToggle, AnalysisTogglePayload{Enabled: true})
	var status SessionStatusPayload
	decodePayload(t, conn.lastOfType(t, EventSessionStatus), &status)
	if status.BufferedChunks != 2 {
		t.Errorf("buffered chunks = %d, want 2 (dropped packet must not overwrite)", status.BufferedChunks)
	}
}

func TestSessionTickPushesResult(t *testing.T) {
	s, conn, clock := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-6"})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 0, IsFinal: true, Chunks: sampleChunks()})

	*clock = 20_000
	deliver(t, s, EventAnalysisTick, AnalysisTickPayload{})

	var result AnalysisResultPayload
	decodePayload(t, conn.lastOfType(t, EventAnalysisResult), &result)
	if result.MeetingID != "meet-6" {
		t.Errorf("result meetingId = %q, want meet-6", result.MeetingID)
	}
	if result.Snapshot.MeetingID != "meet-6" {
		t.Errorf("snapshot meetingId = %q, want meet-6", result.Snapshot.MeetingID)
	}
	if result.Snapshot.CallHealth < 0 || result.Snapshot.CallHealth > 100 {
		t.Errorf("snapshot callHealth = %v, want 0..100", result.Snapshot.CallHealth)
	}
	if result.Result.Metrics.WindowTsEndMs != 20_000 {
		t.Errorf("window end = %d, want tick clock 20000", result.Result.Metrics.WindowTsEndMs)
	}
}

func TestSessionTickHonorsCadence(t *testing.T) {
	s, conn, clock := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-7"})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 0, IsFinal: true, Chunks: sampleChunks()})

	*clock = 20_000
	deliver(t, s, EventAnalysisTick, AnalysisTickPayload{})
	*clock = 24_000
	deliver(t, s, EventAnalysisTick, AnalysisTickPayload{})

	if got := len(conn.eventsOfType(EventAnalysisResult)); got != 1 {
		t.Errorf("analysis results = %d, want 1 (second tick inside cadence)", got)
	}

	*clock = 40_000
	deliver(t, s, EventAnalysisTick, AnalysisTickPayload{})
	if got := len(conn.eventsOfType(EventAnalysisResult)); got != 2 {
		t.Errorf("analysis results = %d, want 2 after cadence elapsed", got)
	}
}

func TestSessionTickRespectsToggle(t *testing.T) {
	s, conn, clock := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-8"})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 0, IsFinal: true, Chunks: sampleChunks()})
	deliver(t, s, EventAnalysisToggle, AnalysisTogglePayload{Enabled: false})

	*clock = 20_000
	deliver(t, s, EventAnalysisTick, AnalysisTickPayload{})

	if got := len(conn.eventsOfType(EventAnalysisResult)); got != 0 {
		t.Errorf("analysis results = %d, want 0 while disabled", got)
	}
}

func TestSessionTickClientClock(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-9"})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 0, IsFinal: true, Chunks: sampleChunks()})

	nowMs := int64(25_000)
	deliver(t, s, EventAnalysisTick, AnalysisTickPayload{NowMs: &nowMs})

	var result AnalysisResultPayload
	decodePayload(t, conn.lastOfType(t, EventAnalysisResult), &result)
	if result.Result.Metrics.WindowTsEndMs != 25_000 {
		t.Errorf("window end = %d, want client-pinned 25000", result.Result.Metrics.WindowTsEndMs)
	}
}

func TestSessionResumeReplaysAck(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-10"})
	deliver(t, s, EventTranscriptPacket, TranscriptPacket{Seq: 3, IsFinal: true, Chunks: sampleChunks()})

	deliver(t, s, EventSessionResume, SessionResumePayload{MeetingID: "meet-10"})

	var ack SessionAckPayload
	decodePayload(t, conn.lastOfType(t, EventSessionAck), &ack)
	if ack.AckedSeq != 3 {
		t.Errorf("resume ack seq = %d, want 3", ack.AckedSeq)
	}
}

func TestSessionResumeWrongMeetingRejected(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-11"})

	deliver(t, s, EventSessionResume, SessionResumePayload{MeetingID: "other-meeting"})

	var errPayload ErrorPayload
	decodePayload(t, conn.lastOfType(t, EventError), &errPayload)
	if errPayload.Code != "wrong_meeting" {
		t.Errorf("error code = %q, want wrong_meeting", errPayload.Code)
	}
}

func TestSessionStopReportsStatus(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, EventSessionStart, SessionStartPayload{MeetingID: "meet-12"})
	deliver(t, s, EventSessionStop, nil)

	var status SessionStatusPayload
	decodePayload(t, conn.lastOfType(t, EventSessionStatus), &status)
	if status.State != "stopped" {
		t.Errorf("state = %q, want stopped", status.State)
	}

	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active {
		t.Error("session still active after session.stop")
	}
}

func TestSessionUnknownEventReportsError(t *testing.T) {
	s, conn, _ := newTestSession(testConfig())
	deliver(t, s, "session.bogus", nil)

	var errPayload ErrorPayload
	decodePayload(t, conn.lastOfType(t, EventError), &errPayload)
	if errPayload.Code != "unknown_event" {
		t.Errorf("error code = %q, want unknown_event", errPayload.Code)
	}
}

func TestSessionStartOverridesKnobs(t *testing.T) {
	s, _, _ := newTestSession(testConfig())
	sens := 80.0
	coach := 150.0
	deliver(t, s, EventSessionStart, SessionStartPayload{
		MeetingID:              "meet-13",
		Sensitivity:            &sens,
		CoachingAggressiveness: &coach,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sensitivity != 80 {
		t.Errorf("sensitivity = %v, want 80", s.sensitivity)
	}
	if s.coachingAggressiveness != 100 {
		t.Errorf("coachingAggressiveness = %v, want clamped 100", s.coachingAggressiveness)
	}
}
