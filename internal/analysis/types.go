// Package analysis implements the real-time heuristic call-analysis engine.
// It turns a rolling window of speech-to-text utterances from a live sales
// call into call-health metrics, risk signals, coaching suggestions,
// insights, and an executive summary. The engine is a pure function of its
// inputs: no I/O, no clocks (callers supply "now"), no retained state.
package analysis

// SpeakerRole identifies which side of the call an utterance belongs to.
type SpeakerRole string

const (
	RoleSales   SpeakerRole = "SALES"
	RoleClient  SpeakerRole = "CLIENT"
	RoleUnknown SpeakerRole = "UNKNOWN"
)

// AudioSource is the capture channel hint attached to a chunk by the
// transcription collaborator. The local microphone maps to the sales side.
type AudioSource string

const (
	SourceMicrophone  AudioSource = "microphone"
	SourceSystemAudio AudioSource = "systemAudio"
	SourceTabAudio    AudioSource = "tabAudio"
)

// Topic is one of the fixed discovery topics tracked for coverage.
type Topic string

const (
	TopicNeedProblem             Topic = "needProblem"
	TopicBudget                  Topic = "budget"
	TopicTimeline                Topic = "timeline"
	TopicDecisionMaker           Topic = "decisionMaker"
	TopicAlternativesCompetitors Topic = "alternativesCompetitors"
	TopicTechnicalFit            Topic = "technicalFit"
	TopicSecurityCompliance      Topic = "securityCompliance"
	TopicProcurement             Topic = "procurement"
	TopicNextSteps               Topic = "nextSteps"
)

// AllTopics lists every discovery topic in presentation order.
var AllTopics = []Topic{
	TopicNeedProblem,
	TopicBudget,
	TopicTimeline,
	TopicDecisionMaker,
	TopicAlternativesCompetitors,
	TopicTechnicalFit,
	TopicSecurityCompliance,
	TopicProcurement,
	TopicNextSteps,
}

// RiskFlag is one of the fixed objection/disengagement categories.
type RiskFlag string

const (
	RiskPriceObjection     RiskFlag = "priceObjection"
	RiskTimingObjection    RiskFlag = "timingObjection"
	RiskTrustConcern       RiskFlag = "trustConcern"
	RiskFeatureGap         RiskFlag = "featureGap"
	RiskSecurityConcern    RiskFlag = "securityConcern"
	RiskIntegrationConcern RiskFlag = "integrationConcern"
	RiskCompetitorMention  RiskFlag = "competitorMention"
	RiskConfusion          RiskFlag = "confusion"
	RiskFrustration        RiskFlag = "frustration"
	RiskLowEngagement      RiskFlag = "lowEngagement"
	RiskScopeMismatch      RiskFlag = "scopeMismatch"
)

// AllRiskFlags lists every risk flag in evaluation order.
var AllRiskFlags = []RiskFlag{
	RiskPriceObjection,
	RiskTimingObjection,
	RiskTrustConcern,
	RiskFeatureGap,
	RiskSecurityConcern,
	RiskIntegrationConcern,
	RiskCompetitorMention,
	RiskConfusion,
	RiskFrustration,
	RiskLowEngagement,
	RiskScopeMismatch,
}

// InsightType classifies a discrete finding.
type InsightType string

const (
	InsightObjection      InsightType = "objection"
	InsightRisk           InsightType = "risk"
	InsightPositiveSignal InsightType = "positiveSignal"
	InsightTopic          InsightType = "topic"
	InsightCoach          InsightType = "coach"
)

// Severity grades an insight.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SuggestionIntent tags a next-best-say suggestion.
type SuggestionIntent string

const (
	IntentAddressObjection SuggestionIntent = "addressObjection"
	IntentClarify          SuggestionIntent = "clarify"
	IntentValueReinforce   SuggestionIntent = "valueReinforce"
	IntentClose            SuggestionIntent = "close"
	IntentDiscovery        SuggestionIntent = "discovery"
	IntentRapport          SuggestionIntent = "rapport"
)

// QuestionIntent tags a suggested question.
type QuestionIntent string

const (
	QuestionDiscovery QuestionIntent = "discovery"
	QuestionBudget    QuestionIntent = "budget"
	QuestionTimeline  QuestionIntent = "timeline"
	QuestionDM        QuestionIntent = "dm"
	QuestionRisk      QuestionIntent = "risk"
	QuestionClose     QuestionIntent = "close"
)

// PainPointCategory buckets a detected pain point.
type PainPointCategory string

const (
	PainCost        PainPointCategory = "cost"
	PainTime        PainPointCategory = "time"
	PainIntegration PainPointCategory = "integration"
	PainCompliance  PainPointCategory = "compliance"
	PainTrust       PainPointCategory = "trust"
	PainUsability   PainPointCategory = "usability"
	PainSupport     PainPointCategory = "support"
	PainRisk        PainPointCategory = "risk"
	PainOther       PainPointCategory = "other"
)

// FollowUpStatus classifies how a client question was handled.
type FollowUpStatus string

const (
	FollowUpAnswered FollowUpStatus = "answered"
	FollowUpWeak     FollowUpStatus = "weak"
	FollowUpMissed   FollowUpStatus = "missed"
)

// Assessment is the overall verdict of the call summary.
type Assessment string

const (
	AssessmentStrong Assessment = "strong"
	AssessmentMixed  Assessment = "mixed"
	AssessmentAtRisk Assessment = "atRisk"
)

// Chunk is one ASR utterance as delivered by the transcription collaborator.
// Optional fields use pointers so absent and zero are distinguishable.
type Chunk struct {
	ID                string      `json:"id,omitempty"`
	Sequence          *int64      `json:"sequence,omitempty"`
	TStartMs          int64       `json:"tStartMs"`
	TEndMs            int64       `json:"tEndMs"`
	Speaker           string      `json:"speaker,omitempty"`
	SpeakerRole       SpeakerRole `json:"speakerRole,omitempty"`
	AudioSource       AudioSource `json:"audioSource,omitempty"`
	ProsodyEnergy     *float64    `json:"prosodyEnergy,omitempty"`
	ProsodyPauseRatio *float64    `json:"prosodyPauseRatio,omitempty"`
	ProsodyVoicedMs   *float64    `json:"prosodyVoicedMs,omitempty"`
	ProsodySnrDb      *float64    `json:"prosodySnrDb,omitempty"`
	Text              string      `json:"text"`
	Confidence        *float64    `json:"confidence,omitempty"`
}

// Request is one engine invocation. Sensitivity and CoachingAggressiveness
// are 0..100 tuning knobs; NowMs pins the trailing window for determinism.
type Request struct {
	MeetingID              string  `json:"meetingId"`
	Chunks                 []Chunk `json:"chunks"`
	UseHeuristics          *bool   `json:"useHeuristics,omitempty"`
	Sensitivity            float64 `json:"sensitivity"`
	CoachingAggressiveness float64 `json:"coachingAggressiveness"`
	NowMs                  *int64  `json:"nowMs,omitempty"`
}

// Utterance is a Chunk after dedupe, sort, and role assignment.
type Utterance struct {
	ID                string      `json:"id"`
	TStartMs          int64       `json:"tStartMs"`
	TEndMs            int64       `json:"tEndMs"`
	Speaker           string      `json:"speaker,omitempty"`
	SpeakerRole       SpeakerRole `json:"speakerRole"`
	AudioSource       AudioSource `json:"audioSource,omitempty"`
	ProsodyEnergy     *float64    `json:"prosodyEnergy,omitempty"`
	ProsodyPauseRatio *float64    `json:"prosodyPauseRatio,omitempty"`
	ProsodyVoicedMs   *float64    `json:"prosodyVoicedMs,omitempty"`
	ProsodySnrDb      *float64    `json:"prosodySnrDb,omitempty"`
	Text              string      `json:"text"`
	Confidence        float64     `json:"confidence"`
	Words             int         `json:"words"`
}

// EvidenceSnippet points back at the utterance that motivated a finding.
type EvidenceSnippet struct {
	UtteranceID string      `json:"utteranceId"`
	SpeakerRole SpeakerRole `json:"speakerRole"`
	TsStartMs   int64       `json:"tsStartMs"`
	TsEndMs     int64       `json:"tsEndMs"`
	Text        string      `json:"text"`
}

// TalkDynamics summarizes turn-taking inside the window.
type TalkDynamics struct {
	TalkRatioSalesPct  float64 `json:"talkRatioSalesPct"`
	TalkRatioClientPct float64 `json:"talkRatioClientPct"`
	InterruptionsCount int     `json:"interruptionsCount"`
	PaceWpmSales       float64 `json:"paceWpmSales"`
	PaceWpmClient      float64 `json:"paceWpmClient"`
}

// TopicCoverage reports which discovery topics have been discussed.
type TopicCoverage struct {
	CheckedTopics     []Topic           `json:"checkedTopics"`
	ConfidenceByTopic map[Topic]float64 `json:"confidenceByTopic"`
}

// Metrics is the quantitative snapshot for one invocation.
type Metrics struct {
	MeetingID                  string        `json:"meetingId"`
	WindowTsStartMs            int64         `json:"windowTsStartMs"`
	WindowTsEndMs              int64         `json:"windowTsEndMs"`
	ClientValence              float64       `json:"clientValence"`
	ClientValenceConfidence    float64       `json:"clientValenceConfidence"`
	ClientEngagement           float64       `json:"clientEngagement"`
	ClientEngagementConfidence float64       `json:"clientEngagementConfidence"`
	ClientEnergy               float64       `json:"clientEnergy"`
	ClientStress               float64       `json:"clientStress"`
	ClientCertainty            float64       `json:"clientCertainty"`
	ToneConfidence             float64       `json:"toneConfidence"`
	CallHealth                 float64       `json:"callHealth"`
	CallHealthConfidence       float64       `json:"callHealthConfidence"`
	RiskFlags                  []RiskFlag    `json:"riskFlags"`
	TalkDynamics               TalkDynamics  `json:"talkDynamics"`
	TopicCoverage              TopicCoverage `json:"topicCoverage"`
}

// Insight is a discrete, timestamped finding.
type Insight struct {
	MeetingID        string            `json:"meetingId"`
	InsightID        string            `json:"insightId"`
	TimestampMs      int64             `json:"timestampMs"`
	Type             InsightType       `json:"type"`
	Severity         Severity          `json:"severity"`
	Title            string            `json:"title"`
	Detail           string            `json:"detail"`
	Confidence       float64           `json:"confidence"`
	EvidenceSnippets []EvidenceSnippet `json:"evidenceSnippets"`
}

// CoachSuggestion is a ranked next-best-say statement.
type CoachSuggestion struct {
	SuggestionID     string           `json:"suggestionId"`
	Text             string           `json:"text"`
	Intent           SuggestionIntent `json:"intent"`
	Confidence       float64          `json:"confidence"`
	EvidenceSnippets []string         `json:"evidenceSnippets"`
}

// CoachQuestion is a ranked question to ask next.
type CoachQuestion struct {
	QuestionID       string         `json:"questionId"`
	Text             string         `json:"text"`
	Intent           QuestionIntent `json:"intent"`
	Confidence       float64        `json:"confidence"`
	EvidenceSnippets []string       `json:"evidenceSnippets"`
}

// CoachDoDont is a fixed do/don't guidance item.
type CoachDoDont struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Text             string   `json:"text"`
	Confidence       float64  `json:"confidence"`
	EvidenceSnippets []string `json:"evidenceSnippets"`
}

// PainPoint is a client pain derived from an active risk flag.
type PainPoint struct {
	Title                string            `json:"title"`
	Detail               string            `json:"detail"`
	Category             PainPointCategory `json:"category"`
	Confidence           float64           `json:"confidence"`
	EvidenceUtteranceIDs []string          `json:"evidenceUtteranceIds"`
}

// CoachPayload bundles all coaching output for one invocation.
type CoachPayload struct {
	MeetingID     string            `json:"meetingId"`
	GeneratedAtMs int64             `json:"generatedAtMs"`
	NextBestSay   []CoachSuggestion `json:"nextBestSay"`
	NextQuestions []CoachQuestion   `json:"nextQuestions"`
	DoDont        []CoachDoDont     `json:"doDont"`
	PainPoints    []PainPoint       `json:"painPoints"`
}

// QuestionFollowUp pairs a client question with how it was handled.
type QuestionFollowUp struct {
	QuestionID        string         `json:"questionId"`
	QuestionText      string         `json:"questionText"`
	AskedAtMs         int64          `json:"askedAtMs"`
	Status            FollowUpStatus `json:"status"`
	ResponseText      string         `json:"responseText,omitempty"`
	SuggestedRecovery string         `json:"suggestedRecovery"`
}

// CallSummary is the narrative executive summary.
type CallSummary struct {
	UpdatedAtMs       int64              `json:"updatedAtMs"`
	OverallAssessment Assessment         `json:"overallAssessment"`
	Headline          string             `json:"headline"`
	Strengths         []string           `json:"strengths"`
	Misses            []string           `json:"misses"`
	ImmediateActions  []string           `json:"immediateActions"`
	QuestionFollowUps []QuestionFollowUp `json:"questionFollowUps"`
}

// Result is the full output contract of one engine invocation.
type Result struct {
	Metrics  Metrics      `json:"metrics"`
	Coach    CoachPayload `json:"coach"`
	Insights []Insight    `json:"insights"`
	Summary  CallSummary  `json:"summary"`
}

// Snapshot is the compact form pushed to realtime clients.
type Snapshot struct {
	MeetingID            string     `json:"meetingId"`
	GeneratedAtMs        int64      `json:"generatedAtMs"`
	CallHealth           float64    `json:"callHealth"`
	CallHealthConfidence float64    `json:"callHealthConfidence"`
	ClientValence        float64    `json:"clientValence"`
	ClientEngagement     float64    `json:"clientEngagement"`
	RiskFlags            []RiskFlag `json:"riskFlags"`
}

// Snapshot collapses a Result to the realtime wire form.
func (r Result) Snapshot() Snapshot {
	flags := make([]RiskFlag, len(r.Metrics.RiskFlags))
	copy(flags, r.Metrics.RiskFlags)
	return Snapshot{
		MeetingID:            r.Metrics.MeetingID,
		GeneratedAtMs:        r.Metrics.WindowTsEndMs,
		CallHealth:           r.Metrics.CallHealth,
		CallHealthConfidence: r.Metrics.CallHealthConfidence,
		ClientValence:        r.Metrics.ClientValence,
		ClientEngagement:     r.Metrics.ClientEngagement,
		RiskFlags:            flags,
	}
}

// StakeholderSignal is the per-client-speaker aggregate used for
// champion/skeptic detection.
type StakeholderSignal struct {
	Speaker          string            `json:"speaker"`
	Valence          float64           `json:"valence"`
	WordShare        float64           `json:"wordShare"`
	RiskHits         int               `json:"riskHits"`
	Confidence       float64           `json:"confidence"`
	EvidenceSnippets []EvidenceSnippet `json:"evidenceSnippets"`
}
