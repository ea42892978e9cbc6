package analysis

import "strings"

// Default windowing constants. Both are configuration surface rather than
// hard-coded policy: deployments can tune them per Config.
const (
	DefaultWindowMs           int64 = 120_000
	DefaultFollowUpDeadlineMs int64 = 25_000
)

const interruptionGapMs int64 = 450

// Config tunes the engine's windowing behavior.
type Config struct {
	// WindowMs is the trailing analysis window; utterances ending before
	// now-WindowMs are ignored.
	WindowMs int64
	// FollowUpDeadlineMs is how long a sales reply may trail a client
	// question before the question counts as missed.
	FollowUpDeadlineMs int64
}

// DefaultConfig returns the production windowing defaults.
func DefaultConfig() Config {
	return Config{
		WindowMs:           DefaultWindowMs,
		FollowUpDeadlineMs: DefaultFollowUpDeadlineMs,
	}
}

// Engine is the heuristic call-analysis engine. It holds only immutable
// configuration, so a single Engine is safe for concurrent use across
// meetings; every Build call is an independent pure computation.
type Engine struct {
	cfg Config
}

// New builds an Engine, substituting defaults for zero config fields.
func New(cfg Config) *Engine {
	if cfg.WindowMs <= 0 {
		cfg.WindowMs = DefaultWindowMs
	}
	if cfg.FollowUpDeadlineMs <= 0 {
		cfg.FollowUpDeadlineMs = DefaultFollowUpDeadlineMs
	}
	return &Engine{cfg: cfg}
}

// Build runs the full pipeline over one input snapshot. It never fails on
// well-typed input: missing optional fields default, denominators are
// guarded, and every score is clamped before return. An empty chunk list
// yields a neutral result with empty risk, insight, and coach lists.
func (e *Engine) Build(req Request) Result {
	utterances := Normalize(req.Chunks)

	useHeuristics := true
	if req.UseHeuristics != nil {
		useHeuristics = *req.UseHeuristics
	}

	var now int64
	switch {
	case req.NowMs != nil:
		now = *req.NowMs
	case len(utterances) > 0:
		now = utterances[len(utterances)-1].TEndMs
	}

	windowStart := now - e.cfg.WindowMs
	if windowStart < 0 {
		windowStart = 0
	}
	if len(utterances) > 0 && utterances[0].TStartMs > windowStart {
		windowStart = utterances[0].TStartMs
	}

	var inWindow []Utterance
	for _, u := range utterances {
		if u.TEndMs >= windowStart {
			inWindow = append(inWindow, u)
		}
	}

	var clientUtterances, salesUtterances []Utterance
	for _, u := range inWindow {
		switch u.SpeakerRole {
		case RoleClient:
			clientUtterances = append(clientUtterances, u)
		case RoleSales:
			salesUtterances = append(salesUtterances, u)
		}
	}

	var clientParts []string
	clientWords := 0
	for _, u := range clientUtterances {
		clientParts = append(clientParts, u.Text)
		clientWords += u.Words
	}
	clientText := strings.Join(clientParts, " ")
	salesWords := 0
	for _, u := range salesUtterances {
		salesWords += u.Words
	}
	totalWords := salesWords + clientWords
	if totalWords < 1 {
		totalWords = 1
	}

	lex := sentimentStats(clientText)
	questionCount := strings.Count(clientText, "?")
	exclamationCount := strings.Count(clientText, "!")

	sensitivityAdjustment := (req.Sensitivity - 50) / 300
	textValence := clamp(lex.Valence-sensitivityAdjustment, -1, 1)

	clientTalkRatio := float64(clientWords) / float64(totalWords)
	turnScore := clamp(float64(len(clientUtterances))/10, 0, 1)
	questionScore := clamp(float64(questionCount)/4, 0, 1)
	balanceScore := 1 - absf(0.5-clientTalkRatio)*1.5
	dynamicsEngagement := clamp(0.45*turnScore+0.30*questionScore+0.25*balanceScore, 0, 1)

	topicCoverage := computeTopicCoverage(inWindow)
	// A quiet window raises no flags, whether the transcript is empty or
	// all speech has aged out of it.
	riskFlags := []RiskFlag{}
	if len(inWindow) > 0 {
		riskFlags = computeRiskFlags(clientText, dynamicsEngagement)
	}
	checked := make(map[Topic]bool, len(topicCoverage.CheckedTopics))
	for _, topic := range topicCoverage.CheckedTopics {
		checked[topic] = true
	}
	var missingTopics []Topic
	for _, topic := range AllTopics {
		if !checked[topic] {
			missingTopics = append(missingTopics, topic)
		}
	}

	champion, skeptic := detectStakeholders(clientUtterances, clientWords)

	clientDurationMin := durationMinutes(clientUtterances)
	salesDurationMin := durationMinutes(salesUtterances)

	interruptions := 0
	for i := 1; i < len(inWindow); i++ {
		if inWindow[i].SpeakerRole == inWindow[i-1].SpeakerRole {
			continue
		}
		if inWindow[i].TStartMs-inWindow[i-1].TEndMs < interruptionGapMs {
			interruptions++
		}
	}

	talkDynamics := TalkDynamics{
		TalkRatioSalesPct:  round1(clamp(float64(salesWords)/float64(totalWords)*100, 0, 100)),
		TalkRatioClientPct: round1(clamp(float64(clientWords)/float64(totalWords)*100, 0, 100)),
		InterruptionsCount: interruptions,
		PaceWpmSales:       roundWhole(clamp(float64(salesWords)/salesDurationMin, 0, 300)),
		PaceWpmClient:      roundWhole(clamp(float64(clientWords)/clientDurationMin, 0, 300)),
	}

	prosody := measureProsody(clientUtterances, inWindow)
	tone := fuseTone(prosody, lex, len(clientUtterances), questionCount, exclamationCount, clientWords, len(riskFlags), useHeuristics)

	toneValence := clamp(tone.Certainty-tone.Stress-0.1, -1, 1)
	clientValence := textValence
	if tone.GatePassed {
		clientValence = clamp(textValence*0.75+toneValence*0.25, -1, 1)
	}
	clientEngagement := dynamicsEngagement
	if tone.GatePassed {
		clientEngagement = clamp(dynamicsEngagement*0.6+tone.Energy*0.4, 0, 1)
	}

	riskSeverity := clamp(float64(len(riskFlags))/5, 0, 1)
	topicScore := float64(len(topicCoverage.CheckedTopics)) / float64(len(AllTopics))
	callHealth := clamp(
		((clientValence+1)/2)*0.25+
			clientEngagement*0.25+
			(1-riskSeverity)*0.30+
			topicScore*0.20,
		0, 1)

	completeness := clamp(float64(len(inWindow))/8, 0, 1)
	overallConfidence := round2(clamp((prosody.AvgConfidence+completeness)/2, 0, 1))
	engagementConfidence := overallConfidence
	if tone.ConfidencePenalty > 0 {
		engagementConfidence = round2(clamp(overallConfidence-tone.ConfidencePenalty, 0, 1))
	}

	evidence := buildEvidence(inWindow, func(u Utterance) bool { return u.SpeakerRole == RoleClient }, 2)

	coach := CoachPayload{
		MeetingID:     req.MeetingID,
		GeneratedAtMs: now,
		NextBestSay:   []CoachSuggestion{},
		NextQuestions: []CoachQuestion{},
		DoDont:        []CoachDoDont{},
		PainPoints:    []PainPoint{},
	}
	insights := []Insight{}
	if len(inWindow) > 0 {
		coach = computeCoach(req.MeetingID, now, riskFlags, missingTopics, evidence, champion, skeptic, req.CoachingAggressiveness)
		insights = computeInsights(req.MeetingID, now, riskFlags, topicCoverage, evidence, champion, skeptic, clientValence, clientEngagement)
	}

	metrics := Metrics{
		MeetingID:                  req.MeetingID,
		WindowTsStartMs:            windowStart,
		WindowTsEndMs:              now,
		ClientValence:              round2(clientValence),
		ClientValenceConfidence:    overallConfidence,
		ClientEngagement:           round2(clientEngagement),
		ClientEngagementConfidence: engagementConfidence,
		ClientEnergy:               round2(tone.Energy),
		ClientStress:               round2(tone.Stress),
		ClientCertainty:            round2(tone.Certainty),
		ToneConfidence:             round2(tone.ToneConfidence),
		CallHealth:                 round1(callHealth * 100),
		CallHealthConfidence:       overallConfidence,
		RiskFlags:                  riskFlags,
		TalkDynamics:               talkDynamics,
		TopicCoverage:              topicCoverage,
	}

	followUps := computeQuestionFollowUps(inWindow, e.cfg.FollowUpDeadlineMs)
	summary := computeCallSummary(summaryInput{
		NowMs:             now,
		Metrics:           metrics,
		RiskFlags:         riskFlags,
		MissingTopics:     missingTopics,
		QuestionFollowUps: followUps,
		Champion:          champion,
		Skeptic:           skeptic,
	})

	return Result{
		Metrics:  metrics,
		Coach:    coach,
		Insights: insights,
		Summary:  summary,
	}
}

func durationMinutes(utterances []Utterance) float64 {
	var totalMs int64
	for _, u := range utterances {
		totalMs += u.TEndMs - u.TStartMs
	}
	minutes := float64(totalMs) / 60_000
	if minutes < 0.5 {
		minutes = 0.5
	}
	return minutes
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func roundWhole(v float64) float64 {
	return float64(int64(v + 0.5))
}
