package analysis

import "strconv"

// Summary score weights and list caps.
const (
	riskScorePenalty    = 6.0
	missedScorePenalty  = 15.0
	weakScorePenalty    = 8.0
	championScoreBonus  = 4.0
	strongScoreFloor    = 70.0
	mixedScoreFloor     = 50.0
	maxSummaryStrengths = 4
	maxSummaryMisses    = 5
	maxSummaryActions   = 4
)

const (
	headlineStrong = "Call is trending well. Keep momentum and secure next steps."
	headlineMixed  = "Mixed outcome. Resolve objections and close open client questions."
	headlineAtRisk = "At risk. Key concerns were unresolved and buying signals weakened."
)

type summaryInput struct {
	NowMs             int64
	Metrics           Metrics
	RiskFlags         []RiskFlag
	MissingTopics     []Topic
	QuestionFollowUps []QuestionFollowUp
	Champion          *StakeholderSignal
	Skeptic           *StakeholderSignal
}

// computeCallSummary combines health, risks, follow-ups, and stakeholder
// signals into the executive summary.
func computeCallSummary(in summaryInput) CallSummary {
	var missed, weak []QuestionFollowUp
	for _, item := range in.QuestionFollowUps {
		switch item.Status {
		case FollowUpMissed:
			missed = append(missed, item)
		case FollowUpWeak:
			weak = append(weak, item)
		}
	}

	strengths := []string{}
	if in.Metrics.CallHealth >= 72 {
		strengths = append(strengths, "Overall call health stayed in a strong range.")
	}
	if in.Metrics.ClientEngagement >= 0.58 {
		strengths = append(strengths, "Client engagement was solid through most of the call.")
	}
	if len(in.RiskFlags) <= 1 {
		strengths = append(strengths, "Few critical objections surfaced.")
	}
	if in.Champion != nil {
		strengths = append(strengths, in.Champion.Speaker+" appears supportive and can help internal buy-in.")
	}

	misses := []string{}
	topRisks := in.RiskFlags
	if len(topRisks) > 3 {
		topRisks = topRisks[:3]
	}
	for _, flag := range topRisks {
		misses = append(misses, "Objection detected: "+labelForRisk(flag)+".")
	}
	if len(missed) > 0 {
		misses = append(misses, strconv.Itoa(len(missed))+" client question(s) were not answered directly.")
	}
	if len(weak) > 0 {
		misses = append(misses, strconv.Itoa(len(weak))+" client question(s) received weak/indirect answers.")
	}
	if len(in.MissingTopics) > 0 {
		gapTopics := in.MissingTopics
		if len(gapTopics) > 3 {
			gapTopics = gapTopics[:3]
		}
		gap := "Critical discovery gaps: "
		for i, topic := range gapTopics {
			if i > 0 {
				gap += ", "
			}
			gap += topicLabel(topic)
		}
		misses = append(misses, gap+".")
	}

	actions := []string{}
	if len(in.RiskFlags) > 0 {
		if topic := topicForRisk(in.RiskFlags[0]); topic != "" {
			actions = append(actions, topicRecoveryPrompts[topic])
		}
	}
	loopBack := missed
	if len(loopBack) > 2 {
		loopBack = loopBack[:2]
	}
	for _, question := range loopBack {
		actions = append(actions, `Close the loop on: "`+question.QuestionText+`"`)
	}
	if len(actions) == 0 {
		if len(in.MissingTopics) > 0 {
			actions = append(actions, topicRecoveryPrompts[in.MissingTopics[0]])
		} else {
			actions = append(actions, "Summarize agreed value and lock a concrete next step with owner/date.")
		}
	}

	baseScore := in.Metrics.CallHealth -
		float64(len(in.RiskFlags))*riskScorePenalty -
		float64(len(missed))*missedScorePenalty -
		float64(len(weak))*weakScorePenalty
	if in.Champion != nil {
		baseScore += championScoreBonus
	}
	score := clamp(baseScore, 0, 100)

	assessment := AssessmentAtRisk
	headline := headlineAtRisk
	switch {
	case score >= strongScoreFloor:
		assessment = AssessmentStrong
		headline = headlineStrong
	case score >= mixedScoreFloor:
		assessment = AssessmentMixed
		headline = headlineMixed
	}

	if len(strengths) > maxSummaryStrengths {
		strengths = strengths[:maxSummaryStrengths]
	}
	if len(misses) > maxSummaryMisses {
		misses = misses[:maxSummaryMisses]
	}
	if len(actions) > maxSummaryActions {
		actions = actions[:maxSummaryActions]
	}

	return CallSummary{
		UpdatedAtMs:       in.NowMs,
		OverallAssessment: assessment,
		Headline:          headline,
		Strengths:         strengths,
		Misses:            misses,
		ImmediateActions:  actions,
		QuestionFollowUps: in.QuestionFollowUps,
	}
}
