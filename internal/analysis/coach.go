package analysis

// Pain point confidence decays with rank so earlier flags rank higher.
const (
	painBaseConfidence  = 0.62
	painConfidenceDecay = 0.03
	painConfidenceFloor = 0.45
	painConfidenceCap   = 0.8
	maxPainPoints       = 5
	maxSuggestions      = 3
	maxQuestions        = 3
	maxDoDont           = 4
)

// buildPainPoints maps the first active risk flags to pain points with a
// fixed per-flag description table.
func buildPainPoints(riskFlags []RiskFlag, evidence []EvidenceSnippet) []PainPoint {
	evidenceIDs := make([]string, 0, 4)
	for _, snippet := range evidence {
		if len(evidenceIDs) == 4 {
			break
		}
		evidenceIDs = append(evidenceIDs, snippet.UtteranceID)
	}

	flags := riskFlags
	if len(flags) > maxPainPoints {
		flags = flags[:maxPainPoints]
	}
	points := make([]PainPoint, 0, len(flags))
	for i, flag := range flags {
		detail, ok := painPointDetailByRisk[flag]
		if !ok {
			detail = labelForRisk(flag) + " in current conversation window."
		}
		points = append(points, PainPoint{
			Title:                labelForRisk(flag),
			Detail:               detail,
			Category:             painPointCategoryForRisk(flag),
			Confidence:           round2(clamp(painBaseConfidence-float64(i)*painConfidenceDecay, painConfidenceFloor, painConfidenceCap)),
			EvidenceUtteranceIDs: evidenceIDs,
		})
	}
	return points
}

// computeCoach converts risk flags, coverage gaps, and stakeholder signals
// into ranked suggestions, questions, and do/don't guidance. Every rule in
// the table fires at most once; coaching aggressiveness scales suggestion
// confidence.
func computeCoach(
	meetingID string,
	nowMs int64,
	riskFlags []RiskFlag,
	missingTopics []Topic,
	evidence []EvidenceSnippet,
	champion, skeptic *StakeholderSignal,
	coachingAggressiveness float64,
) CoachPayload {
	evidenceTexts := make([]string, 0, len(evidence))
	for _, snippet := range evidence {
		evidenceTexts = append(evidenceTexts, truncate(snippet.Text, 120))
	}
	weight := clamp(coachingAggressiveness/100, 0, 1)

	active := make(map[RiskFlag]bool, len(riskFlags))
	for _, flag := range riskFlags {
		active[flag] = true
	}

	var nextBestSay []CoachSuggestion
	var nextQuestions []CoachQuestion

	if active[RiskPriceObjection] {
		nextBestSay = append(nextBestSay, CoachSuggestion{
			SuggestionID:     makeID("say", "price", 1),
			Text:             "Acknowledge price, then anchor to one measurable outcome and payback timing.",
			Intent:           IntentAddressObjection,
			Confidence:       0.7 + weight*0.15,
			EvidenceSnippets: evidenceTexts,
		})
		nextQuestions = append(nextQuestions, CoachQuestion{
			QuestionID:       makeID("ask", "price", 1),
			Text:             "What budget range did you already allocate for solving this problem?",
			Intent:           QuestionBudget,
			Confidence:       0.7,
			EvidenceSnippets: evidenceTexts,
		})
	}

	if active[RiskTimingObjection] {
		nextBestSay = append(nextBestSay, CoachSuggestion{
			SuggestionID:     makeID("say", "timing", 1),
			Text:             "Lower perceived effort: suggest a small pilot with clear success criteria.",
			Intent:           IntentClarify,
			Confidence:       0.68 + weight*0.18,
			EvidenceSnippets: evidenceTexts,
		})
		nextQuestions = append(nextQuestions, CoachQuestion{
			QuestionID:       makeID("ask", "timing", 1),
			Text:             "What milestone has to happen before this becomes a priority?",
			Intent:           QuestionTimeline,
			Confidence:       0.71,
			EvidenceSnippets: evidenceTexts,
		})
	}

	if active[RiskTrustConcern] || active[RiskSecurityConcern] {
		nextBestSay = append(nextBestSay, CoachSuggestion{
			SuggestionID:     makeID("say", "trust", 1),
			Text:             "Rebuild trust with proof: similar customer result, security posture, rollout plan.",
			Intent:           IntentValueReinforce,
			Confidence:       0.75,
			EvidenceSnippets: evidenceTexts,
		})
		nextQuestions = append(nextQuestions, CoachQuestion{
			QuestionID:       makeID("ask", "trust", 1),
			Text:             "Which risk would you need us to de-risk first to move forward?",
			Intent:           QuestionRisk,
			Confidence:       0.74,
			EvidenceSnippets: evidenceTexts,
		})
	}

	if len(nextBestSay) == 0 {
		nextBestSay = append(nextBestSay, CoachSuggestion{
			SuggestionID:     makeID("say", "generic", 1),
			Text:             "Mirror the client goal in one sentence, then confirm before pitching further.",
			Intent:           IntentClarify,
			Confidence:       0.66,
			EvidenceSnippets: evidenceTexts,
		})
	}

	if len(nextQuestions) == 0 {
		nextQuestions = append(nextQuestions, discoveryQuestion(missingTopics, evidenceTexts))
	}

	if skeptic != nil {
		skepticEvidence := make([]string, 0, len(skeptic.EvidenceSnippets))
		for _, snippet := range skeptic.EvidenceSnippets {
			skepticEvidence = append(skepticEvidence, truncate(snippet.Text, 120))
		}
		nextQuestions = append([]CoachQuestion{{
			QuestionID:       makeID("ask", "skeptic-risk", 1),
			Text:             "What must be true for " + skeptic.Speaker + " to feel safe moving forward?",
			Intent:           QuestionRisk,
			Confidence:       clamp(0.69+weight*0.1, 0, 1),
			EvidenceSnippets: skepticEvidence,
		}}, nextQuestions...)
	}

	if champion != nil && skeptic != nil {
		combined := append([]EvidenceSnippet{}, champion.EvidenceSnippets...)
		combined = append(combined, skeptic.EvidenceSnippets...)
		if len(combined) > 3 {
			combined = combined[:3]
		}
		texts := make([]string, 0, len(combined))
		for _, snippet := range combined {
			texts = append(texts, truncate(snippet.Text, 120))
		}
		nextBestSay = append([]CoachSuggestion{{
			SuggestionID:     makeID("say", "champion-skeptic", 1),
			Text:             "Align " + champion.Speaker + " and " + skeptic.Speaker + " on one shared success metric.",
			Intent:           IntentRapport,
			Confidence:       clamp(0.7+weight*0.12, 0, 1),
			EvidenceSnippets: texts,
		}}, nextBestSay...)
	}

	doDont := []CoachDoDont{
		{
			ID:               makeID("dodont", "do-confirm", 1),
			Type:             "do",
			Text:             "Do confirm understanding after each objection before responding.",
			Confidence:       0.77,
			EvidenceSnippets: evidenceTexts,
		},
		{
			ID:               makeID("dodont", "dont-overload", 1),
			Type:             "dont",
			Text:             "Don't stack multiple claims without tying them to the client's stated need.",
			Confidence:       0.75,
			EvidenceSnippets: evidenceTexts,
		},
	}

	if len(nextBestSay) > maxSuggestions {
		nextBestSay = nextBestSay[:maxSuggestions]
	}
	for i := range nextBestSay {
		nextBestSay[i].Confidence = round2(clamp(nextBestSay[i].Confidence, 0, 1))
	}
	if len(nextQuestions) > maxQuestions {
		nextQuestions = nextQuestions[:maxQuestions]
	}
	for i := range nextQuestions {
		nextQuestions[i].Confidence = round2(clamp(nextQuestions[i].Confidence, 0, 1))
	}
	if len(doDont) > maxDoDont {
		doDont = doDont[:maxDoDont]
	}
	for i := range doDont {
		doDont[i].Confidence = round2(clamp(doDont[i].Confidence, 0, 1))
	}

	return CoachPayload{
		MeetingID:     meetingID,
		GeneratedAtMs: nowMs,
		NextBestSay:   nextBestSay,
		NextQuestions: nextQuestions,
		DoDont:        doDont,
		PainPoints:    buildPainPoints(riskFlags, evidence),
	}
}

// discoveryQuestion targets the highest-priority uncovered topic:
// budget, then timeline, then decision maker, then a generic opener.
func discoveryQuestion(missingTopics []Topic, evidenceTexts []string) CoachQuestion {
	var missing Topic
	if len(missingTopics) > 0 {
		missing = missingTopics[0]
	}

	text := "What outcome matters most for this conversation today?"
	intent := QuestionDiscovery
	seed := "discovery"
	switch missing {
	case TopicBudget:
		text = "How are you currently budgeting for this initiative?"
		intent = QuestionBudget
		seed = string(TopicBudget)
	case TopicTimeline:
		text = "What timeline are you targeting for a decision?"
		intent = QuestionTimeline
		seed = string(TopicTimeline)
	case TopicDecisionMaker:
		text = "Who else will be involved in the final decision?"
		intent = QuestionDM
		seed = string(TopicDecisionMaker)
	default:
		if missing != "" {
			seed = string(missing)
		}
	}

	return CoachQuestion{
		QuestionID:       makeID("ask", seed, 1),
		Text:             text,
		Intent:           intent,
		Confidence:       0.64,
		EvidenceSnippets: evidenceTexts,
	}
}
