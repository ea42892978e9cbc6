package analysis

import "strings"

// computeTopicCoverage counts keyword hits for each discovery topic across
// the full in-window transcript. A topic is checked at confidence >= 0.45,
// i.e. at least one keyword hit.
func computeTopicCoverage(utterances []Utterance) TopicCoverage {
	var parts []string
	for _, u := range utterances {
		parts = append(parts, u.Text)
	}
	fullText := strings.ToLower(strings.Join(parts, " "))

	coverage := TopicCoverage{
		CheckedTopics:     []Topic{},
		ConfidenceByTopic: make(map[Topic]float64, len(AllTopics)),
	}
	for _, topic := range AllTopics {
		hits := keywordHits(fullText, topicKeywords[topic])
		confidence := clamp(float64(hits)/2, 0, 1)
		coverage.ConfidenceByTopic[topic] = round2(confidence)
		if confidence >= 0.45 {
			coverage.CheckedTopics = append(coverage.CheckedTopics, topic)
		}
	}
	return coverage
}

// computeRiskFlags marks every risk flag whose phrase list hits the client
// text. lowEngagement is additionally forced whenever engagement drops
// below 0.35.
func computeRiskFlags(clientText string, clientEngagement float64) []RiskFlag {
	text := strings.ToLower(clientText)
	active := make(map[RiskFlag]bool, len(AllRiskFlags))
	flags := []RiskFlag{}
	for _, flag := range AllRiskFlags {
		if keywordHits(text, riskKeywords[flag]) > 0 {
			active[flag] = true
			flags = append(flags, flag)
		}
	}
	if clientEngagement < 0.35 && !active[RiskLowEngagement] {
		flags = append(flags, RiskLowEngagement)
	}
	return flags
}

func severityForRisk(flag RiskFlag) Severity {
	switch flag {
	case RiskSecurityConcern, RiskTrustConcern, RiskScopeMismatch:
		return SeverityHigh
	case RiskPriceObjection, RiskIntegrationConcern, RiskFeatureGap:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func insightTypeForRisk(flag RiskFlag) InsightType {
	switch flag {
	case RiskPriceObjection, RiskTimingObjection, RiskTrustConcern,
		RiskFeatureGap, RiskSecurityConcern, RiskIntegrationConcern,
		RiskCompetitorMention:
		return InsightObjection
	default:
		return InsightRisk
	}
}

func labelForRisk(flag RiskFlag) string {
	switch flag {
	case RiskPriceObjection:
		return "Price objection detected"
	case RiskTimingObjection:
		return "Timing objection detected"
	case RiskTrustConcern:
		return "Trust concern detected"
	case RiskFeatureGap:
		return "Feature gap concern detected"
	case RiskSecurityConcern:
		return "Security concern detected"
	case RiskIntegrationConcern:
		return "Integration concern detected"
	case RiskCompetitorMention:
		return "Competitor mention detected"
	case RiskConfusion:
		return "Client confusion signal"
	case RiskFrustration:
		return "Client frustration signal"
	case RiskLowEngagement:
		return "Low engagement risk"
	case RiskScopeMismatch:
		return "Scope mismatch risk"
	default:
		return string(flag)
	}
}

func topicLabel(topic Topic) string {
	switch topic {
	case TopicNeedProblem:
		return "Need / Problem"
	case TopicBudget:
		return "Budget"
	case TopicTimeline:
		return "Timeline"
	case TopicDecisionMaker:
		return "Decision Maker"
	case TopicAlternativesCompetitors:
		return "Alternatives / Competitors"
	case TopicTechnicalFit:
		return "Technical Fit"
	case TopicSecurityCompliance:
		return "Security / Compliance"
	case TopicProcurement:
		return "Procurement"
	case TopicNextSteps:
		return "Next Steps"
	default:
		return string(topic)
	}
}

// topicForRisk maps a risk flag to the discovery topic whose recovery
// prompt best addresses it. Flags with no natural topic return "".
func topicForRisk(flag RiskFlag) Topic {
	switch flag {
	case RiskPriceObjection:
		return TopicBudget
	case RiskTimingObjection:
		return TopicTimeline
	case RiskTrustConcern, RiskSecurityConcern:
		return TopicSecurityCompliance
	case RiskFeatureGap, RiskIntegrationConcern:
		return TopicTechnicalFit
	case RiskCompetitorMention:
		return TopicAlternativesCompetitors
	case RiskScopeMismatch:
		return TopicNeedProblem
	default:
		return ""
	}
}

func painPointCategoryForRisk(flag RiskFlag) PainPointCategory {
	switch flag {
	case RiskPriceObjection:
		return PainCost
	case RiskTimingObjection:
		return PainTime
	case RiskIntegrationConcern:
		return PainIntegration
	case RiskSecurityConcern:
		return PainCompliance
	case RiskTrustConcern:
		return PainTrust
	case RiskFeatureGap, RiskConfusion:
		return PainUsability
	case RiskLowEngagement:
		return PainOther
	case RiskScopeMismatch, RiskFrustration:
		return PainRisk
	case RiskCompetitorMention:
		return PainSupport
	default:
		return PainOther
	}
}

var painPointDetailByRisk = map[RiskFlag]string{
	RiskPriceObjection:     "Client is signaling pricing pressure and budget concern.",
	RiskTimingObjection:    "Client is delaying urgency or timeline commitment.",
	RiskIntegrationConcern: "Integration complexity is blocking confidence.",
	RiskSecurityConcern:    "Security/compliance concerns need concrete proof.",
	RiskTrustConcern:       "Trust signals are weak and require validation.",
	RiskFeatureGap:         "Perceived product capability gap is reducing fit confidence.",
	RiskScopeMismatch:      "Use case appears misaligned with current value framing.",
	RiskLowEngagement:      "Client participation dropped and buying intent is unclear.",
}
