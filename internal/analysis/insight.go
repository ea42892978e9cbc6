package analysis

import "strings"

const maxInsights = 10

// Positive momentum thresholds.
const (
	momentumMinValence    = 0.25
	momentumMinEngagement = 0.55
)

// criticalTopics are the discovery topics whose absence triggers a
// coverage-gap insight.
var criticalTopics = []Topic{TopicBudget, TopicTimeline, TopicDecisionMaker}

// computeInsights produces discrete findings: one per active risk flag, a
// positive-momentum signal, a critical coverage gap, and champion/skeptic
// detections. The list is capped and confidences are normalized.
func computeInsights(
	meetingID string,
	nowMs int64,
	riskFlags []RiskFlag,
	coverage TopicCoverage,
	evidence []EvidenceSnippet,
	champion, skeptic *StakeholderSignal,
	clientValence, clientEngagement float64,
) []Insight {
	insights := []Insight{}

	for i, flag := range riskFlags {
		insights = append(insights, Insight{
			MeetingID:        meetingID,
			InsightID:        makeID("risk", string(flag), i+1),
			TimestampMs:      nowMs,
			Type:             insightTypeForRisk(flag),
			Severity:         severityForRisk(flag),
			Title:            labelForRisk(flag),
			Detail:           "Signal from recent client language indicates " + string(flag) + ".",
			Confidence:       0.7,
			EvidenceSnippets: evidence,
		})
	}

	if clientValence > momentumMinValence && clientEngagement > momentumMinEngagement {
		insights = append(insights, Insight{
			MeetingID:        meetingID,
			InsightID:        makeID("positive", "engagement", 1),
			TimestampMs:      nowMs,
			Type:             InsightPositiveSignal,
			Severity:         SeverityLow,
			Title:            "Positive momentum",
			Detail:           "Client sentiment and engagement are currently favorable.",
			Confidence:       0.68,
			EvidenceSnippets: evidence,
		})
	}

	checked := make(map[Topic]bool, len(coverage.CheckedTopics))
	for _, topic := range coverage.CheckedTopics {
		checked[topic] = true
	}
	var missingCritical []string
	for _, topic := range criticalTopics {
		if !checked[topic] {
			missingCritical = append(missingCritical, string(topic))
		}
	}
	if len(missingCritical) > 0 {
		insights = append(insights, Insight{
			MeetingID:        meetingID,
			InsightID:        makeID("topic-gap", strings.Join(missingCritical, "-"), 1),
			TimestampMs:      nowMs,
			Type:             InsightTopic,
			Severity:         SeverityMedium,
			Title:            "Coverage gap",
			Detail:           "Key topics still open: " + strings.Join(missingCritical, ", ") + ".",
			Confidence:       0.66,
			EvidenceSnippets: evidence,
		})
	}

	if champion != nil {
		insights = append(insights, Insight{
			MeetingID:        meetingID,
			InsightID:        makeID("champion", champion.Speaker, 1),
			TimestampMs:      nowMs,
			Type:             InsightPositiveSignal,
			Severity:         SeverityLow,
			Title:            "Potential champion identified",
			Detail:           champion.Speaker + " shows supportive language and active participation.",
			Confidence:       champion.Confidence,
			EvidenceSnippets: champion.EvidenceSnippets,
		})
	}

	if skeptic != nil {
		severity := SeverityMedium
		if skeptic.Valence < -0.3 || skeptic.RiskHits >= 3 {
			severity = SeverityHigh
		}
		insights = append(insights, Insight{
			MeetingID:        meetingID,
			InsightID:        makeID("skeptic", skeptic.Speaker, 1),
			TimestampMs:      nowMs,
			Type:             InsightRisk,
			Severity:         severity,
			Title:            "Potential skeptic identified",
			Detail:           skeptic.Speaker + " is signaling objections that could stall buying momentum.",
			Confidence:       skeptic.Confidence,
			EvidenceSnippets: skeptic.EvidenceSnippets,
		})
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	for i := range insights {
		insights[i].Confidence = round2(clamp(insights[i].Confidence, 0, 1))
	}
	return insights
}
