package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Fixed keyword tables driving topic coverage, risk flags, and role cues.
// Kept as named tables rather than inline literals so they can be tuned and
// unit-tested without touching control flow.

var topicKeywords = map[Topic][]string{
	TopicNeedProblem:             {"problem", "pain", "challenge", "issue", "need"},
	TopicBudget:                  {"budget", "cost", "price", "pricing", "spend", "roi"},
	TopicTimeline:                {"timeline", "quarter", "month", "deadline", "by when"},
	TopicDecisionMaker:           {"decision maker", "approver", "sign off", "stakeholder"},
	TopicAlternativesCompetitors: {"competitor", "alternative", "other vendor", "compare"},
	TopicTechnicalFit:            {"integration", "api", "technical", "implementation", "fit"},
	TopicSecurityCompliance:      {"security", "compliance", "soc2", "gdpr", "privacy"},
	TopicProcurement:             {"procurement", "legal", "msa", "purchase order", "vendor form"},
	TopicNextSteps:               {"next step", "follow up", "pilot", "trial", "schedule"},
}

var riskKeywords = map[RiskFlag][]string{
	RiskPriceObjection:     {"too expensive", "price", "cost", "budget", "cheap"},
	RiskTimingObjection:    {"not now", "later", "next quarter", "timing", "wait"},
	RiskTrustConcern:       {"trust", "reliable", "proven", "reference", "risk"},
	RiskFeatureGap:         {"missing", "doesn't support", "feature gap", "lack"},
	RiskSecurityConcern:    {"security", "compliance", "soc2", "data breach"},
	RiskIntegrationConcern: {"integration", "api", "migration", "compatibility"},
	RiskCompetitorMention:  {"competitor", "alternative", "vs", "already using"},
	RiskConfusion:          {"confused", "not clear", "unclear", "don't understand"},
	RiskFrustration:        {"frustrated", "annoyed", "not happy", "painful"},
	RiskLowEngagement:      {"maybe", "not sure", "fine", "okay", "whatever"},
	RiskScopeMismatch:      {"not relevant", "different use case", "out of scope"},
}

// riskKeywordsFlat is the deduplicated union of every risk phrase, used for
// client cue scoring and per-speaker risk hit counts.
var riskKeywordsFlat = flattenRiskKeywords()

func flattenRiskKeywords() []string {
	seen := make(map[string]struct{})
	var flat []string
	for _, flag := range AllRiskFlags {
		for _, kw := range riskKeywords[flag] {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			flat = append(flat, kw)
		}
	}
	return flat
}

var positiveWords = wordSet(
	"good", "great", "excellent", "love", "helpful", "useful",
	"clear", "yes", "works", "perfect", "valuable", "happy",
)

var negativeWords = wordSet(
	"bad", "issue", "problem", "expensive", "difficult", "hard",
	"confused", "frustrated", "no", "can't", "cannot", "risk", "concern",
)

var certaintyWords = wordSet(
	"definitely", "certainly", "exactly", "clear", "sure", "will",
)

var hedgeWords = wordSet(
	"maybe", "perhaps", "might", "possibly", "kind of", "sort of", "not sure",
)

var salesCuePhrases = []string{
	"let me", "we help", "our platform", "our product", "we can",
	"next step", "timeline", "budget", "how are you", "what would",
}

var clientCuePhrases = []string{
	"we need", "our team", "we use", "we are using", "concern",
	"too expensive", "not now", "not sure", "doesn't support", "issue",
}

var stopWords = wordSet(
	"the", "a", "an", "and", "or", "to", "of", "in", "on", "for", "with",
	"is", "are", "was", "were", "it", "this", "that", "we", "you", "our",
	"your", "do", "does", "did", "can", "could", "would", "should",
	"i", "me", "my", "us",
)

var audioSourceRoles = map[AudioSource]SpeakerRole{
	SourceMicrophone:  RoleSales,
	SourceSystemAudio: RoleClient,
	SourceTabAudio:    RoleClient,
}

var topicRecoveryPrompts = map[Topic]string{
	TopicNeedProblem:             "Reconfirm the core business problem and impact in client terms.",
	TopicBudget:                  "Align budget expectations to concrete ROI and rollout scope.",
	TopicTimeline:                "Pin down timeline blockers and propose a phased start date.",
	TopicDecisionMaker:           "Confirm decision owners and sign-off path before ending the call.",
	TopicAlternativesCompetitors: "Ask how alternatives are being scored and position your differentiator.",
	TopicTechnicalFit:            "Clarify integration and technical fit with one concrete example.",
	TopicSecurityCompliance:      "Address security/compliance concerns with proof and process.",
	TopicProcurement:             "Surface procurement/legal steps and next ownership.",
	TopicNextSteps:               "Lock clear next steps with owner and date.",
}

var (
	nonWordRe     = regexp.MustCompile(`[^a-z0-9\s']`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	idSeedRe      = regexp.MustCompile(`[^a-z0-9]`)
	selfRefRe     = regexp.MustCompile(`(?i)(speaker\s*1|you|sales|me)`)
	offerToActRe  = regexp.MustCompile(`\b(let me|we can|i can|i'll|i will)\b`)
	ownershipRe   = regexp.MustCompile(`\bwe need|our team|our process|our budget\b`)
	deflectionRe  = regexp.MustCompile(`(?i)(later|circle back|offline|after this|not sure)`)
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func clamp(v, min, max float64) float64 {
	return math.Min(max, math.Max(min, v))
}

// round2 matches the 2-decimal rounding applied to every exported
// confidence value.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func normalizeText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// toWords lowercases and tokenizes, keeping letters, digits, and
// apostrophes so contractions like "can't" survive as one token.
func toWords(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(cleaned)
}

// contentWords drops stopwords and short tokens.
func contentWords(text string) []string {
	var out []string
	for _, token := range toWords(text) {
		if len(token) <= 2 {
			continue
		}
		if _, ok := stopWords[token]; ok {
			continue
		}
		out = append(out, token)
	}
	return out
}

// keywordHits counts how many keywords appear as substrings of text.
// Each keyword counts at most once.
func keywordHits(text string, keywords []string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	return hits
}

// makeID builds a deterministic identifier from a prefix, a seed, and a
// rank. The engine never uses random IDs so repeated invocations are
// byte-identical.
func makeID(prefix, seed string, index int) string {
	cleaned := idSeedRe.ReplaceAllString(strings.ToLower(seed), "")
	if len(cleaned) > 16 {
		cleaned = cleaned[:16]
	}
	if cleaned == "" {
		cleaned = "item"
	}
	return prefix + "-" + cleaned + "-" + strconv.Itoa(index)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
