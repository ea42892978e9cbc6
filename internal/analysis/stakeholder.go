package analysis

import (
	"sort"
	"strings"
)

// Stakeholder detection thresholds.
const (
	minStakeholderWords     = 8
	minStakeholderWordShare = 0.15
	championMinValence      = 0.18
	skepticMaxValence       = -0.16
	skepticMinRiskHits      = 2
)

// buildEvidence collects the last `limit` utterances matching the
// predicate, with text clipped to snippet length.
func buildEvidence(utterances []Utterance, match func(Utterance) bool, limit int) []EvidenceSnippet {
	var matched []Utterance
	for _, u := range utterances {
		if match(u) {
			matched = append(matched, u)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	snippets := make([]EvidenceSnippet, 0, len(matched))
	for _, u := range matched {
		snippets = append(snippets, EvidenceSnippet{
			UtteranceID: u.ID,
			SpeakerRole: u.SpeakerRole,
			TsStartMs:   u.TStartMs,
			TsEndMs:     u.TEndMs,
			Text:        truncate(u.Text, 280),
		})
	}
	return snippets
}

// detectStakeholders aggregates client utterances per speaker label and
// surfaces at most one champion and one skeptic. Unlabeled speakers are
// excluded; speakers below the word floor are ignored. Grouping uses an
// explicit ordered mapping so results are deterministic.
func detectStakeholders(clientUtterances []Utterance, totalClientWords int) (champion, skeptic *StakeholderSignal) {
	bySpeaker := make(map[string][]Utterance)
	var order []string
	for _, u := range clientUtterances {
		if u.Speaker == "" {
			continue
		}
		if _, ok := bySpeaker[u.Speaker]; !ok {
			order = append(order, u.Speaker)
		}
		bySpeaker[u.Speaker] = append(bySpeaker[u.Speaker], u)
	}

	denominator := totalClientWords
	if denominator < 1 {
		denominator = 1
	}

	var signals []StakeholderSignal
	for _, speaker := range order {
		utterances := bySpeaker[speaker]
		words := 0
		for _, u := range utterances {
			words += u.Words
		}
		if words < minStakeholderWords {
			continue
		}

		var parts []string
		for _, u := range utterances {
			parts = append(parts, u.Text)
		}
		text := strings.Join(parts, " ")
		stats := sentimentStats(text)
		riskHits := keywordHits(text, riskKeywordsFlat)
		wordShare := float64(words) / float64(denominator)

		confidence := clamp(0.42+wordShare*0.38+minf(0.15, float64(riskHits)*0.03), 0, 0.95)

		signals = append(signals, StakeholderSignal{
			Speaker:          speaker,
			Valence:          stats.Valence,
			WordShare:        wordShare,
			RiskHits:         riskHits,
			Confidence:       round2(confidence),
			EvidenceSnippets: buildEvidence(utterances, func(Utterance) bool { return true }, 2),
		})
	}
	if len(signals) == 0 {
		return nil, nil
	}

	championCandidates := filterSignals(signals, func(s StakeholderSignal) bool {
		return s.Valence >= championMinValence && s.WordShare >= minStakeholderWordShare
	})
	sort.SliceStable(championCandidates, func(i, j int) bool {
		if championCandidates[i].Valence != championCandidates[j].Valence {
			return championCandidates[i].Valence > championCandidates[j].Valence
		}
		return championCandidates[i].WordShare > championCandidates[j].WordShare
	})
	if len(championCandidates) > 0 {
		c := championCandidates[0]
		champion = &c
	}

	skepticCandidates := filterSignals(signals, func(s StakeholderSignal) bool {
		return (s.Valence <= skepticMaxValence || s.RiskHits >= skepticMinRiskHits) &&
			s.WordShare >= minStakeholderWordShare
	})
	// Ties on valence and word share fall back to stable sort order.
	sort.SliceStable(skepticCandidates, func(i, j int) bool {
		if skepticCandidates[i].Valence != skepticCandidates[j].Valence {
			return skepticCandidates[i].Valence < skepticCandidates[j].Valence
		}
		return skepticCandidates[i].WordShare > skepticCandidates[j].WordShare
	})
	for i := range skepticCandidates {
		if champion == nil || skepticCandidates[i].Speaker != champion.Speaker {
			s := skepticCandidates[i]
			skeptic = &s
			break
		}
	}
	if skeptic == nil && len(skepticCandidates) > 0 {
		s := skepticCandidates[0]
		skeptic = &s
	}
	return champion, skeptic
}

func filterSignals(signals []StakeholderSignal, keep func(StakeholderSignal) bool) []StakeholderSignal {
	var out []StakeholderSignal
	for _, s := range signals {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
