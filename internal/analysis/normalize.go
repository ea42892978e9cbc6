package analysis

import (
	"sort"
	"strconv"
	"strings"
)

// scoreSalesSignal scores how much an utterance sounds like the sales side:
// first-person offer phrases, questions, and offers to act.
func scoreSalesSignal(text string) float64 {
	lower := strings.ToLower(text)
	score := float64(keywordHits(lower, salesCuePhrases)) * 0.8
	score += float64(strings.Count(lower, "?")) * 0.35
	if offerToActRe.MatchString(lower) {
		score += 0.5
	}
	return score
}

// scoreClientSignal scores how much an utterance sounds like the client
// side: need/objection phrases, risk keywords, and ownership phrases.
func scoreClientSignal(text string) float64 {
	lower := strings.ToLower(text)
	score := float64(keywordHits(lower, clientCuePhrases)) * 0.7
	score += float64(keywordHits(lower, riskKeywordsFlat)) * 0.35
	if ownershipRe.MatchString(lower) {
		score += 0.45
	}
	return score
}

// inferSalesSpeaker picks the speaker label most likely to be the sales
// rep. Preference order: an explicit SALES tag, a microphone audio-source
// hint, a self-referential label, then accumulated cue scoring. The cue
// scorer only wins with a score above 0.75 and a margin over the runner-up
// above 0.35; otherwise the first labeled speaker is used.
func inferSalesSpeaker(chunks []Chunk) string {
	for _, c := range chunks {
		if c.Speaker != "" && c.SpeakerRole == RoleSales {
			return c.Speaker
		}
	}
	for _, c := range chunks {
		if c.Speaker != "" && c.AudioSource == SourceMicrophone {
			return c.Speaker
		}
	}
	for _, c := range chunks {
		if c.Speaker != "" && selfRefRe.MatchString(c.Speaker) {
			return c.Speaker
		}
	}

	scores := make(map[string]float64)
	var order []string
	for _, c := range chunks {
		if c.Speaker == "" {
			continue
		}
		if _, ok := scores[c.Speaker]; !ok {
			order = append(order, c.Speaker)
		}
		score := scores[c.Speaker]
		switch c.SpeakerRole {
		case RoleSales:
			score += 2
		case RoleClient:
			score -= 1
		}
		switch audioSourceRoles[c.AudioSource] {
		case RoleSales:
			score += 1.8
		case RoleClient:
			score -= 1.2
		}
		score += scoreSalesSignal(c.Text) - scoreClientSignal(c.Text)*0.65
		scores[c.Speaker] = score
	}

	if len(order) > 0 {
		ranked := make([]string, len(order))
		copy(ranked, order)
		sort.SliceStable(ranked, func(i, j int) bool {
			return scores[ranked[i]] > scores[ranked[j]]
		})
		best := ranked[0]
		runnerUp := -1e18
		if len(ranked) > 1 {
			runnerUp = scores[ranked[1]]
		}
		if scores[best] > 0.75 && scores[best]-runnerUp > 0.35 {
			return best
		}
	}

	for _, c := range chunks {
		if c.Speaker != "" {
			return c.Speaker
		}
	}
	return ""
}

// assignRole resolves the role of one chunk. An explicit role from the
// collaborator is never overridden.
func assignRole(c Chunk, salesSpeaker string) SpeakerRole {
	if c.SpeakerRole == RoleSales || c.SpeakerRole == RoleClient || c.SpeakerRole == RoleUnknown {
		return c.SpeakerRole
	}
	if role, ok := audioSourceRoles[c.AudioSource]; ok {
		return role
	}
	if c.Speaker != "" && salesSpeaker != "" && c.Speaker == salesSpeaker {
		return RoleSales
	}
	if c.Speaker != "" {
		return RoleClient
	}

	salesScore := scoreSalesSignal(c.Text)
	clientScore := scoreClientSignal(c.Text)
	if salesScore-clientScore >= 0.9 {
		return RoleSales
	}
	if clientScore-salesScore >= 0.6 {
		return RoleClient
	}
	return RoleUnknown
}

// inferRoleFromContext is the second, context-aware pass for utterances
// still UNKNOWN after assignRole: agreeing neighbors, question/answer
// adjacency, then a lower-threshold cue margin.
func inferRoleFromContext(utterances []Utterance, index int) SpeakerRole {
	current := utterances[index]

	var prev, next *Utterance
	if index > 0 {
		prev = &utterances[index-1]
	}
	if index < len(utterances)-1 {
		next = &utterances[index+1]
	}

	if prev != nil && next != nil && prev.SpeakerRole != RoleUnknown && prev.SpeakerRole == next.SpeakerRole {
		return prev.SpeakerRole
	}

	if prev != nil && prev.SpeakerRole != RoleUnknown && strings.Contains(prev.Text, "?") {
		if prev.SpeakerRole == RoleSales {
			return RoleClient
		}
		return RoleSales
	}

	if next != nil && next.SpeakerRole != RoleUnknown && strings.Contains(current.Text, "?") {
		if next.SpeakerRole == RoleSales {
			return RoleClient
		}
		return RoleSales
	}

	salesScore := scoreSalesSignal(current.Text)
	clientScore := scoreClientSignal(current.Text)
	if salesScore-clientScore >= 0.7 {
		return RoleSales
	}
	if clientScore-salesScore >= 0.5 {
		return RoleClient
	}
	return RoleUnknown
}

// Normalize dedupes, sorts, and role-tags raw chunks. The dedupe key is the
// explicit chunk id when present, else (sequence, start, end, text). Output
// is sorted ascending by start time, ties broken by end time.
func Normalize(chunks []Chunk) []Utterance {
	salesSpeaker := inferSalesSpeaker(chunks)
	seen := make(map[string]struct{}, len(chunks))

	normalized := make([]Utterance, 0, len(chunks))
	for i, c := range chunks {
		text := normalizeText(c.Text)
		if text == "" {
			continue
		}

		key := c.ID
		if key == "" {
			seq := int64(-1)
			if c.Sequence != nil {
				seq = *c.Sequence
			}
			key = strconv.FormatInt(seq, 10) + ":" +
				strconv.FormatInt(c.TStartMs, 10) + ":" +
				strconv.FormatInt(c.TEndMs, 10) + ":" + text
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		confidence := 0.7
		if c.Confidence != nil {
			confidence = clamp(*c.Confidence, 0, 1)
		}
		id := c.ID
		if id == "" {
			id = "utt-" + strconv.Itoa(i)
		}
		start := c.TStartMs
		if start < 0 {
			start = 0
		}
		end := c.TEndMs
		if end < c.TStartMs+1 {
			end = c.TStartMs + 1
		}

		normalized = append(normalized, Utterance{
			ID:                id,
			TStartMs:          start,
			TEndMs:            end,
			Speaker:           c.Speaker,
			SpeakerRole:       assignRole(c, salesSpeaker),
			AudioSource:       c.AudioSource,
			ProsodyEnergy:     c.ProsodyEnergy,
			ProsodyPauseRatio: c.ProsodyPauseRatio,
			ProsodyVoicedMs:   c.ProsodyVoicedMs,
			ProsodySnrDb:      c.ProsodySnrDb,
			Text:              text,
			Confidence:        confidence,
			Words:             len(toWords(text)),
		})
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		if normalized[i].TStartMs != normalized[j].TStartMs {
			return normalized[i].TStartMs < normalized[j].TStartMs
		}
		return normalized[i].TEndMs < normalized[j].TEndMs
	})

	// Backfill pass. Inferred roles are written to a copy so each decision
	// reads the first-pass roles of its neighbors, not freshly inferred ones.
	out := make([]Utterance, len(normalized))
	copy(out, normalized)
	for i := range normalized {
		if normalized[i].SpeakerRole != RoleUnknown {
			continue
		}
		inferred := inferRoleFromContext(normalized, i)
		if inferred == RoleUnknown {
			continue
		}
		out[i].SpeakerRole = inferred
		if out[i].Speaker == "" {
			if inferred == RoleSales {
				out[i].Speaker = "Sales (inferred)"
			} else {
				out[i].Speaker = "Client (inferred)"
			}
		}
	}
	return out
}
