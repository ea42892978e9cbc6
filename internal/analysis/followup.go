package analysis

import "strings"

// Follow-up tracking constants. The reply deadline is configurable on the
// engine; the lookahead and list cap are fixed.
const (
	followUpLookahead = 6
	followUpKeep      = 8
	weakReplyWords    = 6
	weakOverlapFloor  = 0.15
)

const (
	recoveryAnswered = "Restate the question directly, then answer with one clear business outcome."
	recoveryMissed   = "Acknowledge you missed the question, answer it directly, and confirm if that resolves the concern."
	recoveryWeak     = "Give a direct answer first, then offer one proof point and ask for confirmation."
)

// keywordOverlapScore measures shared non-stopword tokens between a
// question and its reply, normalized by the smaller word set.
func keywordOverlapScore(a, b string) float64 {
	aWords := make(map[string]struct{})
	for _, w := range contentWords(a) {
		aWords[w] = struct{}{}
	}
	bWords := make(map[string]struct{})
	for _, w := range contentWords(b) {
		bWords[w] = struct{}{}
	}
	if len(aWords) == 0 || len(bWords) == 0 {
		return 0
	}
	matches := 0
	for w := range aWords {
		if _, ok := bWords[w]; ok {
			matches++
		}
	}
	smaller := len(aWords)
	if len(bWords) < smaller {
		smaller = len(bWords)
	}
	if smaller < 1 {
		smaller = 1
	}
	return float64(matches) / float64(smaller)
}

// computeQuestionFollowUps pairs each client question with the next sales
// reply inside the lookahead and classifies the reply quality. Only the
// most recent records are kept.
func computeQuestionFollowUps(utterances []Utterance, deadlineMs int64) []QuestionFollowUp {
	followUps := []QuestionFollowUp{}

	for i, current := range utterances {
		if current.SpeakerRole != RoleClient || !strings.Contains(current.Text, "?") {
			continue
		}

		var reply *Utterance
		end := i + 1 + followUpLookahead
		if end > len(utterances) {
			end = len(utterances)
		}
		for j := i + 1; j < end; j++ {
			turn := utterances[j]
			if turn.SpeakerRole == RoleSales && turn.TStartMs >= current.TEndMs {
				reply = &turn
				break
			}
		}

		tooLate := reply == nil || reply.TStartMs-current.TEndMs > deadlineMs

		status := FollowUpAnswered
		responseText := ""
		recovery := recoveryAnswered
		if reply != nil {
			responseText = truncate(reply.Text, 220)
		}

		if tooLate {
			status = FollowUpMissed
			responseText = ""
			recovery = recoveryMissed
		} else if reply != nil {
			replyWords := len(contentWords(reply.Text))
			overlap := keywordOverlapScore(current.Text, reply.Text)
			deflected := deflectionRe.MatchString(reply.Text)
			if replyWords < weakReplyWords || overlap < weakOverlapFloor || deflected {
				status = FollowUpWeak
				recovery = recoveryWeak
			}
		}

		followUps = append(followUps, QuestionFollowUp{
			QuestionID:        makeID("qfollow", current.ID, len(followUps)+1),
			QuestionText:      truncate(current.Text, 220),
			AskedAtMs:         current.TStartMs,
			Status:            status,
			ResponseText:      responseText,
			SuggestedRecovery: recovery,
		})
	}

	if len(followUps) > followUpKeep {
		followUps = followUps[len(followUps)-followUpKeep:]
	}
	return followUps
}
