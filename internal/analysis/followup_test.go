package analysis

import "testing"

func utter(id string, start, end int64, role SpeakerRole, text string) Utterance {
	return Utterance{
		ID:          id,
		TStartMs:    start,
		TEndMs:      end,
		SpeakerRole: role,
		Text:        text,
		Confidence:  0.9,
		Words:       len(toWords(text)),
	}
}

func TestFollowUpAnswered(t *testing.T) {
	utterances := []Utterance{
		utter("q1", 10_000, 12_000, RoleClient, "How does pricing scale for our team size?"),
		utter("a1", 12_500, 16_000, RoleSales, "Pricing scales per seat, and your team size lands in our mid tier with volume discounts."),
	}
	got := computeQuestionFollowUps(utterances, DefaultFollowUpDeadlineMs)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Status != FollowUpAnswered {
		t.Errorf("status = %s, want answered", got[0].Status)
	}
	if got[0].ResponseText == "" {
		t.Errorf("responseText missing for answered question")
	}
	if got[0].SuggestedRecovery != recoveryAnswered {
		t.Errorf("recovery = %q, want %q", got[0].SuggestedRecovery, recoveryAnswered)
	}
}

func TestFollowUpWeakOnDeflection(t *testing.T) {
	utterances := []Utterance{
		utter("q1", 10_000, 12_000, RoleClient, "How does pricing scale for our team size?"),
		utter("a1", 12_500, 14_000, RoleSales, "Let's circle back on that later in the conversation."),
	}
	got := computeQuestionFollowUps(utterances, DefaultFollowUpDeadlineMs)
	if len(got) != 1 || got[0].Status != FollowUpWeak {
		t.Fatalf("got %v, want one weak follow-up", got)
	}
	if got[0].SuggestedRecovery != recoveryWeak {
		t.Errorf("recovery = %q, want %q", got[0].SuggestedRecovery, recoveryWeak)
	}
}

func TestFollowUpWeakOnShortReply(t *testing.T) {
	utterances := []Utterance{
		utter("q1", 10_000, 12_000, RoleClient, "How does pricing scale for our team size?"),
		utter("a1", 12_500, 13_000, RoleSales, "Pricing scales, yes."),
	}
	got := computeQuestionFollowUps(utterances, DefaultFollowUpDeadlineMs)
	if len(got) != 1 || got[0].Status != FollowUpWeak {
		t.Fatalf("got %v, want one weak follow-up", got)
	}
}

func TestFollowUpMissedWithoutReply(t *testing.T) {
	utterances := []Utterance{
		utter("q1", 10_000, 12_000, RoleClient, "How does pricing scale for our team size?"),
		utter("c2", 12_500, 14_000, RoleClient, "We would also need single sign on."),
	}
	got := computeQuestionFollowUps(utterances, DefaultFollowUpDeadlineMs)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Status != FollowUpMissed {
		t.Errorf("status = %s, want missed", got[0].Status)
	}
	if got[0].ResponseText != "" {
		t.Errorf("responseText = %q, want empty for missed question", got[0].ResponseText)
	}
}

func TestFollowUpMissedAfterDeadline(t *testing.T) {
	utterances := []Utterance{
		utter("q1", 10_000, 12_000, RoleClient, "How does pricing scale for our team size?"),
		utter("a1", 40_000, 44_000, RoleSales, "Pricing scales per seat across your team size tiers."),
	}
	got := computeQuestionFollowUps(utterances, DefaultFollowUpDeadlineMs)
	if len(got) != 1 || got[0].Status != FollowUpMissed {
		t.Fatalf("got %v, want one missed follow-up (reply past deadline)", got)
	}
	if got[0].ResponseText != "" {
		t.Errorf("responseText = %q, want empty when reply came too late", got[0].ResponseText)
	}
}

func TestFollowUpKeepsMostRecent(t *testing.T) {
	var utterances []Utterance
	for i := 0; i < 12; i++ {
		start := int64(i) * 10_000
		utterances = append(utterances, utter("q", start, start+2000, RoleClient, "What about rollout phase number "+string(rune('a'+i))+"?"))
	}
	got := computeQuestionFollowUps(utterances, DefaultFollowUpDeadlineMs)
	if len(got) != followUpKeep {
		t.Errorf("len = %d, want %d", len(got), followUpKeep)
	}
}
