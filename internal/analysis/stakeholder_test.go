package analysis

import "testing"

func TestDetectStakeholders(t *testing.T) {
	utterances := []Utterance{
		utter("d1", 0, 5000, RoleClient, "This looks great and very helpful, we love the clear reporting and it works well."),
		utter("m1", 5200, 10_000, RoleClient, "The price is too expensive and the integration risk is a concern for security."),
	}
	utterances[0].Speaker = "Dana"
	utterances[1].Speaker = "Morgan"
	total := utterances[0].Words + utterances[1].Words

	champion, skeptic := detectStakeholders(utterances, total)
	if champion == nil || champion.Speaker != "Dana" {
		t.Fatalf("champion = %+v, want Dana", champion)
	}
	if skeptic == nil || skeptic.Speaker != "Morgan" {
		t.Fatalf("skeptic = %+v, want Morgan", skeptic)
	}
	if champion.Valence <= 0 {
		t.Errorf("champion valence = %v, want positive", champion.Valence)
	}
	if skeptic.Valence >= 0 {
		t.Errorf("skeptic valence = %v, want negative", skeptic.Valence)
	}
	if skeptic.RiskHits < skepticMinRiskHits {
		t.Errorf("skeptic risk hits = %d, want >= %d", skeptic.RiskHits, skepticMinRiskHits)
	}
	if champion.Confidence < 0 || champion.Confidence > 0.95 {
		t.Errorf("champion confidence = %v, out of range", champion.Confidence)
	}
	if len(champion.EvidenceSnippets) == 0 {
		t.Errorf("champion has no evidence snippets")
	}
}

func TestDetectStakeholdersIgnoresUnlabeled(t *testing.T) {
	utterances := []Utterance{
		utter("u1", 0, 5000, RoleClient, "This looks great and very helpful, we love the clear reporting and it works well."),
	}
	champion, skeptic := detectStakeholders(utterances, utterances[0].Words)
	if champion != nil || skeptic != nil {
		t.Errorf("got champion=%v skeptic=%v for unlabeled speakers, want nil", champion, skeptic)
	}
}

func TestDetectStakeholdersWordFloor(t *testing.T) {
	short := utter("s1", 0, 2000, RoleClient, "Love it, great.")
	short.Speaker = "Riley"
	champion, skeptic := detectStakeholders([]Utterance{short}, short.Words)
	if champion != nil || skeptic != nil {
		t.Errorf("speaker below word floor produced signals: champion=%v skeptic=%v", champion, skeptic)
	}
}

func TestBuildEvidenceKeepsLastMatches(t *testing.T) {
	utterances := []Utterance{
		utter("c1", 0, 1000, RoleClient, "First client remark."),
		utter("s1", 1000, 2000, RoleSales, "Sales remark."),
		utter("c2", 2000, 3000, RoleClient, "Second client remark."),
		utter("c3", 3000, 4000, RoleClient, "Third client remark."),
	}
	got := buildEvidence(utterances, func(u Utterance) bool { return u.SpeakerRole == RoleClient }, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].UtteranceID != "c2" || got[1].UtteranceID != "c3" {
		t.Errorf("evidence = [%s, %s], want last two client utterances", got[0].UtteranceID, got[1].UtteranceID)
	}
}
