package analysis

// lexicalStats are hit counts against the fixed sentiment word sets plus
// the derived raw valence.
type lexicalStats struct {
	Positive  int
	Negative  int
	Certainty int
	Hedge     int
	Valence   float64
}

// sentimentStats tallies sentiment/certainty/hedge hits over text. The
// valence denominator is floored at 3 so a single word never saturates it.
func sentimentStats(text string) lexicalStats {
	var s lexicalStats
	for _, token := range toWords(text) {
		if _, ok := positiveWords[token]; ok {
			s.Positive++
		}
		if _, ok := negativeWords[token]; ok {
			s.Negative++
		}
		if _, ok := certaintyWords[token]; ok {
			s.Certainty++
		}
		if _, ok := hedgeWords[token]; ok {
			s.Hedge++
		}
	}
	denom := s.Positive + s.Negative
	if denom < 3 {
		denom = 3
	}
	s.Valence = float64(s.Positive-s.Negative) / float64(denom)
	return s
}

// toneSignals is the fused tone estimate for the client side of the call.
type toneSignals struct {
	GatePassed        bool
	ProsodyFrames     int
	ToneConfidence    float64
	Energy            float64
	Stress            float64
	Certainty         float64
	ConfidencePenalty float64
}

// prosodyGateInput carries the quality measurements the fusion gate checks.
type prosodyGateInput struct {
	Frames        int
	AvgEnergy     float64
	AvgPauseRatio float64
	AvgVoicedMs   float64
	AvgSnrDb      float64
	AvgConfidence float64
}

// Fusion gate thresholds. Prosodic features only engage when the audio was
// good enough to trust them.
const (
	minProsodyFrames     = 2
	minAvgVoicedMs       = 800.0
	minAvgSnrDb          = 10.0
	minAvgASRConfidence  = 0.55
	failedGateConfidence = 0.5
)

func measureProsody(clientUtterances []Utterance, inWindow []Utterance) prosodyGateInput {
	var in prosodyGateInput
	var sumEnergy, sumPause, sumVoiced, sumSnr float64
	for _, u := range clientUtterances {
		if u.ProsodyEnergy == nil || u.ProsodyPauseRatio == nil {
			continue
		}
		in.Frames++
		sumEnergy += *u.ProsodyEnergy
		sumPause += *u.ProsodyPauseRatio
		if u.ProsodyVoicedMs != nil {
			sumVoiced += *u.ProsodyVoicedMs
		}
		if u.ProsodySnrDb != nil {
			sumSnr += *u.ProsodySnrDb
		}
	}
	frames := in.Frames
	if frames < 1 {
		frames = 1
	}
	in.AvgEnergy = sumEnergy / float64(frames)
	in.AvgPauseRatio = sumPause / float64(frames)
	in.AvgVoicedMs = sumVoiced / float64(frames)
	in.AvgSnrDb = sumSnr / float64(frames)

	var sumConf float64
	for _, u := range inWindow {
		sumConf += u.Confidence
	}
	n := len(inWindow)
	if n < 1 {
		n = 1
	}
	in.AvgConfidence = sumConf / float64(n)
	return in
}

// fuseTone combines prosodic statistics with lexical fallbacks. When the
// quality gate fails, tone falls back to discounted lexical estimates and
// the tone confidence is capped; a nonzero confidence penalty is reported
// so downstream confidences reflect the degraded signal.
func fuseTone(
	prosody prosodyGateInput,
	lex lexicalStats,
	clientTurns int,
	questionCount int,
	exclamationCount int,
	clientWords int,
	riskCount int,
	useHeuristics bool,
) toneSignals {
	lexEnergy := clamp(0.2+float64(questionCount)*0.08+float64(exclamationCount)*0.1+float64(clientWords)/260, 0, 1)
	lexStress := clamp(float64(lex.Negative)*0.1+float64(riskCount)*0.08, 0, 1)
	certDenom := float64(lex.Certainty + lex.Hedge + 2)
	if certDenom < 2 {
		certDenom = 2
	}
	lexCertainty := clamp(float64(lex.Certainty+1)/certDenom, 0, 1)

	gatePassed := useHeuristics &&
		prosody.Frames >= minProsodyFrames &&
		prosody.AvgVoicedMs >= minAvgVoicedMs &&
		prosody.AvgSnrDb >= minAvgSnrDb &&
		prosody.AvgConfidence >= minAvgASRConfidence

	out := toneSignals{GatePassed: gatePassed, ProsodyFrames: prosody.Frames}
	if gatePassed {
		out.ToneConfidence = clamp(0.62+minf(0.30, float64(prosody.Frames)*0.05), 0, 1)
		out.Energy = clamp(prosody.AvgEnergy, 0, 1)
		out.Stress = clamp(
			prosody.AvgPauseRatio*0.45+
				prosody.AvgEnergy*0.35+
				clamp((20-prosody.AvgSnrDb)/20, 0, 1)*0.2,
			0, 1)
		out.Certainty = clamp(
			(1-prosody.AvgPauseRatio)*0.55+
				prosody.AvgEnergy*0.25+
				lexCertainty*0.2,
			0, 1)
		return out
	}

	out.ToneConfidence = clamp(0.2+minf(0.18, float64(clientTurns)*0.02), 0, failedGateConfidence)
	out.Energy = round2(lexEnergy * 0.75)
	out.Stress = round2(lexStress * 0.85)
	out.Certainty = round2(lexCertainty * 0.90)
	if prosody.Frames > 0 {
		// Prosody was present but too poor to trust.
		out.ConfidencePenalty = 0.15
	}
	return out
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
