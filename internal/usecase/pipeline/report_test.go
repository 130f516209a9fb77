package pipeline

import (
	"strings"
	"testing"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

func profileWith(speaker string, role entities.SpeakerRole, dist map[entities.SentimentLabel]int) entities.SpeakerProfile {
	count := 0
	for _, n := range dist {
		count += n
	}
	return entities.SpeakerProfile{
		SpeakerID:             speaker,
		Role:                  role,
		SentimentDistribution: dist,
		DominantSentiment:     entities.DominantLabel(dist),
		UtteranceCount:        count,
	}
}

func annotatedFor(speaker string, labels ...entities.SentimentLabel) []entities.AnnotatedUtterance {
	out := make([]entities.AnnotatedUtterance, len(labels))
	for i, l := range labels {
		out[i] = entities.AnnotatedUtterance{
			Utterance: utterance(speaker, "text", float64(i), float64(i)+0.5),
			Sentiment: entities.SentimentResult{Label: l},
		}
	}
	return out
}

func TestBuild_MixedOverallSentiment(t *testing.T) {
	b := NewReportBuilder(DefaultConfig())

	agentDist := map[entities.SentimentLabel]int{
		entities.SentimentPositive: 6,
		entities.SentimentNeutral:  3,
		entities.SentimentNegative: 1,
	}
	customerDist := map[entities.SentimentLabel]int{
		entities.SentimentPositive: 2,
		entities.SentimentNeutral:  1,
		entities.SentimentNegative: 7,
	}

	var utts []entities.AnnotatedUtterance
	utts = append(utts, annotatedFor("SPEAKER_00",
		repeatLabels(entities.SentimentPositive, 6, entities.SentimentNeutral, 3, entities.SentimentNegative, 1)...)...)
	utts = append(utts, annotatedFor("SPEAKER_01",
		repeatLabels(entities.SentimentPositive, 2, entities.SentimentNeutral, 1, entities.SentimentNegative, 7)...)...)

	rollup := SentimentRollup{
		PerSpeaker: map[string]entities.SpeakerProfile{
			"SPEAKER_00": profileWith("SPEAKER_00", entities.RoleUnknown, agentDist),
			"SPEAKER_01": profileWith("SPEAKER_01", entities.RoleUnknown, customerDist),
		},
		Overall: map[entities.SentimentLabel]int{
			entities.SentimentPositive: 8,
			entities.SentimentNeutral:  4,
			entities.SentimentNegative: 8,
		},
	}
	hints := map[string]entities.SpeakerRole{
		"SPEAKER_00": entities.RoleAgent,
		"SPEAKER_01": entities.RoleCustomer,
	}

	report, err := b.Build("call-1", "en", utts, rollup, nil, hints, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Speakers["SPEAKER_00"].DominantSentiment != entities.SentimentPositive {
		t.Errorf("agent dominant = %s, expected positive", report.Speakers["SPEAKER_00"].DominantSentiment)
	}
	if report.Speakers["SPEAKER_01"].DominantSentiment != entities.SentimentNegative {
		t.Errorf("customer dominant = %s, expected negative", report.Speakers["SPEAKER_01"].DominantSentiment)
	}
	if report.OverallSentiment != entities.CallSentimentMixed {
		t.Fatalf("overall = %s, expected mixed", report.OverallSentiment)
	}
}

func repeatLabels(pairs ...interface{}) []entities.SentimentLabel {
	var out []entities.SentimentLabel
	for i := 0; i < len(pairs); i += 2 {
		label := pairs[i].(entities.SentimentLabel)
		for j := 0; j < pairs[i+1].(int); j++ {
			out = append(out, label)
		}
	}
	return out
}

func TestBuild_AgreementIsNotMixed(t *testing.T) {
	b := NewReportBuilder(DefaultConfig())

	dist := map[entities.SentimentLabel]int{entities.SentimentPositive: 3}
	utts := append(
		annotatedFor("SPEAKER_00", entities.SentimentPositive, entities.SentimentPositive, entities.SentimentPositive),
		annotatedFor("SPEAKER_01", entities.SentimentPositive, entities.SentimentPositive, entities.SentimentPositive)...,
	)
	rollup := SentimentRollup{
		PerSpeaker: map[string]entities.SpeakerProfile{
			"SPEAKER_00": profileWith("SPEAKER_00", entities.RoleUnknown, dist),
			"SPEAKER_01": profileWith("SPEAKER_01", entities.RoleUnknown, map[entities.SentimentLabel]int{entities.SentimentPositive: 3}),
		},
		Overall: map[entities.SentimentLabel]int{entities.SentimentPositive: 6},
	}
	hints := map[string]entities.SpeakerRole{
		"SPEAKER_00": entities.RoleAgent,
		"SPEAKER_01": entities.RoleCustomer,
	}

	report, err := b.Build("call-2", "en", utts, rollup, nil, hints, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OverallSentiment != entities.CallSentimentPositive {
		t.Fatalf("overall = %s, expected positive", report.OverallSentiment)
	}
}

func TestBuild_RoleHeuristicTwoSpeakers(t *testing.T) {
	b := NewReportBuilder(DefaultConfig())

	// SPEAKER_00 asks short questions, SPEAKER_01 answers at length.
	utts := []entities.AnnotatedUtterance{
		{Utterance: entities.AlignedUtterance{SpeakerID: "SPEAKER_00", Start: 0, End: 1, Text: "How can I help you today?"}},
		{Utterance: entities.AlignedUtterance{SpeakerID: "SPEAKER_01", Start: 1, End: 8, Text: "Well, I ordered a router two weeks ago and it still has not arrived."}},
		{Utterance: entities.AlignedUtterance{SpeakerID: "SPEAKER_00", Start: 8, End: 9.5, Text: "Could you give me the order number?"}},
		{Utterance: entities.AlignedUtterance{SpeakerID: "SPEAKER_01", Start: 9.5, End: 15, Text: "Sure, it is nine nine three one, placed on the fifth."}},
	}
	rollup := SentimentRollup{
		PerSpeaker: map[string]entities.SpeakerProfile{
			"SPEAKER_00": profileWith("SPEAKER_00", entities.RoleUnknown, map[entities.SentimentLabel]int{entities.SentimentNeutral: 2}),
			"SPEAKER_01": profileWith("SPEAKER_01", entities.RoleUnknown, map[entities.SentimentLabel]int{entities.SentimentNeutral: 2}),
		},
		Overall: map[entities.SentimentLabel]int{entities.SentimentNeutral: 4},
	}

	report, err := b.Build("call-3", "en", utts, rollup, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := report.Speakers["SPEAKER_00"].Role; got != entities.RoleAgent {
		t.Errorf("SPEAKER_00 role = %s, expected agent", got)
	}
	if got := report.Speakers["SPEAKER_01"].Role; got != entities.RoleCustomer {
		t.Errorf("SPEAKER_01 role = %s, expected customer", got)
	}
}

func TestBuild_UndecidableRolesStayUnknown(t *testing.T) {
	b := NewReportBuilder(DefaultConfig())

	// Symmetric speech: same durations, same question counts.
	utts := []entities.AnnotatedUtterance{
		{Utterance: entities.AlignedUtterance{SpeakerID: "SPEAKER_00", Start: 0, End: 2, Text: "Hello?"}},
		{Utterance: entities.AlignedUtterance{SpeakerID: "SPEAKER_01", Start: 2, End: 4, Text: "Hello?"}},
	}
	rollup := SentimentRollup{
		PerSpeaker: map[string]entities.SpeakerProfile{
			"SPEAKER_00": profileWith("SPEAKER_00", entities.RoleUnknown, map[entities.SentimentLabel]int{entities.SentimentNeutral: 1}),
			"SPEAKER_01": profileWith("SPEAKER_01", entities.RoleUnknown, map[entities.SentimentLabel]int{entities.SentimentNeutral: 1}),
		},
		Overall: map[entities.SentimentLabel]int{entities.SentimentNeutral: 2},
	}

	report, err := b.Build("call-4", "en", utts, rollup, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for id, p := range report.Speakers {
		if p.Role != entities.RoleUnknown {
			t.Errorf("%s role = %s, expected unknown", id, p.Role)
		}
	}
}

func TestBuild_DurationIsMaxUtteranceEnd(t *testing.T) {
	b := NewReportBuilder(DefaultConfig())

	utts := annotatedFor("SPEAKER_00", entities.SentimentNeutral, entities.SentimentNeutral)
	utts[1].Utterance.End = 42.5
	rollup := SentimentRollup{
		PerSpeaker: map[string]entities.SpeakerProfile{
			"SPEAKER_00": profileWith("SPEAKER_00", entities.RoleUnknown, map[entities.SentimentLabel]int{entities.SentimentNeutral: 2}),
		},
		Overall: map[entities.SentimentLabel]int{entities.SentimentNeutral: 2},
	}

	report, err := b.Build("call-5", "en", utts, rollup, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Duration != 42.5 {
		t.Errorf("duration = %f, expected 42.5", report.Duration)
	}
}

func TestBuild_InvariantViolationRejected(t *testing.T) {
	b := NewReportBuilder(DefaultConfig())

	utts := annotatedFor("SPEAKER_00", entities.SentimentNeutral)
	rollup := SentimentRollup{
		PerSpeaker: map[string]entities.SpeakerProfile{},
		Overall:    map[entities.SentimentLabel]int{entities.SentimentNeutral: 1},
	}

	_, err := b.Build("call-6", "en", utts, rollup, nil, nil, nil)
	if err == nil {
		t.Fatal("expected invariant error for missing profile")
	}
	if !strings.Contains(err.Error(), "no profile") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuild_DegradedFlag(t *testing.T) {
	b := NewReportBuilder(DefaultConfig())

	rollup := SentimentRollup{
		PerSpeaker: map[string]entities.SpeakerProfile{},
		Overall:    map[entities.SentimentLabel]int{},
	}
	report, err := b.Build("call-7", "en", nil, rollup, nil, nil, []string{entities.ReasonSummaryFailed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Degraded {
		t.Fatal("expected degraded flag")
	}
	if len(report.DegradedReasons) != 1 || report.DegradedReasons[0] != entities.ReasonSummaryFailed {
		t.Fatalf("reasons = %v", report.DegradedReasons)
	}
}
