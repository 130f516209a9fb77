package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

func testRunner(t *testing.T, classifier Classifier, llm Summarizer) *Runner {
	t.Helper()
	r, err := NewRunner(DefaultConfig(), classifier, llm, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func goodSummaryStub() *stubSummarizer {
	return &stubSummarizer{response: `{"summary":"Short call.","topics":["greeting"],"resolution_status":"resolved","quality_score":8}`}
}

func twoSpeakerInput() Input {
	return Input{
		CallID:   "call-100",
		Language: "en",
		Words: []entities.Word{
			word("Hello", 0.0, 0.5, 0.9),
			word("there", 0.5, 0.9, 0.85),
			word("Hi", 1.6, 1.9, 0.92),
		},
		Turns: []entities.DiarizationTurn{
			turn("SPEAKER_00", 0.0, 1.0),
			turn("SPEAKER_01", 1.5, 2.0),
		},
	}
}

func TestRun_HappyPath(t *testing.T) {
	r := testRunner(t, &stubClassifier{}, goodSummaryStub())

	report, err := r.Run(context.Background(), twoSpeakerInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Degraded {
		t.Fatalf("unexpected degradation: %v", report.DegradedReasons)
	}
	if len(report.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(report.Utterances))
	}
	if report.Utterances[0].Utterance.Text != "Hello there" {
		t.Errorf("first utterance = %q", report.Utterances[0].Utterance.Text)
	}
	if report.Summary == nil || report.Summary.ResolutionStatus != entities.ResolutionResolved {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Duration != 1.9 {
		t.Errorf("duration = %f, expected 1.9", report.Duration)
	}
}

func TestRun_NoDiarizationDegrades(t *testing.T) {
	r := testRunner(t, &stubClassifier{}, goodSummaryStub())

	in := twoSpeakerInput()
	in.Turns = nil

	report, err := r.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Degraded {
		t.Fatal("expected degraded report without diarization")
	}
	if !hasReason(report, entities.ReasonDiarizationFailed) {
		t.Fatalf("reasons = %v", report.DegradedReasons)
	}
	for _, au := range report.Utterances {
		if au.Utterance.SpeakerID != entities.SpeakerUnassigned {
			t.Fatalf("speaker = %s without diarization", au.Utterance.SpeakerID)
		}
	}
	if len(report.Speakers) != 0 {
		t.Fatalf("expected no speaker profiles, got %d", len(report.Speakers))
	}
}

func TestRun_SummaryFailureDegrades(t *testing.T) {
	r := testRunner(t, &stubClassifier{}, &stubSummarizer{err: errors.New("upstream down")})

	report, err := r.Run(context.Background(), twoSpeakerInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Degraded || report.Summary != nil {
		t.Fatalf("degraded=%v summary=%+v", report.Degraded, report.Summary)
	}
	if !hasReason(report, entities.ReasonSummaryFailed) {
		t.Fatalf("reasons = %v", report.DegradedReasons)
	}
	// timeline and sentiment survive the summary failure
	if len(report.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(report.Utterances))
	}
}

func TestRun_SentimentFailureDegrades(t *testing.T) {
	failing := &stubClassifier{classFn: func(string) (entities.SentimentResult, error) {
		return entities.SentimentResult{}, errors.New("classifier down")
	}}
	r := testRunner(t, failing, goodSummaryStub())

	report, err := r.Run(context.Background(), twoSpeakerInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasReason(report, entities.ReasonSentimentDegraded) {
		t.Fatalf("reasons = %v", report.DegradedReasons)
	}
	for _, au := range report.Utterances {
		if au.Sentiment != entities.FallbackSentiment() {
			t.Fatalf("sentiment = %+v, expected fallback", au.Sentiment)
		}
	}
	// the summary still lands
	if report.Summary == nil {
		t.Fatal("summary missing")
	}
}

func TestRun_EmptyCall(t *testing.T) {
	r := testRunner(t, &stubClassifier{}, goodSummaryStub())

	report, err := r.Run(context.Background(), Input{CallID: "call-101", Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Degraded {
		t.Fatalf("silence must not degrade: %v", report.DegradedReasons)
	}
	if report.Duration != 0 {
		t.Errorf("duration = %f, expected 0", report.Duration)
	}
	if report.Summary == nil || report.Summary.Summary == "" {
		t.Fatal("expected minimal summary for empty call")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	r := testRunner(t, &stubClassifier{}, goodSummaryStub())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx, twoSpeakerInput()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidConfigRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SentimentWorkers = 0

	_, err := NewRunner(cfg, &stubClassifier{}, goodSummaryStub(), nil)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
	if ce.Field != "sentiment_workers" {
		t.Errorf("field = %s", ce.Field)
	}
}

func TestRun_Deterministic(t *testing.T) {
	r := testRunner(t, &stubClassifier{}, goodSummaryStub())

	first, err := r.Run(context.Background(), twoSpeakerInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.Run(context.Background(), twoSpeakerInput())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(again.Utterances) != len(first.Utterances) {
			t.Fatalf("run %d: utterance count changed", i)
		}
		for j := range first.Utterances {
			a, b := first.Utterances[j].Utterance, again.Utterances[j].Utterance
			if a.SpeakerID != b.SpeakerID || a.Text != b.Text || a.Start != b.Start {
				t.Fatalf("run %d: utterance %d differs: %+v vs %+v", i, j, a, b)
			}
		}
	}
}

func hasReason(report *entities.CallReport, reason string) bool {
	for _, r := range report.DegradedReasons {
		if r == reason {
			return true
		}
	}
	return false
}
