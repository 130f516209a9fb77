package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

type stubSummarizer struct {
	response string
	err      error
	delay    time.Duration
	gotCtx   string
}

func (s *stubSummarizer) Summarize(ctx context.Context, transcript, language string) (string, error) {
	s.gotCtx = transcript
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.response, s.err
}

func annotatedFixture() []entities.AnnotatedUtterance {
	return []entities.AnnotatedUtterance{
		{
			Utterance: utterance("SPEAKER_00", "Thanks for calling, how can I help?", 0, 2.5),
			Sentiment: entities.SentimentResult{Label: entities.SentimentNeutral},
		},
		{
			Utterance: utterance("SPEAKER_01", "My invoice is wrong again.", 63, 65),
			Sentiment: entities.SentimentResult{Label: entities.SentimentNegative},
		},
	}
}

func TestBuildContext_Format(t *testing.T) {
	c := NewCallSummarizer(DefaultConfig(), &stubSummarizer{})

	got := c.BuildContext(annotatedFixture())
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "[00:00 SPEAKER_00 (neutral)]: Thanks for calling, how can I help?" {
		t.Errorf("line 1 = %q", lines[0])
	}
	if lines[1] != "[01:03 SPEAKER_01 (negative)]: My invoice is wrong again." {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestSummarize_Success(t *testing.T) {
	stub := &stubSummarizer{response: `{"summary":"Customer disputed an invoice; agent opened a ticket.","topics":["billing","invoice"],"resolution_status":"escalated","quality_score":7.5}`}
	c := NewCallSummarizer(DefaultConfig(), stub)

	summary, err := c.Summarize(context.Background(), annotatedFixture(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ResolutionStatus != entities.ResolutionEscalated {
		t.Errorf("resolution = %s, expected escalated", summary.ResolutionStatus)
	}
	if summary.QualityScore != 7.5 {
		t.Errorf("quality = %f, expected 7.5", summary.QualityScore)
	}
	if len(summary.Topics) != 2 {
		t.Errorf("topics = %v", summary.Topics)
	}
	if !strings.Contains(stub.gotCtx, "SPEAKER_01 (negative)") {
		t.Errorf("transcript context missing annotation: %q", stub.gotCtx)
	}
}

func TestSummarize_MarkdownFencedJSON(t *testing.T) {
	stub := &stubSummarizer{response: "```json\n{\"summary\":\"ok\",\"topics\":[],\"resolution_status\":\"resolved\",\"quality_score\":9}\n```"}
	c := NewCallSummarizer(DefaultConfig(), stub)

	summary, err := c.Summarize(context.Background(), annotatedFixture(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ResolutionStatus != entities.ResolutionResolved {
		t.Errorf("resolution = %s", summary.ResolutionStatus)
	}
}

func TestSummarize_CollaboratorError(t *testing.T) {
	stub := &stubSummarizer{err: errors.New("upstream 503")}
	c := NewCallSummarizer(DefaultConfig(), stub)

	_, err := c.Summarize(context.Background(), annotatedFixture(), "en")
	var cf *CollaboratorFailure
	if !errors.As(err, &cf) {
		t.Fatalf("expected CollaboratorFailure, got %T: %v", err, err)
	}
	if cf.Stage != "summarization" {
		t.Errorf("stage = %s", cf.Stage)
	}
}

func TestSummarize_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SummaryTimeout = 20 * time.Millisecond
	stub := &stubSummarizer{delay: time.Second, response: "{}"}
	c := NewCallSummarizer(cfg, stub)

	_, err := c.Summarize(context.Background(), annotatedFixture(), "en")
	var cf *CollaboratorFailure
	if !errors.As(err, &cf) {
		t.Fatalf("expected CollaboratorFailure, got %T: %v", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestSummarize_SchemaViolations(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"not json", "the call went fine overall"},
		{"empty summary", `{"summary":"","topics":[],"resolution_status":"resolved","quality_score":5}`},
		{"missing status", `{"summary":"ok","topics":[],"quality_score":5}`},
		{"bad status", `{"summary":"ok","topics":[],"resolution_status":"maybe","quality_score":5}`},
		{"score above range", `{"summary":"ok","topics":[],"resolution_status":"resolved","quality_score":11}`},
		{"score below range", `{"summary":"ok","topics":[],"resolution_status":"resolved","quality_score":-1}`},
		{"too many topics", `{"summary":"ok","topics":["a","b","c","d","e","f","g","h","i","j","k"],"resolution_status":"resolved","quality_score":5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCallSummarizer(DefaultConfig(), &stubSummarizer{response: tc.response})
			_, err := c.Summarize(context.Background(), annotatedFixture(), "en")
			var cf *CollaboratorFailure
			if !errors.As(err, &cf) {
				t.Fatalf("expected CollaboratorFailure, got %T: %v", err, err)
			}
		})
	}
}

func TestSummarize_NilTopicsNormalized(t *testing.T) {
	stub := &stubSummarizer{response: `{"summary":"ok","resolution_status":"unknown","quality_score":0}`}
	c := NewCallSummarizer(DefaultConfig(), stub)

	summary, err := c.Summarize(context.Background(), annotatedFixture(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Topics == nil {
		t.Fatal("topics left nil")
	}
}
