package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// Summarizer is the summarization collaborator contract: invoked once per
// run with the full transcript context, returning the raw structured
// response as a JSON string.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, language string) (string, error)
}

// CallSummarizer builds the ordered, speaker-labeled, sentiment-annotated
// transcript context, invokes the LLM collaborator under the configured
// deadline, and validates its response against the expected schema.
type CallSummarizer struct {
	cfg      Config
	llm      Summarizer
	validate *validator.Validate
}

// NewCallSummarizer creates a summarizer interface around the collaborator.
func NewCallSummarizer(cfg Config, llm Summarizer) *CallSummarizer {
	return &CallSummarizer{cfg: cfg, llm: llm, validate: validator.New()}
}

// BuildContext renders one line per utterance in timeline order:
// [MM:SS SPEAKER (sentiment)]: text
func (c *CallSummarizer) BuildContext(utterances []entities.AnnotatedUtterance) string {
	var sb strings.Builder
	for _, au := range utterances {
		minutes := int(au.Utterance.Start) / 60
		seconds := int(au.Utterance.Start) % 60
		sb.WriteString(fmt.Sprintf("[%02d:%02d %s (%s)]: %s\n",
			minutes, seconds, au.Utterance.SpeakerID, au.Sentiment.Label, au.Utterance.Text))
	}
	return sb.String()
}

// Summarize runs the single summarization call for the transcript. The call
// is bounded by the configured timeout; failures, timeouts and
// schema-invalid responses all surface as a CollaboratorFailure.
func (c *CallSummarizer) Summarize(ctx context.Context, utterances []entities.AnnotatedUtterance, language string) (*entities.CallSummary, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.SummaryTimeout)
	defer cancel()

	raw, err := c.llm.Summarize(callCtx, c.BuildContext(utterances), language)
	if err != nil {
		if callCtx.Err() != nil {
			err = fmt.Errorf("%w: %v", callCtx.Err(), err)
		}
		return nil, &CollaboratorFailure{Stage: "summarization", Err: err}
	}

	summary, err := c.parseResponse(raw)
	if err != nil {
		return nil, &CollaboratorFailure{Stage: "summarization", Err: err}
	}
	return summary, nil
}

// parseResponse decodes and schema-checks the collaborator's JSON. A
// non-conforming payload is rejected, never coerced into shape.
func (c *CallSummarizer) parseResponse(raw string) (*entities.CallSummary, error) {
	var summary entities.CallSummary
	if err := json.Unmarshal([]byte(extractJSON(raw)), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}
	if err := c.validate.Struct(&summary); err != nil {
		return nil, fmt.Errorf("summary response failed schema validation: %w", err)
	}
	if !entities.ValidResolutionStatus(summary.ResolutionStatus) {
		return nil, fmt.Errorf("invalid resolution_status %q", summary.ResolutionStatus)
	}
	if len(summary.Topics) > c.cfg.TopicsCap {
		return nil, fmt.Errorf("topics exceed cap: %d > %d", len(summary.Topics), c.cfg.TopicsCap)
	}
	if summary.Topics == nil {
		summary.Topics = make([]string, 0)
	}
	return &summary, nil
}

// extractJSON strips markdown code fences the LLM may wrap its JSON in.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
