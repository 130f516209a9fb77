package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// Input carries everything a single analysis run needs: the transcription
// words, the diarization turns, and optional caller-supplied role hints
// keyed by diarization speaker id.
type Input struct {
	CallID    string
	Language  string
	Words     []entities.Word
	Turns     []entities.DiarizationTurn
	RoleHints map[string]entities.SpeakerRole
}

// Runner drives one call through alignment, utterance assembly, sentiment
// annotation, summarization and report assembly. Collaborator failures
// degrade the run instead of aborting it; Run returns an error only on
// context cancellation or an internal invariant breach.
type Runner struct {
	cfg        Config
	aligner    *Aligner
	assembler  *Assembler
	sentiment  *SentimentAggregator
	summarizer *CallSummarizer
	reporter   *ReportBuilder
	logger     *zap.Logger
}

// NewRunner wires the pipeline stages around the two collaborators. The
// configuration is validated up front; an invalid threshold is fatal.
func NewRunner(cfg Config, classifier Classifier, llm Summarizer, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		aligner:    NewAligner(cfg),
		assembler:  NewAssembler(cfg),
		sentiment:  NewSentimentAggregator(cfg, classifier, logger),
		summarizer: NewCallSummarizer(cfg, llm),
		reporter:   NewReportBuilder(cfg),
		logger:     logger,
	}, nil
}

// Run analyzes one call end to end. The same input always yields the same
// timeline; the report is marked degraded with reason codes whenever a
// collaborator stage fell back.
func (r *Runner) Run(ctx context.Context, in Input) (*entities.CallReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reasons []string

	if len(in.Turns) == 0 && len(in.Words) > 0 {
		r.logger.Warn("no diarization turns, attributing all words to a single unassigned speaker",
			zap.String("call_id", in.CallID),
			zap.Int("word_count", len(in.Words)),
		)
		reasons = append(reasons, entities.ReasonDiarizationFailed)
	}

	speakers := r.aligner.Align(in.Words, in.Turns)
	utterances := r.assembler.Assemble(in.Words, speakers)

	if len(utterances) == 0 {
		return r.emptyReport(in, reasons)
	}

	sentiments, fellBack := r.sentiment.Annotate(ctx, utterances, in.Language)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fellBack {
		reasons = append(reasons, entities.ReasonSentimentDegraded)
	}

	annotated := make([]entities.AnnotatedUtterance, len(utterances))
	for i := range utterances {
		annotated[i] = entities.AnnotatedUtterance{
			Utterance: utterances[i],
			Sentiment: sentiments[i],
		}
	}
	rollup := RollupSentiment(utterances, sentiments)

	summary, err := r.summarizer.Summarize(ctx, annotated, in.Language)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		reasons = append(reasons, summaryFailureReason(err))
		r.logger.Warn("summarization failed, emitting degraded record",
			zap.String("call_id", in.CallID),
			zap.Error(err),
		)
	}

	report, err := r.reporter.Build(in.CallID, in.Language, annotated, rollup, summary, in.RoleHints, reasons)
	if err != nil {
		return nil, fmt.Errorf("report invariant violated for call %s: %w", in.CallID, err)
	}
	return report, nil
}

// emptyReport covers calls with no usable speech. The record is complete
// rather than degraded: silence is a valid outcome, not a failure.
func (r *Runner) emptyReport(in Input, reasons []string) (*entities.CallReport, error) {
	summary := &entities.CallSummary{
		Summary:          "No speech was detected in this call.",
		Topics:           make([]string, 0),
		ResolutionStatus: entities.ResolutionUnknown,
		QualityScore:     0,
	}
	rollup := SentimentRollup{
		PerSpeaker: make(map[string]entities.SpeakerProfile),
		Overall:    make(map[entities.SentimentLabel]int),
	}
	return r.reporter.Build(in.CallID, in.Language, nil, rollup, summary, in.RoleHints, reasons)
}

// summaryFailureReason distinguishes a deadline hit from every other
// summarization failure.
func summaryFailureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.ReasonSummaryTimeout
	}
	return entities.ReasonSummaryFailed
}
