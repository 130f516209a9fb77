package pipeline

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// Classifier is the sentiment collaborator contract. Implementations must be
// stateless and safe for concurrent calls.
type Classifier interface {
	Classify(ctx context.Context, text string, languageHint string) (entities.SentimentResult, error)
}

// SentimentAggregator attaches one sentiment result to every utterance and
// computes the per-speaker and overall roll-ups.
type SentimentAggregator struct {
	cfg        Config
	classifier Classifier
	logger     *zap.Logger
}

// NewSentimentAggregator creates an aggregator dispatching to the given
// classifier with bounded concurrency.
func NewSentimentAggregator(cfg Config, classifier Classifier, logger *zap.Logger) *SentimentAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SentimentAggregator{cfg: cfg, classifier: classifier, logger: logger}
}

// Annotate classifies every utterance, dispatching requests concurrently up
// to the configured worker bound and joining before return. A classifier
// failure or empty text yields the neutral zero-confidence fallback so the
// result stays total: exactly one SentimentResult per utterance. The second
// return value reports whether any utterance fell back.
func (s *SentimentAggregator) Annotate(ctx context.Context, utterances []entities.AlignedUtterance, languageHint string) ([]entities.SentimentResult, bool) {
	results := make([]entities.SentimentResult, len(utterances))
	var degraded atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SentimentWorkers)
	for i, utt := range utterances {
		g.Go(func() error {
			if utt.Text == "" || gctx.Err() != nil {
				results[i] = entities.FallbackSentiment()
				if utt.Text != "" {
					degraded.Store(true)
				}
				return nil
			}
			res, err := s.classifier.Classify(gctx, utt.Text, languageHint)
			if err != nil || !validLabel(res.Label) {
				if err != nil {
					s.logger.Warn("sentiment classification fell back",
						zap.String("speaker_id", utt.SpeakerID),
						zap.Float64("start", utt.Start),
						zap.Error(err),
					)
				}
				results[i] = entities.FallbackSentiment()
				degraded.Store(true)
				return nil
			}
			if res.Language == "" {
				res.Language = entities.LanguageUnknown
			}
			results[i] = res
			return nil
		})
	}
	// Workers never return errors; the join barrier is what matters.
	_ = g.Wait()

	return results, degraded.Load()
}

func validLabel(l entities.SentimentLabel) bool {
	switch l {
	case entities.SentimentPositive, entities.SentimentNeutral, entities.SentimentNegative:
		return true
	}
	return false
}

// SentimentRollup holds the per-speaker profiles (roles unset at this
// stage) and the overall label distribution including UNASSIGNED speech.
type SentimentRollup struct {
	PerSpeaker map[string]entities.SpeakerProfile
	Overall    map[entities.SentimentLabel]int
}

// RollupSentiment counts utterances per label for each speaker and for the
// call as a whole. UNASSIGNED utterances count only toward the overall
// distribution.
func RollupSentiment(utterances []entities.AlignedUtterance, results []entities.SentimentResult) SentimentRollup {
	rollup := SentimentRollup{
		PerSpeaker: make(map[string]entities.SpeakerProfile),
		Overall:    make(map[entities.SentimentLabel]int),
	}
	for i, utt := range utterances {
		label := results[i].Label
		rollup.Overall[label]++
		if utt.SpeakerID == entities.SpeakerUnassigned {
			continue
		}
		profile, ok := rollup.PerSpeaker[utt.SpeakerID]
		if !ok {
			profile = entities.SpeakerProfile{
				SpeakerID:             utt.SpeakerID,
				Role:                  entities.RoleUnknown,
				SentimentDistribution: make(map[entities.SentimentLabel]int),
			}
		}
		profile.SentimentDistribution[label]++
		profile.UtteranceCount++
		rollup.PerSpeaker[utt.SpeakerID] = profile
	}
	for id, profile := range rollup.PerSpeaker {
		profile.DominantSentiment = entities.DominantLabel(profile.SentimentDistribution)
		rollup.PerSpeaker[id] = profile
	}
	return rollup
}
