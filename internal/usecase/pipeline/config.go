package pipeline

import "time"

// Config holds the tunable thresholds of the alignment and aggregation
// pipeline. All durations expressed as float64 are seconds on the call's
// timeline.
type Config struct {
	// OverlapEpsilon is the boundary-jitter tolerance used when comparing
	// overlap durations for ties.
	OverlapEpsilon float64

	// GapBridge is the maximum temporal distance at which a word falling in
	// a diarization gap is still attached to the nearest turn. Beyond it the
	// word is marked UNASSIGNED.
	GapBridge float64

	// PauseThreshold splits two same-speaker words into separate utterances
	// when the silence between them exceeds it.
	PauseThreshold float64

	// MergeWindow is the maximum gap at which an UNASSIGNED word is folded
	// into the neighbouring utterance instead of emitted on its own.
	MergeWindow float64

	// MixedShareCutoff is the minimum dominant-sentiment share each of the
	// agent and customer sides must hold for the call to be rated "mixed".
	MixedShareCutoff float64

	// TopicsCap is the maximum number of topics accepted from the
	// summarization collaborator.
	TopicsCap int

	// SentimentWorkers bounds the concurrent sentiment classification
	// requests per run.
	SentimentWorkers int

	// SummaryTimeout bounds the single summarization call per run.
	SummaryTimeout time.Duration
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		OverlapEpsilon:   0.05,
		GapBridge:        1.0,
		PauseThreshold:   2.0,
		MergeWindow:      0.3,
		MixedShareCutoff: 0.2,
		TopicsCap:        10,
		SentimentWorkers: 4,
		SummaryTimeout:   60 * time.Second,
	}
}

// Validate rejects threshold values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.OverlapEpsilon < 0 {
		return &ConfigurationError{Field: "overlap_epsilon", Reason: "must not be negative"}
	}
	if c.GapBridge < 0 {
		return &ConfigurationError{Field: "gap_bridge", Reason: "must not be negative"}
	}
	if c.PauseThreshold <= 0 {
		return &ConfigurationError{Field: "pause_threshold", Reason: "must be positive"}
	}
	if c.MergeWindow < 0 {
		return &ConfigurationError{Field: "merge_window", Reason: "must not be negative"}
	}
	if c.MixedShareCutoff <= 0 || c.MixedShareCutoff >= 1 {
		return &ConfigurationError{Field: "mixed_share_cutoff", Reason: "must be within (0, 1)"}
	}
	if c.TopicsCap <= 0 {
		return &ConfigurationError{Field: "topics_cap", Reason: "must be positive"}
	}
	if c.SentimentWorkers <= 0 {
		return &ConfigurationError{Field: "sentiment_workers", Reason: "must be positive"}
	}
	if c.SummaryTimeout <= 0 {
		return &ConfigurationError{Field: "summary_timeout", Reason: "must be positive"}
	}
	return nil
}
