package analysis

import (
	"context"

	pkgai "github.com/callsight-team/callsight/pkg/ai"

	"github.com/callsight-team/callsight/internal/domain/entities"
	"github.com/callsight-team/callsight/internal/usecase/pipeline"
	"github.com/callsight-team/callsight/pkg/config"
)

// sentimentClassifier adapts the sentiment HTTP client to the pipeline's
// Classifier contract.
type sentimentClassifier struct {
	client *pkgai.SentimentClient
}

// NewSentimentClassifier wraps the sentiment client for the pipeline
func NewSentimentClassifier(client *pkgai.SentimentClient) pipeline.Classifier {
	return &sentimentClassifier{client: client}
}

func (c *sentimentClassifier) Classify(ctx context.Context, text string, languageHint string) (entities.SentimentResult, error) {
	pred, err := c.client.ClassifyText(ctx, text, languageHint)
	if err != nil {
		return entities.SentimentResult{}, err
	}
	return entities.SentimentResult{
		Label:      entities.SentimentLabel(pred.Label),
		Confidence: pred.Confidence,
		Language:   entities.SentimentLanguage(pred.Language),
	}, nil
}

// groqSummarizer adapts the Groq client to the pipeline's Summarizer
// contract.
type groqSummarizer struct {
	client    *pkgai.GroqClient
	topicsCap int
}

// NewGroqSummarizer wraps the Groq client for the pipeline
func NewGroqSummarizer(client *pkgai.GroqClient, topicsCap int) pipeline.Summarizer {
	return &groqSummarizer{client: client, topicsCap: topicsCap}
}

func (g *groqSummarizer) Summarize(ctx context.Context, transcript string, language string) (string, error) {
	return g.client.GenerateCallAnalysis(ctx, transcript, language, g.topicsCap)
}

// PipelineConfig maps the environment-tuned thresholds onto the pipeline's
// own config type.
func PipelineConfig(cfg config.PipelineConfig) pipeline.Config {
	return pipeline.Config{
		OverlapEpsilon:   cfg.OverlapEpsilon,
		GapBridge:        cfg.GapBridge,
		PauseThreshold:   cfg.PauseThreshold,
		MergeWindow:      cfg.MergeWindow,
		MixedShareCutoff: cfg.MixedShareCutoff,
		TopicsCap:        cfg.TopicsCap,
		SentimentWorkers: cfg.SentimentWorkers,
		SummaryTimeout:   cfg.SummaryTimeout,
	}
}
