package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/callsight-team/callsight/pkg/config"
)

// SentimentClient is a minimal client for the sentiment classification service
type SentimentClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSentimentClient creates a sentiment client from the provided config
func NewSentimentClient(cfg *config.SentimentConfig) *SentimentClient {
	timeout := 15 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	c := &SentimentClient{client: &http.Client{Timeout: timeout}}
	if cfg != nil {
		c.apiKey = cfg.APIKey
		c.baseURL = cfg.BaseURL
	}
	return c
}

// ClassifyRequest is the shape for classification requests
type ClassifyRequest struct {
	Text         string `json:"text"`
	LanguageHint string `json:"language_hint,omitempty"`
}

// SentimentPrediction is the classification response shape
type SentimentPrediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// ClassifyText classifies the sentiment of one utterance's text
func (s *SentimentClient) ClassifyText(ctx context.Context, text, languageHint string) (SentimentPrediction, error) {
	var pred SentimentPrediction

	if s.baseURL == "" {
		return pred, fmt.Errorf("sentiment base URL not configured")
	}

	b, err := json.Marshal(ClassifyRequest{Text: text, LanguageHint: languageHint})
	if err != nil {
		return pred, err
	}

	endpoint := s.baseURL + "/v1/sentiment"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return pred, err
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return pred, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return pred, fmt.Errorf("sentiment service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return pred, err
	}
	return pred, nil
}
