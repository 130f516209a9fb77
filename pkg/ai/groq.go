package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/callsight-team/callsight/pkg/config"
)

// GroqClient is a minimal client for Groq API calls used for LLM analysis
type GroqClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGroqClient creates a Groq client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("GROQ_API_URL")
		if base == "" {
			base = "https://api.groq.com"
		}
	}

	model := "llama-3.3-70b-versatile"
	if cfg != nil && cfg.Model != "" {
		model = cfg.Model
	}

	return &GroqClient{
		apiKey:  apiKey,
		baseURL: base,
		model:   model,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string      `json:"model,omitempty"`
	Messages    interface{} `json:"messages,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const callAnalysisPrompt = `You are an analyst for call-center conversations. The transcript below is annotated per utterance with the speaker and the detected sentiment.

Return ONLY a JSON object with exactly these fields:
- "summary": a concise paragraph describing what the call was about and how it went (string, required)
- "topics": the main subjects discussed, at most %d entries (array of strings)
- "resolution_status": one of "resolved", "unresolved", "escalated", "unknown"
- "quality_score": overall call quality from 0 to 10 (number)

Respond in the transcript's language (%s). Do not add any text outside the JSON object.

Transcript:
%s`

// GenerateCallAnalysis sends the annotated transcript to Groq and returns the
// assistant content, expected to be the structured analysis JSON.
func (g *GroqClient) GenerateCallAnalysis(ctx context.Context, transcript, language string, topicsCap int) (string, error) {
	prompt := fmt.Sprintf(callAnalysisPrompt, topicsCap, language, transcript)

	reqBody := ChatRequest{
		Model:       g.model,
		Messages:    []map[string]string{{"role": "user", "content": prompt}},
		Temperature: 0.3,
		MaxTokens:   4000,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("groq returned status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from groq")
	}
	return cr.Choices[0].Message.Content, nil
}
