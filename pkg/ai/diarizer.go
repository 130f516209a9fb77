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

// DiarizerClient is a minimal client for the speaker diarization service
type DiarizerClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDiarizerClient creates a diarization client from the provided config
func NewDiarizerClient(cfg *config.DiarizerConfig) *DiarizerClient {
	timeout := 5 * time.Minute
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	c := &DiarizerClient{client: &http.Client{Timeout: timeout}}
	if cfg != nil {
		c.apiKey = cfg.APIKey
		c.baseURL = cfg.BaseURL
	}
	return c
}

// DiarizeRequest is the shape for diarization requests
type DiarizeRequest struct {
	AudioURL    string `json:"audio_url"`
	MinSpeakers int    `json:"min_speakers,omitempty"`
	MaxSpeakers int    `json:"max_speakers,omitempty"`
}

// DiarizedTurn is one speaker turn in the diarization response.
// Timestamps are seconds from the start of the audio.
type DiarizedTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// DiarizeResponse is the diarization service response shape
type DiarizeResponse struct {
	Turns []DiarizedTurn `json:"turns"`
}

// Diarize runs speaker diarization over the audio at the given URL and
// returns the speaker turns in time order.
func (d *DiarizerClient) Diarize(ctx context.Context, audioURL string) ([]DiarizedTurn, error) {
	if d.baseURL == "" {
		return nil, fmt.Errorf("diarizer base URL not configured")
	}

	b, err := json.Marshal(DiarizeRequest{AudioURL: audioURL})
	if err != nil {
		return nil, err
	}

	endpoint := d.baseURL + "/v1/diarize"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("diarizer returned status %d", resp.StatusCode)
	}

	var dr DiarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, err
	}
	return dr.Turns, nil
}
