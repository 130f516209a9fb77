package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/callsight-team/callsight/pkg/config"
)

func TestClassifyText_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sentiment" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req ClassifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if req.LanguageHint != "en" {
			t.Fatalf("unexpected hint %s", req.LanguageHint)
		}
		json.NewEncoder(w).Encode(SentimentPrediction{Label: "negative", Confidence: 0.91, Language: "en"})
	}))
	defer ts.Close()

	client := NewSentimentClient(&config.SentimentConfig{BaseURL: ts.URL, APIKey: "test-key"})

	pred, err := client.ClassifyText(context.Background(), "this is unacceptable", "en")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if pred.Label != "negative" || pred.Confidence != 0.91 {
		t.Fatalf("unexpected prediction %+v", pred)
	}
}

func TestClassifyText_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewSentimentClient(&config.SentimentConfig{BaseURL: ts.URL})

	if _, err := client.ClassifyText(context.Background(), "hello", ""); err == nil {
		t.Fatal("expected error on 502")
	}
}
