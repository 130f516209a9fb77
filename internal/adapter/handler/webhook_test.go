package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/callsight-team/callsight/errors"
)

func TestWebhookForwardsPayloadAndSignature(t *testing.T) {
	svc := &stubService{}
	h := NewWebhookHandler(svc, nil)

	body := `{"transcript_id":"tr-1","status":"completed"}`
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/assemblyai", strings.NewReader(body))
	req.Header.Set("x-assemblyai-signature", "deadbeef")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleAssemblyAI(c); err != nil {
		t.Fatalf("HandleAssemblyAI returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if string(svc.gotPayload) != body {
		t.Errorf("service got payload %q, want %q", svc.gotPayload, body)
	}
	if svc.gotSignature != "deadbeef" {
		t.Errorf("service got signature %q, want deadbeef", svc.gotSignature)
	}
}

func TestWebhookFallsBackToAuthorizationHeader(t *testing.T) {
	svc := &stubService{}
	h := NewWebhookHandler(svc, nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/assemblyai", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "secret-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleAssemblyAI(c); err != nil {
		t.Fatalf("HandleAssemblyAI returned error: %v", err)
	}
	if svc.gotSignature != "secret-token" {
		t.Errorf("service got signature %q, want secret-token", svc.gotSignature)
	}
}

func TestWebhookPropagatesServiceError(t *testing.T) {
	svc := &stubService{webhookErr: apperrors.ErrJobNotFound("tr-unknown")}
	h := NewWebhookHandler(svc, nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/assemblyai", strings.NewReader(`{"id":"tr-unknown"}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleAssemblyAI(c); err != nil {
		t.Fatalf("HandleAssemblyAI returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
