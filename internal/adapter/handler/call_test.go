package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	apperrors "github.com/callsight-team/callsight/errors"
	"github.com/callsight-team/callsight/internal/domain/entities"
	"github.com/callsight-team/callsight/internal/usecase/analysis"
	pkgvalidator "github.com/callsight-team/callsight/pkg/validator"
)

// stubService implements analysis.Service with canned responses
type stubService struct {
	submitJob     *entities.AnalysisJob
	submitErr     error
	record        *entities.CallRecord
	recordErr     error
	records       []entities.CallRecord
	listErr       error
	webhookErr    error
	gotPayload    []byte
	gotSignature  string
	gotSubmission analysis.SubmitCallInput
}

func (s *stubService) SubmitCall(_ context.Context, in analysis.SubmitCallInput) (*entities.AnalysisJob, error) {
	s.gotSubmission = in
	return s.submitJob, s.submitErr
}

func (s *stubService) GetCallRecord(_ context.Context, _ string) (*entities.CallRecord, error) {
	return s.record, s.recordErr
}

func (s *stubService) ListCallRecords(_ context.Context, _, _ int) ([]entities.CallRecord, error) {
	return s.records, s.listErr
}

func (s *stubService) HandleTranscriptionWebhook(_ context.Context, payload []byte, signature string) error {
	s.gotPayload = payload
	s.gotSignature = signature
	return s.webhookErr
}

func (s *stubService) SubmitToTranscription(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

func (s *stubService) StartWorkerPool(_ context.Context, _ int) error { return nil }
func (s *stubService) StopWorkerPool() error                          { return nil }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = pkgvalidator.New()
	return e
}

func TestSubmitAcceptsValidCall(t *testing.T) {
	job := entities.NewAnalysisJob("call-42", "https://storage.example.com/rec.wav")
	svc := &stubService{submitJob: job}
	h := NewCallHandler(svc, nil)

	body := `{"call_id":"call-42","recording_url":"https://storage.example.com/rec.wav","language":"en"}`
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/calls", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Submit(c); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if svc.gotSubmission.CallID != "call-42" {
		t.Errorf("service got call ID %q, want call-42", svc.gotSubmission.CallID)
	}

	var resp struct {
		Data struct {
			CallID string `json:"call_id"`
			JobID  string `json:"job_id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.CallID != "call-42" {
		t.Errorf("response call_id = %q, want call-42", resp.Data.CallID)
	}
	if resp.Data.Status != string(entities.AnalysisJobStatusPending) {
		t.Errorf("response status = %q, want pending", resp.Data.Status)
	}
}

func TestSubmitRejectsMissingRecordingURL(t *testing.T) {
	h := NewCallHandler(&stubService{}, nil)

	body := `{"call_id":"call-42"}`
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/calls", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Submit(c); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSubmitRejectsDuplicateCall(t *testing.T) {
	svc := &stubService{submitErr: apperrors.ErrCallAlreadyExists("call-42")}
	h := NewCallHandler(svc, nil)

	body := `{"call_id":"call-42","recording_url":"https://storage.example.com/rec.wav"}`
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/calls", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Submit(c); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestGetReturnsCallRecord(t *testing.T) {
	record := &entities.CallRecord{
		ID:               uuid.New(),
		CallID:           "call-42",
		Duration:         75.5,
		OverallSentiment: "positive",
		SpeakerProfiles:  datatypes.JSON(`{"SPEAKER_00":{"speaker_id":"SPEAKER_00"}}`),
	}
	h := NewCallHandler(&stubService{record: record}, nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/call-42", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("call-42")

	if err := h.Get(c); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data struct {
			CallID           string  `json:"call_id"`
			Duration         float64 `json:"duration"`
			OverallSentiment string  `json:"overall_sentiment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.CallID != "call-42" || resp.Data.Duration != 75.5 {
		t.Errorf("unexpected record payload: %+v", resp.Data)
	}
}

func TestGetReportsNotReady(t *testing.T) {
	svc := &stubService{recordErr: apperrors.ErrRecordNotReady("call-42", "analyzing")}
	h := NewCallHandler(svc, nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/call-42", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("call-42")

	if err := h.Get(c); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	var resp struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != "RECORD_NOT_READY" {
		t.Errorf("code = %q, want RECORD_NOT_READY", resp.Code)
	}
	if resp.Details["status"] != "analyzing" {
		t.Errorf("details status = %q, want analyzing", resp.Details["status"])
	}
}

func TestGetReportsUnknownCall(t *testing.T) {
	svc := &stubService{recordErr: apperrors.ErrCallNotFound("missing")}
	h := NewCallHandler(svc, nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.Get(c); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetTranscriptReturnsTimeline(t *testing.T) {
	record := &entities.CallRecord{
		ID:     uuid.New(),
		CallID: "call-42",
		Utterances: []entities.CallUtterance{
			{Position: 0, SpeakerID: "SPEAKER_00", Text: "Hello", StartTime: 0, EndTime: 1.2, SentimentLabel: "neutral"},
			{Position: 1, SpeakerID: "SPEAKER_01", Text: "Hi there", StartTime: 1.5, EndTime: 2.4, SentimentLabel: "positive"},
		},
	}
	h := NewCallHandler(&stubService{record: record}, nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/call-42/transcript", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("call-42")

	if err := h.GetTranscript(c); err != nil {
		t.Fatalf("GetTranscript returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data struct {
			CallID     string `json:"call_id"`
			Utterances []struct {
				SpeakerID string `json:"speaker_id"`
				Text      string `json:"text"`
			} `json:"utterances"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data.Utterances) != 2 {
		t.Fatalf("utterance count = %d, want 2", len(resp.Data.Utterances))
	}
	if resp.Data.Utterances[1].Text != "Hi there" {
		t.Errorf("second utterance text = %q, want %q", resp.Data.Utterances[1].Text, "Hi there")
	}
}

func TestListReturnsRecords(t *testing.T) {
	svc := &stubService{records: []entities.CallRecord{
		{ID: uuid.New(), CallID: "call-1"},
		{ID: uuid.New(), CallID: "call-2"},
	}}
	h := NewCallHandler(svc, nil)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls?page=1&page_size=20", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data struct {
			Data []struct {
				CallID string `json:"call_id"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data.Data) != 2 {
		t.Fatalf("record count = %d, want 2", len(resp.Data.Data))
	}
}
