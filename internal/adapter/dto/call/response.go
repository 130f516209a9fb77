package call

import (
	"encoding/json"
	"time"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// SubmitCallResponse acknowledges an accepted analysis job
type SubmitCallResponse struct {
	CallID string `json:"call_id"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse reports where a call sits in the pipeline
type JobStatusResponse struct {
	CallID     string  `json:"call_id"`
	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	RetryCount int     `json:"retry_count"`
	LastError  *string `json:"last_error,omitempty"`
}

// CallRecordResponse is the analyzed call served to dashboards. Speaker
// profiles, summary and degradation reasons are stored as JSON documents and
// passed through verbatim.
type CallRecordResponse struct {
	CallID           string          `json:"call_id"`
	Duration         float64         `json:"duration"`
	Language         string          `json:"language,omitempty"`
	OverallSentiment string          `json:"overall_sentiment"`
	Speakers         json.RawMessage `json:"speakers,omitempty"`
	Summary          json.RawMessage `json:"summary,omitempty"`
	Degraded         bool            `json:"degraded"`
	DegradedReasons  json.RawMessage `json:"degraded_reasons,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// UtteranceResponse is one speaker-attributed, sentiment-annotated utterance
type UtteranceResponse struct {
	Position            int     `json:"position"`
	SpeakerID           string  `json:"speaker_id"`
	Text                string  `json:"text"`
	Start               float64 `json:"start"`
	End                 float64 `json:"end"`
	Confidence          float64 `json:"confidence"`
	SentimentLabel      string  `json:"sentiment_label"`
	SentimentConfidence float64 `json:"sentiment_confidence"`
	Language            string  `json:"language,omitempty"`
}

// TranscriptResponse is the full annotated timeline of a call
type TranscriptResponse struct {
	CallID     string              `json:"call_id"`
	Utterances []UtteranceResponse `json:"utterances"`
}

// FromCallRecord converts a stored record to its response shape
func FromCallRecord(record *entities.CallRecord) CallRecordResponse {
	return CallRecordResponse{
		CallID:           record.CallID,
		Duration:         record.Duration,
		Language:         record.Language,
		OverallSentiment: record.OverallSentiment,
		Speakers:         json.RawMessage(record.SpeakerProfiles),
		Summary:          json.RawMessage(record.Summary),
		Degraded:         record.Degraded,
		DegradedReasons:  json.RawMessage(record.DegradedReasons),
		CreatedAt:        record.CreatedAt,
	}
}

// FromCallUtterances converts stored utterances to the transcript shape
func FromCallUtterances(callID string, utterances []entities.CallUtterance) TranscriptResponse {
	out := TranscriptResponse{
		CallID:     callID,
		Utterances: make([]UtteranceResponse, len(utterances)),
	}
	for i, u := range utterances {
		out.Utterances[i] = UtteranceResponse{
			Position:            u.Position,
			SpeakerID:           u.SpeakerID,
			Text:                u.Text,
			Start:               u.StartTime,
			End:                 u.EndTime,
			Confidence:          u.Confidence,
			SentimentLabel:      u.SentimentLabel,
			SentimentConfidence: u.SentimentConfidence,
			Language:            u.Language,
		}
	}
	return out
}
