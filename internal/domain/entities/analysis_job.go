package entities

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnalysisJobStatus represents where a call sits in the processing pipeline
type AnalysisJobStatus string

const (
	AnalysisJobStatusPending         AnalysisJobStatus = "pending"          // Waiting to be submitted for transcription
	AnalysisJobStatusSubmitted       AnalysisJobStatus = "submitted"        // Submitted to the transcription collaborator
	AnalysisJobStatusTranscriptReady AnalysisJobStatus = "transcript_ready" // Word-level transcript fetched, awaiting analysis
	AnalysisJobStatusAnalyzing       AnalysisJobStatus = "analyzing"        // Alignment/sentiment/summary pipeline running
	AnalysisJobStatusCompleted       AnalysisJobStatus = "completed"        // Call record emitted
	AnalysisJobStatusFailed          AnalysisJobStatus = "failed"           // Processing failed
	AnalysisJobStatusRetrying        AnalysisJobStatus = "retrying"         // Retrying after failure
	AnalysisJobStatusCancelled       AnalysisJobStatus = "cancelled"        // Job was cancelled
)

// AnalysisJob tracks one call recording through transcription and analysis
type AnalysisJob struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CallID        string            `json:"call_id" gorm:"type:varchar(255);not null;index"`
	Status        AnalysisJobStatus `json:"status" gorm:"type:varchar(50);not null;index;default:'pending'"`
	ExternalJobID *string           `json:"external_job_id,omitempty" gorm:"type:varchar(255);index"` // transcription collaborator's transcript ID
	RecordingURL  string            `json:"recording_url" gorm:"type:text;not null"`
	CallRecordID  *uuid.UUID        `json:"call_record_id,omitempty" gorm:"type:uuid;index"`

	// Word-level transcript captured from the webhook/poll, consumed by the
	// analysis worker.
	Words datatypes.JSON `json:"words,omitempty" gorm:"type:jsonb"`

	// Processing details
	StartedAt   *time.Time `json:"started_at,omitempty" gorm:"type:timestamp"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"type:timestamp"`
	RetryCount  int        `json:"retry_count" gorm:"type:integer;default:0"`
	MaxRetries  int        `json:"max_retries" gorm:"type:integer;default:3"`
	LastError   *string    `json:"last_error,omitempty" gorm:"type:text"`

	Metadata AnalysisJobMetadata `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AnalysisJobMetadata stores additional per-job details
type AnalysisJobMetadata struct {
	DurationSeconds  float64                `json:"duration_seconds,omitempty"`
	Language         string                 `json:"language,omitempty"`
	SpeakerCount     int                    `json:"speaker_count,omitempty"`
	WordCount        int                    `json:"word_count,omitempty"`
	ProcessingTimeMs int64                  `json:"processing_time_ms,omitempty"`
	RoleHints        map[string]SpeakerRole `json:"role_hints,omitempty"`
	ErrorDetails     map[string]interface{} `json:"error_details,omitempty"`
}

// Scan implements sql.Scanner interface for GORM
func (m *AnalysisJobMetadata) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &m)
}

// Value implements driver.Valuer interface for GORM
func (m AnalysisJobMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// NewAnalysisJob creates a new analysis job for a call recording
func NewAnalysisJob(callID, recordingURL string) *AnalysisJob {
	return &AnalysisJob{
		ID:           uuid.New(),
		CallID:       callID,
		Status:       AnalysisJobStatusPending,
		RecordingURL: recordingURL,
		RetryCount:   0,
		MaxRetries:   3,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// IsRetryable checks if job can be retried
func (j *AnalysisJob) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries && j.Status == AnalysisJobStatusFailed
}

// CanBeSubmitted checks if job is ready to be submitted
func (j *AnalysisJob) CanBeSubmitted() bool {
	return j.Status == AnalysisJobStatusPending || (j.Status == AnalysisJobStatusFailed && j.IsRetryable())
}

// MarkAsSubmitted marks job as submitted to the transcription collaborator
func (j *AnalysisJob) MarkAsSubmitted(externalJobID string) {
	j.Status = AnalysisJobStatusSubmitted
	j.ExternalJobID = &externalJobID
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted marks job as completed with the emitted call record
func (j *AnalysisJob) MarkAsCompleted(callRecordID *uuid.UUID) {
	j.Status = AnalysisJobStatusCompleted
	j.CallRecordID = callRecordID
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed marks job as failed with error message
func (j *AnalysisJob) MarkAsFailed(errMsg string) {
	j.Status = AnalysisJobStatusFailed
	j.LastError = &errMsg
	j.UpdatedAt = time.Now()
}

// IncrementRetry increments retry count and marks for retry
func (j *AnalysisJob) IncrementRetry(errMsg string) {
	j.RetryCount++
	j.Status = AnalysisJobStatusRetrying
	j.LastError = &errMsg
	j.UpdatedAt = time.Now()
}

// TableName specifies the table name for GORM
func (AnalysisJob) TableName() string {
	return "call_analysis_jobs"
}
