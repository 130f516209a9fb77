package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CallSentiment is the call-level sentiment verdict. It is one of the
// sentiment labels, or "mixed" when agent and customer dominants diverge
// with non-trivial share on each side.
type CallSentiment string

const (
	CallSentimentPositive CallSentiment = "positive"
	CallSentimentNeutral  CallSentiment = "neutral"
	CallSentimentNegative CallSentiment = "negative"
	CallSentimentMixed    CallSentiment = "mixed"
)

// Stage-level degradation reason codes attached to degraded call records.
const (
	ReasonDiarizationFailed = "diarization_failed"
	ReasonSentimentDegraded = "sentiment_degraded"
	ReasonSummaryFailed     = "summary_failed"
	ReasonSummaryTimeout    = "summary_timeout"
)

// CallReport is the root aggregate produced by one pipeline run. It is
// owned exclusively by the run that created it and immutable once built.
// On partial collaborator failure it carries Degraded=true plus the reason
// codes for the missing sub-results.
type CallReport struct {
	CallID           string
	Duration         float64
	Utterances       []AnnotatedUtterance
	Speakers         map[string]SpeakerProfile
	OverallSentiment CallSentiment
	Summary          *CallSummary
	Language         string
	Degraded         bool
	DegradedReasons  []string
}

// CallRecord is the persisted form of a CallReport, the artifact served to
// dashboards and downstream consumers.
type CallRecord struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CallID           string          `json:"call_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Duration         float64         `json:"duration" gorm:"not null;default:0"`
	Language         string          `json:"language" gorm:"type:varchar(10)"`
	OverallSentiment string          `json:"overall_sentiment" gorm:"type:varchar(20)"`
	SpeakerProfiles  datatypes.JSON  `json:"speaker_profiles" gorm:"type:jsonb"`
	Summary          datatypes.JSON  `json:"summary,omitempty" gorm:"type:jsonb"`
	Degraded         bool            `json:"degraded" gorm:"not null;default:false"`
	DegradedReasons  datatypes.JSON  `json:"degraded_reasons,omitempty" gorm:"type:jsonb"`
	Utterances       []CallUtterance `json:"utterances,omitempty" gorm:"foreignKey:CallRecordID"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (CallRecord) TableName() string {
	return "call_records"
}
