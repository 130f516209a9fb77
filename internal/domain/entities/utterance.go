package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SpeakerUnassigned marks words that fell in a diarization gap too wide to
// bridge. They stay in the raw transcript but are excluded from per-speaker
// aggregates.
const SpeakerUnassigned = "UNASSIGNED"

// AlignedUtterance is a contiguous span of speech by one speaker, assembled
// from one or more transcribed words. Start and end are the min word start
// and max word end of its constituents; utterances of the same speaker never
// overlap, cross-speaker overlap marks interruption.
type AlignedUtterance struct {
	SpeakerID       string    `json:"speaker_id"`
	Start           float64   `json:"start"`
	End             float64   `json:"end"`
	Text            string    `json:"text"`
	WordConfidences []float64 `json:"word_confidences"`
	MeanConfidence  float64   `json:"mean_confidence"`
}

// NewAlignedUtterance builds an utterance from its constituent words.
// Words must be non-empty and in time order.
func NewAlignedUtterance(speakerID string, words []Word) AlignedUtterance {
	texts := make([]string, len(words))
	confs := make([]float64, len(words))
	start, end := words[0].Start, words[0].End
	sum := 0.0
	for i, w := range words {
		texts[i] = w.Text
		confs[i] = w.Confidence
		sum += w.Confidence
		if w.Start < start {
			start = w.Start
		}
		if w.End > end {
			end = w.End
		}
	}
	mean := sum / float64(len(words))
	if speakerID == SpeakerUnassigned {
		mean = 0
	}
	return AlignedUtterance{
		SpeakerID:       speakerID,
		Start:           start,
		End:             end,
		Text:            strings.Join(texts, " "),
		WordConfidences: confs,
		MeanConfidence:  mean,
	}
}

// Duration returns the utterance span in seconds.
func (u AlignedUtterance) Duration() float64 {
	return u.End - u.Start
}

// SentimentLabel is the classifier's verdict for one utterance.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// SentimentLanguage is the language the classifier detected in the text.
type SentimentLanguage string

const (
	LanguageEnglish SentimentLanguage = "en"
	LanguageArabic  SentimentLanguage = "ar"
	LanguageMixed   SentimentLanguage = "mixed"
	LanguageUnknown SentimentLanguage = "unknown"
)

// SentimentResult is the classifier output attached to one utterance.
// Every aligned utterance carries exactly one; classifier failures yield
// the neutral zero-confidence fallback instead of a gap.
type SentimentResult struct {
	Label      SentimentLabel    `json:"label"`
	Confidence float64           `json:"confidence"`
	Language   SentimentLanguage `json:"language"`
}

// FallbackSentiment is attached when the classifier fails or the text is
// empty, so downstream aggregation stays total.
func FallbackSentiment() SentimentResult {
	return SentimentResult{
		Label:      SentimentNeutral,
		Confidence: 0,
		Language:   LanguageUnknown,
	}
}

// AnnotatedUtterance pairs an aligned utterance with its sentiment.
type AnnotatedUtterance struct {
	Utterance AlignedUtterance `json:"utterance"`
	Sentiment SentimentResult  `json:"sentiment"`
}

// CallUtterance is the persisted form of one annotated utterance within a
// call record.
type CallUtterance struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CallRecordID        uuid.UUID `json:"call_record_id" gorm:"type:uuid;not null;index"`
	Position            int       `json:"position" gorm:"not null"`
	SpeakerID           string    `json:"speaker_id" gorm:"type:varchar(50);not null"`
	Text                string    `json:"text" gorm:"type:text;not null"`
	StartTime           float64   `json:"start_time" gorm:"not null"`
	EndTime             float64   `json:"end_time" gorm:"not null"`
	Confidence          float64   `json:"confidence" gorm:"default:0.0"`
	SentimentLabel      string    `json:"sentiment_label" gorm:"type:varchar(20);not null"`
	SentimentConfidence float64   `json:"sentiment_confidence" gorm:"default:0.0"`
	Language            string    `json:"language" gorm:"type:varchar(10)"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (CallUtterance) TableName() string {
	return "call_utterances"
}
