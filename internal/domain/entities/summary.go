package entities

// ResolutionStatus is the summarizer's verdict on how the call ended.
type ResolutionStatus string

const (
	ResolutionResolved   ResolutionStatus = "resolved"
	ResolutionUnresolved ResolutionStatus = "unresolved"
	ResolutionEscalated  ResolutionStatus = "escalated"
	ResolutionUnknown    ResolutionStatus = "unknown"
)

// ValidResolutionStatus reports whether s is one of the schema's values.
func ValidResolutionStatus(s ResolutionStatus) bool {
	switch s {
	case ResolutionResolved, ResolutionUnresolved, ResolutionEscalated, ResolutionUnknown:
		return true
	}
	return false
}

// CallSummary is the structured response expected from the summarization
// collaborator. A response failing this schema is a collaborator failure,
// never silently coerced.
type CallSummary struct {
	Summary          string           `json:"summary" validate:"required"`
	Topics           []string         `json:"topics"`
	ResolutionStatus ResolutionStatus `json:"resolution_status" validate:"required"`
	QualityScore     float64          `json:"quality_score" validate:"gte=0,lte=10"`
}
