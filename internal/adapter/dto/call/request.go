package call

// SubmitCallRequest is the payload for submitting a call recording for
// analysis. Role hints map diarization speaker labels to "agent" or
// "customer" when the telephony system knows the channel layout.
type SubmitCallRequest struct {
	CallID       string            `json:"call_id" validate:"required,max=255"`
	RecordingURL string            `json:"recording_url" validate:"required,url"`
	Language     string            `json:"language,omitempty" validate:"omitempty,max=10"`
	RoleHints    map[string]string `json:"role_hints,omitempty"`
}

// ListCallsRequest carries pagination for the call record listing
type ListCallsRequest struct {
	Page     int `query:"page" validate:"omitempty,gte=1"`
	PageSize int `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}
