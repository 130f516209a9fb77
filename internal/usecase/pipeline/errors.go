package pipeline

import "fmt"

// CollaboratorFailure reports that an external model call failed, timed out,
// or returned output that does not satisfy its schema. It is recoverable:
// the affected stage is marked degraded and the run continues.
type CollaboratorFailure struct {
	Stage string
	Err   error
}

func (e *CollaboratorFailure) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Stage, e.Err)
}

func (e *CollaboratorFailure) Unwrap() error {
	return e.Err
}

// InputInconsistency reports malformed collaborator input that was recovered
// through fallback heuristics, such as zero diarization turns or word
// timestamps out of order beyond tolerance.
type InputInconsistency struct {
	Reason string
}

func (e *InputInconsistency) Error() string {
	return fmt.Sprintf("inconsistent input: %s", e.Reason)
}

// ConfigurationError reports an invalid threshold value. It is fatal,
// surfaced before any call is processed, and never silently clamped.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}
