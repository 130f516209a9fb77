package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies an application error category on the wire
type ErrorCode string

const (
	ErrorCode_INTERNAL          ErrorCode = "INTERNAL"
	ErrorCode_INVALID_ARGUMENT  ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_NOT_FOUND         ErrorCode = "NOT_FOUND"
	ErrorCode_ALREADY_EXISTS    ErrorCode = "ALREADY_EXISTS"
	ErrorCode_PERMISSION_DENIED ErrorCode = "PERMISSION_DENIED"
	ErrorCode_UNAUTHENTICATED   ErrorCode = "UNAUTHENTICATED"

	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = "AUTH_INVALID_TOKEN"
	ErrorCode_AUTH_TOKEN_EXPIRED ErrorCode = "AUTH_TOKEN_EXPIRED"

	ErrorCode_CALL_NOT_FOUND       ErrorCode = "CALL_NOT_FOUND"
	ErrorCode_CALL_ALREADY_EXISTS  ErrorCode = "CALL_ALREADY_EXISTS"
	ErrorCode_CALL_INVALID_ID      ErrorCode = "CALL_INVALID_ID"
	ErrorCode_JOB_NOT_FOUND        ErrorCode = "JOB_NOT_FOUND"
	ErrorCode_RECORD_NOT_READY     ErrorCode = "RECORD_NOT_READY"
	ErrorCode_MISSING_RECORDING    ErrorCode = "MISSING_RECORDING"
	ErrorCode_TRANSCRIPTION_FAILED ErrorCode = "TRANSCRIPTION_FAILED"
	ErrorCode_DIARIZATION_FAILED   ErrorCode = "DIARIZATION_FAILED"
	ErrorCode_ANALYSIS_FAILED      ErrorCode = "ANALYSIS_FAILED"
	ErrorCode_CONFIG_INVALID       ErrorCode = "CONFIG_INVALID"

	ErrorCode_INTEGRATION_STORAGE_FAILED ErrorCode = "INTEGRATION_STORAGE_FAILED"
	ErrorCode_INTEGRATION_CACHE_FAILED   ErrorCode = "INTEGRATION_CACHE_FAILED"
	ErrorCode_DB_QUERY_FAILED            ErrorCode = "DB_QUERY_FAILED"
	ErrorCode_INVALID_PAYLOAD            ErrorCode = "INVALID_PAYLOAD"
)

// String returns the wire representation of the code
func (c ErrorCode) String() string {
	return string(c)
}

// AppError is the custom error type carried across handler boundaries
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped error for errors.Is/As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrAlreadyExists(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_ALREADY_EXISTS,
		Message:  fmt.Sprintf("%s already exists", resource),
	}
}

func ErrPermissionDenied(action string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_PERMISSION_DENIED,
		Message:  fmt.Sprintf("Permission denied: %s", action),
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

// Authentication Errors

func ErrInvalidToken() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_INVALID_TOKEN,
		Message:  "Invalid authentication token",
	}
}

func ErrTokenExpired() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_TOKEN_EXPIRED,
		Message:  "Authentication token has expired",
	}
}

// Call Analysis Errors

func ErrCallNotFound(callID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_CALL_NOT_FOUND,
		Message:  "Call not found",
	}.WithDetail("call_id", callID)
}

func ErrCallAlreadyExists(callID string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_CALL_ALREADY_EXISTS,
		Message:  "Call already submitted",
	}.WithDetail("call_id", callID)
}

func ErrInvalidCallID(callID string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_CALL_INVALID_ID,
		Message:  "Invalid call ID",
	}.WithDetail("call_id", callID)
}

func ErrJobNotFound(jobID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_JOB_NOT_FOUND,
		Message:  "Analysis job not found",
	}.WithDetail("job_id", jobID)
}

func ErrRecordNotReady(callID string, status string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_RECORD_NOT_READY,
		Message:  "Call analysis has not completed yet",
	}.WithDetail("call_id", callID).
		WithDetail("status", status)
}

func ErrMissingRecordingURL() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_MISSING_RECORDING,
		Message:  "Missing recording URL",
	}
}

func ErrTranscriptionFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_TRANSCRIPTION_FAILED,
		Message:  "Audio transcription failed",
	}
}

func ErrDiarizationFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DIARIZATION_FAILED,
		Message:  "Speaker diarization failed",
	}
}

func ErrAnalysisFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_ANALYSIS_FAILED,
		Message:  "Call analysis failed",
	}
}

func ErrInvalidConfig(field, reason string) AppError {
	return AppError{
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CONFIG_INVALID,
		Message:  "Invalid configuration",
	}.WithDetail("field", field).
		WithDetail("reason", reason)
}

// Integration Errors

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTEGRATION_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

func ErrCacheFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTEGRATION_CACHE_FAILED,
		Message:  fmt.Sprintf("Cache operation failed: %s", operation),
	}
}

// Database Errors

func ErrDBQueryFailed(query string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("query", query)
}

// Payload Errors

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}
