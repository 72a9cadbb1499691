// internal/common/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes for the evaluation
// pipeline and its collaborators.
type ErrorCode string

const (
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodePersistenceFailed  ErrorCode = "PERSISTENCE_FAILED"

	ErrCodeExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrCodeExtractionTimeout ErrorCode = "EXTRACTION_TIMEOUT"
	ErrCodeSynthesisFailed   ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeSynthesisTimeout  ErrorCode = "SYNTHESIS_TIMEOUT"
	ErrCodeScoringFailed     ErrorCode = "SCORING_FAILED"
	ErrCodeScoringTimeout    ErrorCode = "SCORING_TIMEOUT"

	ErrCodePlanValidationFailed ErrorCode = "PLAN_VALIDATION_FAILED"

	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeRunInProgress      ErrorCode = "RUN_IN_PROGRESS"
	ErrCodeEvaluationNotFound ErrorCode = "EVALUATION_NOT_FOUND"
	ErrCodeInvalidAdminStatus ErrorCode = "INVALID_ADMIN_STATUS"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// AsStandard extracts a *StandardError from an error chain, or nil.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return nil
}

// CodeOf returns the error code of a StandardError in the chain, or
// "INTERNAL_ERROR" for anything else.
func CodeOf(err error) ErrorCode {
	if stdErr := AsStandard(err); stdErr != nil {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// IsRetryable reports whether the error chain carries a retryable
// StandardError. Unknown errors are not retried.
func IsRetryable(err error) bool {
	if stdErr := AsStandard(err); stdErr != nil {
		return stdErr.Retryable
	}
	return false
}

// NewStorageWriteError marks a blob store write failure during file
// registration. Surfaced to the caller, not retried by the intake path.
func NewStorageWriteError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageWriteFailed,
		Message:   "Blob storage write failed",
		Details:   fmt.Sprintf("key: %s, error: %v", key, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPersistenceError marks a database write failure.
func NewPersistenceError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Database write failed",
		Details:   fmt.Sprintf("op: %s, error: %v", op, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewExtractionError marks an OCR or transcription adapter failure for one
// intake file.
func NewExtractionError(fileID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "Extraction adapter call failed",
		Details:   fmt.Sprintf("fileId: %s, error: %v", fileID, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"fileId": fileID},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewExtractionTimeoutError marks an extraction call that exceeded its
// deadline.
func NewExtractionTimeoutError(fileID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionTimeout,
		Message:   "Extraction adapter call timed out",
		Details:   fmt.Sprintf("fileId: %s", fileID),
		Retryable: true,
		Metadata:  map[string]interface{}{"fileId": fileID},
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisError marks a plan synthesis service failure.
func NewSynthesisError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisFailed,
		Message:   "Plan synthesis call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSynthesisTimeoutError marks a synthesis call that exceeded its deadline.
func NewSynthesisTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisTimeout,
		Message:   "Plan synthesis call timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringError marks a scoring service failure.
func NewScoringError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringFailed,
		Message:   "Scoring call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewScoringTimeoutError marks a scoring call that exceeded its deadline.
func NewScoringTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringTimeout,
		Message:   "Scoring call timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanValidationError marks a synthesized plan that failed schema
// validation. Not retryable: re-sending the same inputs yields the same
// payload shape.
func NewPlanValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanValidationFailed,
		Message:   "Synthesized business plan failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError marks a moderation operation attempted by a non-admin
// principal. Checked before any write.
func NewUnauthorizedError(principalID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Principal is not an admin",
		Details:   fmt.Sprintf("principalId: %s", principalID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunInProgressError marks a ProcessApplication invocation that lost the
// run lock or the status compare-and-swap to a concurrent run.
func NewRunInProgressError(evaluationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunInProgress,
		Message:   "Evaluation already has a pipeline run in flight",
		Details:   fmt.Sprintf("evaluationId: %s", evaluationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEvaluationNotFoundError marks a missing evaluation row.
func NewEvaluationNotFoundError(evaluationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEvaluationNotFound,
		Message:   "Evaluation not found",
		Details:   fmt.Sprintf("evaluationId: %s", evaluationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidAdminStatusError marks a moderation patch carrying an unknown
// admin status value.
func NewInvalidAdminStatusError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidAdminStatus,
		Message:   "Unknown admin status value",
		Details:   fmt.Sprintf("adminStatus: %s", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the bounded retry budget per error code, applied by
// the orchestrator's retry policy and the job workers.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageWriteFailed,
		ErrCodePersistenceFailed,
		ErrCodeExtractionFailed,
		ErrCodeSynthesisFailed,
		ErrCodeScoringFailed:
		return 3

	case ErrCodeExtractionTimeout,
		ErrCodeSynthesisTimeout,
		ErrCodeScoringTimeout:
		return 2

	default:
		return 0
	}
}
