// internal/models/intake_file.go
package models

import (
	"encoding/json"
	"time"
)

// FileType classifies an uploaded artifact.
type FileType string

const (
	FileImage    FileType = "image"
	FileVoice    FileType = "voice"
	FileDocument FileType = "document"
	FileSketch   FileType = "sketch"
)

// UploadStatus tracks the upload itself, not content processing. A record is
// created with StatusUploadCompleted once the blob write and the insert both
// succeed.
type UploadStatus string

const (
	UploadPending    UploadStatus = "pending"
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

// IntakeFile is one uploaded artifact belonging to an evaluation.
// ExtractedText and ConfidenceScore are written at most once, by the pipeline,
// after a successful extraction.
type IntakeFile struct {
	ID           string       `json:"id"`
	EvaluationID string       `json:"evaluationId"`
	FileType     FileType     `json:"fileType"`
	FileName     string       `json:"fileName"`
	FileURL      string       `json:"fileUrl"`
	UploadStatus UploadStatus `json:"uploadStatus"`

	ExtractedText     *string         `json:"extractedText,omitempty"`
	ConfidenceScore   *float64        `json:"confidenceScore,omitempty"`
	ProcessingResults json.RawMessage `json:"processingResults,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
