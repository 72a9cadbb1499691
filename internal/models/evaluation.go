// internal/models/evaluation.go
package models

import (
	"encoding/json"
	"time"
)

// EvaluationStatus tracks automated pipeline progress for an evaluation.
type EvaluationStatus string

const (
	StatusPending         EvaluationStatus = "pending"
	StatusProcessing      EvaluationStatus = "processing"
	StatusCompleted       EvaluationStatus = "completed"
	StatusFailed          EvaluationStatus = "failed"
	StatusReviewing       EvaluationStatus = "reviewing"
	StatusMentorCompleted EvaluationStatus = "mentor_completed"
	StatusAdminReview     EvaluationStatus = "admin_review"
	StatusApproved        EvaluationStatus = "approved"
	StatusRejected        EvaluationStatus = "rejected"
	StatusOnHold          EvaluationStatus = "on_hold"
)

// AdminStatus tracks the human moderation lifecycle, independent of the
// pipeline status. The pipeline never writes it.
type AdminStatus string

const (
	AdminPending      AdminStatus = "pending"
	AdminUnderReview  AdminStatus = "under_review"
	AdminApproved     AdminStatus = "approved"
	AdminRejected     AdminStatus = "rejected"
	AdminRequiresInfo AdminStatus = "requires_info"
	AdminOnHold       AdminStatus = "on_hold"
)

// ValidAdminStatuses is the set of values UpdateAdminStatus accepts.
var ValidAdminStatuses = map[AdminStatus]bool{
	AdminPending:      true,
	AdminUnderReview:  true,
	AdminApproved:     true,
	AdminRejected:     true,
	AdminRequiresInfo: true,
	AdminOnHold:       true,
}

// FailureStage records which pipeline stage produced a failed run.
type FailureStage string

const (
	StageExtraction  FailureStage = "extraction"
	StageSynthesis   FailureStage = "synthesis"
	StageScoring     FailureStage = "scoring"
	StagePersistence FailureStage = "persistence"
)

// InputType describes how the idea was captured at submission time.
type InputType string

const (
	InputText     InputType = "text"
	InputImage    InputType = "image"
	InputVoice    InputType = "voice"
	InputSketch   InputType = "sketch"
	InputCombined InputType = "combined"
)

// Evaluation is the central aggregate: one submitted business idea plus its
// full processing and moderation state. Score fields stay nil until the
// pipeline reaches completed.
type Evaluation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Industry     string    `json:"industry"`
	TargetMarket string    `json:"targetMarket"`
	Language     string    `json:"language"`
	InputType    InputType `json:"inputType"`

	Status               EvaluationStatus `json:"status"`
	OverallScore         *float64         `json:"overallScore,omitempty"`
	MarketViability      *float64         `json:"marketViability,omitempty"`
	FinancialFeasibility *float64         `json:"financialFeasibility,omitempty"`
	InnovationIndex      *float64         `json:"innovationIndex,omitempty"`
	ExecutionReadiness   *float64         `json:"executionReadiness,omitempty"`
	ScalabilityPotential *float64         `json:"scalabilityPotential,omitempty"`
	BusinessPlanJSON     json.RawMessage  `json:"businessPlanJson,omitempty"`
	ExtractionConfidence *float64         `json:"extractionConfidence,omitempty"`
	ProcessedInputs      json.RawMessage  `json:"processedInputs,omitempty"`
	FailureStage         *FailureStage    `json:"failureStage,omitempty"`
	FailureDetail        *string          `json:"failureDetail,omitempty"`

	AdminStatus       AdminStatus `json:"adminStatus"`
	AdminNotes        string      `json:"adminNotes,omitempty"`
	PriorityLevel     string      `json:"priorityLevel,omitempty"`
	RiskAssessment    string      `json:"riskAssessment,omitempty"`
	ApplicationCohort string      `json:"applicationCohort,omitempty"`
	AdminDecisionBy   *string     `json:"adminDecisionBy,omitempty"`
	AdminDecisionDate *time.Time  `json:"adminDecisionDate,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProcessedInput is one entry of the audit blob written at completion: the raw
// extraction output for a single source.
type ProcessedInput struct {
	FileID     string   `json:"fileId,omitempty"`
	Source     FileType `json:"source"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
}

// ProcessedInputs is the full audit blob persisted on the evaluation.
type ProcessedInputs struct {
	Description string           `json:"description,omitempty"`
	Inputs      []ProcessedInput `json:"inputs"`
}
