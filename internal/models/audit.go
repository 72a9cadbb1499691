// internal/models/audit.go
package models

// Audit log event types written by the pipeline and moderation paths.
const (
	EventEvaluationCompleted = "evaluation_completed"
	EventEvaluationFailed    = "evaluation_failed"
	EventFileRegistered      = "file_registered"
	EventAdminDecision       = "admin_decision"
)

// Resource types for audit_log rows.
const (
	ResourceEvaluation = "evaluation"
	ResourceIntakeFile = "intake_file"
)
