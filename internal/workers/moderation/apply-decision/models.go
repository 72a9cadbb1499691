// internal/workers/moderation/apply-decision/models.go
package applydecision

type Input struct {
	EvaluationID      string  `json:"evaluationId"`
	AdminID           string  `json:"adminId"`
	AdminStatus       string  `json:"adminStatus"`
	AdminNotes        *string `json:"adminNotes,omitempty"`
	PriorityLevel     *string `json:"priorityLevel,omitempty"`
	RiskAssessment    *string `json:"riskAssessment,omitempty"`
	ApplicationCohort *string `json:"applicationCohort,omitempty"`
}

type Output struct {
	EvaluationID string `json:"evaluationId"`
	AdminStatus  string `json:"adminStatus"`
	DecidedBy    string `json:"decidedBy"`
	DecidedAt    string `json:"decidedAt"` // ISO 8601
}
