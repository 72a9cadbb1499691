// internal/workers/evaluation/process-evaluation/models.go
package processevaluation

type Input struct {
	EvaluationID string `json:"evaluationId"`
}

type Output struct {
	EvaluationID string   `json:"evaluationId"`
	Status       string   `json:"status"`
	OverallScore *float64 `json:"overallScore,omitempty"`
	CompletedAt  string   `json:"completedAt"` // ISO 8601
}
