// internal/workers/evaluation/send-result-notification/models.go
package sendresultnotification

type Input struct {
	EvaluationID string `json:"evaluationId"`
}

type Output struct {
	EvaluationID string `json:"evaluationId"`
	EmailSent    bool   `json:"emailSent"`
	SMSSent      bool   `json:"smsSent"`
	NotifiedAt   string `json:"notifiedAt"` // ISO 8601
}
