// internal/workers/evaluation/register-intake-file/models.go
package registerintakefile

// Input carries the artifact inline. Uploads arriving through the process
// engine are small (sketches, short voice notes), so base64 in the job
// variables is acceptable; anything larger comes in through the upload API.
type Input struct {
	EvaluationID string `json:"evaluationId"`
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	ContentType  string `json:"contentType"`
	Data         string `json:"data"` // base64
}

type Output struct {
	EvaluationID string `json:"evaluationId"`
	FileID       string `json:"fileId"`
	FileURL      string `json:"fileUrl"`
	UploadStatus string `json:"uploadStatus"`
	RegisteredAt string `json:"registeredAt"` // ISO 8601
}
