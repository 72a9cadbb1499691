// internal/workers/evaluation/register-intake-file/handler.go
package registerintakefile

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
	"idea-eval-workers/internal/intake"
	"idea-eval-workers/internal/models"
)

const (
	TaskType = "register-intake-file"
)

// Registrar stores the artifact and creates its intake record.
type Registrar interface {
	RegisterFile(ctx context.Context, evaluationID string, upload *intake.FileUpload) (*models.IntakeFile, error)
}

type Handler struct {
	config    *Config
	registrar Registrar
	logger    logger.Logger
}

func NewHandler(config *Config, registrar Registrar, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		registrar: registrar,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}
	if msg := validateInput(&input); msg != "" {
		h.failJob(client, job, "PARSE_ERROR", msg, 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		code := apperrors.CodeOf(err)
		h.failJob(client, job, string(code), err.Error(), int32(apperrors.GetRetryCount(code)))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
}

// Execute decodes the payload and registers the file against the evaluation.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	data, err := base64.StdEncoding.DecodeString(input.Data)
	if err != nil {
		return nil, fmt.Errorf("decode file data: %w", err)
	}

	file, err := h.registrar.RegisterFile(ctx, input.EvaluationID, &intake.FileUpload{
		FileName:    input.FileName,
		FileType:    models.FileType(input.FileType),
		ContentType: input.ContentType,
		Data:        data,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		EvaluationID: file.EvaluationID,
		FileID:       file.ID,
		FileURL:      file.FileURL,
		UploadStatus: string(file.UploadStatus),
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func validateInput(input *Input) string {
	if input.EvaluationID == "" {
		return "evaluationId is required"
	}
	if input.FileName == "" {
		return "fileName is required"
	}
	if input.Data == "" {
		return "data is required"
	}
	switch models.FileType(input.FileType) {
	case models.FileImage, models.FileVoice, models.FileDocument, models.FileSketch:
		return ""
	default:
		return fmt.Sprintf("unsupported fileType %q", input.FileType)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	} else {
		h.logger.Info("job completed successfully", map[string]interface{}{
			"jobKey": job.Key,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
