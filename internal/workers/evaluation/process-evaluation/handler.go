// internal/workers/evaluation/process-evaluation/handler.go
package processevaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
	"idea-eval-workers/internal/models"
)

const (
	TaskType = "process-evaluation"
)

// Runner executes one full pipeline run.
type Runner interface {
	ProcessApplication(ctx context.Context, evaluationID string) error
}

// EvaluationGetter loads the evaluation after the run for the job output.
type EvaluationGetter interface {
	Get(ctx context.Context, id string) (*models.Evaluation, error)
}

type Handler struct {
	config      *Config
	pipeline    Runner
	evaluations EvaluationGetter
	logger      logger.Logger
}

func NewHandler(config *Config, pipeline Runner, evaluations EvaluationGetter, log logger.Logger) *Handler {
	return &Handler{
		config:      config,
		pipeline:    pipeline,
		evaluations: evaluations,
		logger:      log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	if input.EvaluationID == "" {
		h.failJob(client, job, "PARSE_ERROR", "evaluationId is required", 0)
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

// Execute runs the pipeline and reports the resulting evaluation state.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.pipeline.ProcessApplication(ctx, input.EvaluationID); err != nil {
		return nil, err
	}

	ev, err := h.evaluations.Get(ctx, input.EvaluationID)
	if err != nil {
		return nil, err
	}

	return &Output{
		EvaluationID: ev.ID,
		Status:       string(ev.Status),
		OverallScore: ev.OverallScore,
		CompletedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
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
