// internal/workers/moderation/apply-decision/handler.go
package applydecision

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
	"idea-eval-workers/internal/moderation"
)

const (
	TaskType = "apply-moderation-decision"
)

// Decider applies an authorized moderation decision.
type Decider interface {
	UpdateAdminStatus(ctx context.Context, principalID, evaluationID string, patch *moderation.StatusPatch) (*models.Evaluation, error)
}

type Handler struct {
	config  *Config
	decider Decider
	logger  logger.Logger
}

func NewHandler(config *Config, decider Decider, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		decider: decider,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	if input.EvaluationID == "" || input.AdminID == "" {
		h.failJob(client, job, "PARSE_ERROR", "evaluationId and adminId are required", 0)
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

// Execute applies one moderation decision on behalf of the admin.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ev, err := h.decider.UpdateAdminStatus(ctx, input.AdminID, input.EvaluationID, &moderation.StatusPatch{
		AdminStatus:       models.AdminStatus(input.AdminStatus),
		AdminNotes:        input.AdminNotes,
		PriorityLevel:     input.PriorityLevel,
		RiskAssessment:    input.RiskAssessment,
		ApplicationCohort: input.ApplicationCohort,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		EvaluationID: ev.ID,
		AdminStatus:  string(ev.AdminStatus),
		DecidedBy:    input.AdminID,
		DecidedAt:    time.Now().UTC().Format(time.RFC3339),
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
