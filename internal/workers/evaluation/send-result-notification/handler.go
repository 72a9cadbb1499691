// internal/workers/evaluation/send-result-notification/handler.go
package sendresultnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/notify"
)

const (
	TaskType = "send-result-notification"
)

var (
	ErrEvaluationNotCompleted = errors.New("EVALUATION_NOT_COMPLETED")
	ErrNotificationFailed     = errors.New("NOTIFICATION_FAILED")
)

// EvaluationGetter loads the evaluation to notify about.
type EvaluationGetter interface {
	Get(ctx context.Context, id string) (*models.Evaluation, error)
}

// ResultNotifier delivers the completion notification.
type ResultNotifier interface {
	NotifyResult(ctx context.Context, ev *models.Evaluation) (*notify.Result, error)
}

type Handler struct {
	config      *Config
	evaluations EvaluationGetter
	notifier    ResultNotifier
	logger      logger.Logger
}

func NewHandler(config *Config, evaluations EvaluationGetter, notifier ResultNotifier, log logger.Logger) *Handler {
	return &Handler{
		config:      config,
		evaluations: evaluations,
		notifier:    notifier,
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
		errorCode := "UNKNOWN_ERROR"
		retries := int32(0)
		if stdErr := apperrors.AsStandard(err); stdErr != nil {
			errorCode = string(stdErr.Code)
			retries = int32(apperrors.GetRetryCount(stdErr.Code))
		} else if errors.Is(err, ErrEvaluationNotCompleted) {
			errorCode = "EVALUATION_NOT_COMPLETED"
		} else if errors.Is(err, ErrNotificationFailed) {
			errorCode = "NOTIFICATION_FAILED"
			retries = 3
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
}

// Execute sends the completion notification for one evaluation. Only
// completed evaluations are notifiable.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ev, err := h.evaluations.Get(ctx, input.EvaluationID)
	if err != nil {
		return nil, err
	}
	if ev.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: evaluation %s is %s", ErrEvaluationNotCompleted, ev.ID, ev.Status)
	}

	result, err := h.notifier.NotifyResult(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	h.logger.Info("result notification delivered", map[string]interface{}{
		"evaluationId": ev.ID,
		"emailSent":    result.EmailSent,
		"smsSent":      result.SMSSent,
	})

	return &Output{
		EvaluationID: ev.ID,
		EmailSent:    result.EmailSent,
		SMSSent:      result.SMSSent,
		NotifiedAt:   time.Now().UTC().Format(time.RFC3339),
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
