// internal/workers/evaluation/send-result-notification/handler_test.go
package sendresultnotification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/notify"
)

type stubGetter struct {
	evaluation *models.Evaluation
}

func (s *stubGetter) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	if s.evaluation == nil {
		return nil, apperrors.NewEvaluationNotFoundError(id)
	}
	return s.evaluation, nil
}

type stubNotifier struct {
	result *notify.Result
	err    error
	calls  int
}

func (s *stubNotifier) NotifyResult(ctx context.Context, ev *models.Evaluation) (*notify.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func completedEvaluation() *models.Evaluation {
	score := 88.0
	return &models.Evaluation{
		ID:           "eval-1",
		UserID:       "user-1",
		Title:        "Solar kiosk",
		Status:       models.StatusCompleted,
		OverallScore: &score,
	}
}

func TestExecuteSuccess(t *testing.T) {
	notifier := &stubNotifier{result: &notify.Result{EmailSent: true, SMSSent: true}}
	h := NewHandler(LoadConfig(), &stubGetter{evaluation: completedEvaluation()}, notifier, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{EvaluationID: "eval-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, notifier.calls)
	assert.True(t, output.EmailSent)
	assert.True(t, output.SMSSent)
	assert.NotEmpty(t, output.NotifiedAt)
}

func TestExecuteNotCompleted(t *testing.T) {
	ev := completedEvaluation()
	ev.Status = models.StatusFailed
	notifier := &stubNotifier{}
	h := NewHandler(LoadConfig(), &stubGetter{evaluation: ev}, notifier, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{EvaluationID: "eval-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEvaluationNotCompleted)
	assert.Zero(t, notifier.calls)
}

func TestExecuteEvaluationMissing(t *testing.T) {
	h := NewHandler(LoadConfig(), &stubGetter{}, &stubNotifier{}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{EvaluationID: "missing"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEvaluationNotFound, apperrors.CodeOf(err))
}

func TestExecuteNotificationFailure(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("ses throttled")}
	h := NewHandler(LoadConfig(), &stubGetter{evaluation: completedEvaluation()}, notifier, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{EvaluationID: "eval-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotificationFailed)
}
