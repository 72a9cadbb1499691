// internal/workers/moderation/apply-decision/handler_test.go
package applydecision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/moderation"
)

type stubDecider struct {
	lastPrincipal string
	lastPatch     *moderation.StatusPatch
	err           error
}

func (s *stubDecider) UpdateAdminStatus(ctx context.Context, principalID, evaluationID string, patch *moderation.StatusPatch) (*models.Evaluation, error) {
	s.lastPrincipal = principalID
	s.lastPatch = patch
	if s.err != nil {
		return nil, s.err
	}
	return &models.Evaluation{
		ID:          evaluationID,
		Status:      models.StatusCompleted,
		AdminStatus: patch.AdminStatus,
	}, nil
}

func TestExecuteAppliesDecision(t *testing.T) {
	decider := &stubDecider{}
	h := NewHandler(LoadConfig(), decider, logger.NewTestLogger(t))

	notes := "solid numbers"
	output, err := h.Execute(context.Background(), &Input{
		EvaluationID: "eval-1",
		AdminID:      "admin-9",
		AdminStatus:  "approved",
		AdminNotes:   &notes,
	})

	require.NoError(t, err)
	assert.Equal(t, "admin-9", decider.lastPrincipal)
	assert.Equal(t, models.AdminApproved, decider.lastPatch.AdminStatus)
	assert.Equal(t, "approved", output.AdminStatus)
	assert.Equal(t, "admin-9", output.DecidedBy)
	assert.NotEmpty(t, output.DecidedAt)
}

func TestExecuteUnauthorized(t *testing.T) {
	decider := &stubDecider{err: apperrors.NewUnauthorizedError("member-1")}
	h := NewHandler(LoadConfig(), decider, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{
		EvaluationID: "eval-1",
		AdminID:      "member-1",
		AdminStatus:  "approved",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
	assert.Zero(t, apperrors.GetRetryCount(apperrors.CodeOf(err)))
}

func TestExecuteInvalidStatus(t *testing.T) {
	decider := &stubDecider{err: apperrors.NewInvalidAdminStatusError("archived")}
	h := NewHandler(LoadConfig(), decider, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{
		EvaluationID: "eval-1",
		AdminID:      "admin-9",
		AdminStatus:  "archived",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidAdminStatus, apperrors.CodeOf(err))
}
