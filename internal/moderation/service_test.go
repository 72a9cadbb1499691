// internal/moderation/service_test.go
package moderation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/store"
)

type stubEvaluations struct {
	records map[string]*models.Evaluation
	updates []*store.AdminStatusUpdate
}

func (s *stubEvaluations) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	ev, ok := s.records[id]
	if !ok {
		return nil, apperrors.NewEvaluationNotFoundError(id)
	}
	return ev, nil
}

func (s *stubEvaluations) UpdateAdminStatus(ctx context.Context, id string, upd *store.AdminStatusUpdate) error {
	ev, ok := s.records[id]
	if !ok {
		return apperrors.NewEvaluationNotFoundError(id)
	}
	s.updates = append(s.updates, upd)
	ev.AdminStatus = upd.AdminStatus
	ev.AdminDecisionBy = &upd.DecidedBy
	return nil
}

type stubRoles struct {
	roles map[string]string
	calls int
}

func (s *stubRoles) GetRole(ctx context.Context, userID string) (string, error) {
	s.calls++
	return s.roles[userID], nil
}

type stubAudit struct {
	entries []*store.AuditEntry
}

func (s *stubAudit) Record(ctx context.Context, entry *store.AuditEntry) {
	s.entries = append(s.entries, entry)
}

func newService(t *testing.T) (*Service, *stubEvaluations, *stubRoles, *stubAudit) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	evals := &stubEvaluations{records: map[string]*models.Evaluation{
		"eval-1": {ID: "eval-1", Status: models.StatusCompleted, AdminStatus: models.AdminPending},
		"eval-2": {ID: "eval-2", Status: models.StatusProcessing, AdminStatus: models.AdminPending},
	}}
	roles := &stubRoles{roles: map[string]string{
		"admin-1":  "admin",
		"super-1":  "super_admin",
		"member-1": "member",
	}}
	audit := &stubAudit{}
	svc := NewService(evals, roles, cache, 300, audit, logger.NewTestLogger(t))
	return svc, evals, roles, audit
}

func TestUpdateAdminStatus(t *testing.T) {
	svc, evals, _, audit := newService(t)

	notes := "looks fundable"
	ev, err := svc.UpdateAdminStatus(context.Background(), "admin-1", "eval-1", &StatusPatch{
		AdminStatus: models.AdminApproved,
		AdminNotes:  &notes,
	})

	require.NoError(t, err)
	assert.Equal(t, models.AdminApproved, ev.AdminStatus)
	require.NotNil(t, ev.AdminDecisionBy)
	assert.Equal(t, "admin-1", *ev.AdminDecisionBy)
	// Pipeline status untouched.
	assert.Equal(t, models.StatusCompleted, ev.Status)
	require.Len(t, evals.updates, 1)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.EventAdminDecision, audit.entries[0].Action)
}

func TestUpdateAdminStatusWhileProcessing(t *testing.T) {
	svc, _, _, _ := newService(t)

	// Moderation is independent of the pipeline lifecycle.
	ev, err := svc.UpdateAdminStatus(context.Background(), "super-1", "eval-2", &StatusPatch{
		AdminStatus: models.AdminUnderReview,
	})

	require.NoError(t, err)
	assert.Equal(t, models.AdminUnderReview, ev.AdminStatus)
	assert.Equal(t, models.StatusProcessing, ev.Status)
}

func TestUpdateAdminStatusUnauthorized(t *testing.T) {
	svc, evals, _, _ := newService(t)

	_, err := svc.UpdateAdminStatus(context.Background(), "member-1", "eval-1", &StatusPatch{
		AdminStatus: models.AdminRejected,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
	// Nothing written.
	assert.Empty(t, evals.updates)
	assert.Equal(t, models.AdminPending, evals.records["eval-1"].AdminStatus)
}

func TestUpdateAdminStatusInvalidStatus(t *testing.T) {
	svc, evals, roles, _ := newService(t)

	_, err := svc.UpdateAdminStatus(context.Background(), "admin-1", "eval-1", &StatusPatch{
		AdminStatus: "archived",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidAdminStatus, apperrors.CodeOf(err))
	assert.Empty(t, evals.updates)
	// Rejected before the role lookup.
	assert.Zero(t, roles.calls)
}

func TestUpdateAdminStatusNotFound(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.UpdateAdminStatus(context.Background(), "admin-1", "missing", &StatusPatch{
		AdminStatus: models.AdminOnHold,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEvaluationNotFound, apperrors.CodeOf(err))
}

func TestRoleCacheSkipsRepeatLookups(t *testing.T) {
	svc, _, roles, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpdateAdminStatus(ctx, "admin-1", "eval-1", &StatusPatch{AdminStatus: models.AdminUnderReview})
	require.NoError(t, err)
	_, err = svc.UpdateAdminStatus(ctx, "admin-1", "eval-1", &StatusPatch{AdminStatus: models.AdminApproved})
	require.NoError(t, err)

	assert.Equal(t, 1, roles.calls)
}

func TestBulkUpdateAdminStatusPartialFailure(t *testing.T) {
	svc, evals, _, audit := newService(t)

	outcomes, err := svc.BulkUpdateAdminStatus(context.Background(), "admin-1",
		[]string{"eval-1", "missing", "eval-2"},
		&StatusPatch{AdminStatus: models.AdminOnHold})

	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Updated)
	assert.False(t, outcomes[1].Updated)
	assert.Equal(t, "EVALUATION_NOT_FOUND", outcomes[1].Error)
	assert.True(t, outcomes[2].Updated)

	// The good records were still updated.
	assert.Equal(t, models.AdminOnHold, evals.records["eval-1"].AdminStatus)
	assert.Equal(t, models.AdminOnHold, evals.records["eval-2"].AdminStatus)
	assert.Len(t, audit.entries, 2)
}

func TestBulkUpdateAdminStatusUnauthorized(t *testing.T) {
	svc, evals, _, _ := newService(t)

	_, err := svc.BulkUpdateAdminStatus(context.Background(), "member-1",
		[]string{"eval-1", "eval-2"},
		&StatusPatch{AdminStatus: models.AdminApproved})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
	assert.Empty(t, evals.updates)
}
