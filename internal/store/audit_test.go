// internal/store/audit_test.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
)

func newAuditStore(t *testing.T) (*AuditStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuditStore(db, logger.NewTestLogger(t)), mock
}

func TestAuditStoreInsert(t *testing.T) {
	s, mock := newAuditStore(t)

	details := json.RawMessage(`{"overallScore":73}`)
	mock.ExpectExec(`INSERT INTO audit_log \(id, user_id, action, resource_type, resource_id, details, created_at\)`).
		WithArgs(sqlmock.AnyArg(), "admin-1", models.EventAdminDecision,
			models.ResourceEvaluation, "eval-1", []byte(details)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Insert(context.Background(), &AuditEntry{
		UserID:       "admin-1",
		Action:       models.EventAdminDecision,
		ResourceType: models.ResourceEvaluation,
		ResourceID:   "eval-1",
		Details:      details,
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditStoreRecordSwallowsFailure(t *testing.T) {
	s, mock := newAuditStore(t)

	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnError(errors.New("connection reset"))

	s.Record(context.Background(), &AuditEntry{
		Action:       models.EventEvaluationCompleted,
		ResourceType: models.ResourceEvaluation,
		ResourceID:   "eval-1",
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
