// internal/store/audit.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"idea-eval-workers/internal/common/logger"
)

// AuditEntry is one row of the audit_log table.
type AuditEntry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Details      json.RawMessage
}

// AuditStore appends audit_log rows. Callers treat writes as best-effort and
// only log failures.
type AuditStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewAuditStore(db *sql.DB, log logger.Logger) *AuditStore {
	return &AuditStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "audit_log"}),
	}
}

func (s *AuditStore) Insert(ctx context.Context, entry *AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.New().String(), entry.UserID, entry.Action,
		entry.ResourceType, entry.ResourceID, []byte(entry.Details),
	)
	return err
}

// Record inserts an audit row and downgrades failures to a warning.
func (s *AuditStore) Record(ctx context.Context, entry *AuditEntry) {
	if err := s.Insert(ctx, entry); err != nil {
		s.logger.WithError(err).Warn("audit write failed", map[string]interface{}{
			"action":     entry.Action,
			"resourceId": entry.ResourceID,
		})
	}
}
