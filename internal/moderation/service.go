// internal/moderation/service.go

// Package moderation applies human admin decisions to evaluations. The
// moderation lifecycle is orthogonal to the pipeline status and never blocks
// or is blocked by processing.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/metrics"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/store"
)

// EvaluationUpdater is the subset of the evaluation store the moderation
// path uses.
type EvaluationUpdater interface {
	Get(ctx context.Context, id string) (*models.Evaluation, error)
	UpdateAdminStatus(ctx context.Context, id string, upd *store.AdminStatusUpdate) error
}

// RoleSource resolves a user's role.
type RoleSource interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

// Auditor appends best-effort audit rows.
type Auditor interface {
	Record(ctx context.Context, entry *store.AuditEntry)
}

// StatusPatch is one moderation decision. Optional fields stay untouched
// when nil.
type StatusPatch struct {
	AdminStatus       models.AdminStatus `json:"adminStatus"`
	AdminNotes        *string            `json:"adminNotes,omitempty"`
	PriorityLevel     *string            `json:"priorityLevel,omitempty"`
	RiskAssessment    *string            `json:"riskAssessment,omitempty"`
	ApplicationCohort *string            `json:"applicationCohort,omitempty"`
}

// Service authorizes and applies moderation decisions.
type Service struct {
	evaluations EvaluationUpdater
	roles       RoleSource
	cache       *redis.Client
	cacheTTL    time.Duration
	audit       Auditor
	logger      logger.Logger
}

func NewService(evaluations EvaluationUpdater, roles RoleSource, cache *redis.Client, cacheTTLSeconds int, audit Auditor, log logger.Logger) *Service {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 300
	}
	return &Service{
		evaluations: evaluations,
		roles:       roles,
		cache:       cache,
		cacheTTL:    time.Duration(cacheTTLSeconds) * time.Second,
		audit:       audit,
		logger:      log.WithFields(map[string]interface{}{"component": "moderation"}),
	}
}

// UpdateAdminStatus applies one decision. The principal is authorized before
// anything is written; invalid target statuses are rejected the same way.
func (s *Service) UpdateAdminStatus(ctx context.Context, principalID, evaluationID string, patch *StatusPatch) (*models.Evaluation, error) {
	if !models.ValidAdminStatuses[patch.AdminStatus] {
		return nil, apperrors.NewInvalidAdminStatusError(string(patch.AdminStatus))
	}
	if err := s.authorize(ctx, principalID); err != nil {
		return nil, err
	}

	upd := &store.AdminStatusUpdate{
		AdminStatus:       patch.AdminStatus,
		AdminNotes:        patch.AdminNotes,
		PriorityLevel:     patch.PriorityLevel,
		RiskAssessment:    patch.RiskAssessment,
		ApplicationCohort: patch.ApplicationCohort,
		DecidedBy:         principalID,
	}
	if err := s.evaluations.UpdateAdminStatus(ctx, evaluationID, upd); err != nil {
		return nil, err
	}

	metrics.ModerationDecisions.WithLabelValues(string(patch.AdminStatus)).Inc()
	details, _ := json.Marshal(map[string]interface{}{"adminStatus": patch.AdminStatus})
	s.audit.Record(ctx, &store.AuditEntry{
		UserID:       principalID,
		Action:       models.EventAdminDecision,
		ResourceType: models.ResourceEvaluation,
		ResourceID:   evaluationID,
		Details:      details,
	})

	s.logger.Info("admin status updated", map[string]interface{}{
		"evaluationId": evaluationID,
		"adminStatus":  patch.AdminStatus,
		"decidedBy":    principalID,
	})
	return s.evaluations.Get(ctx, evaluationID)
}

// BulkOutcome is the per-evaluation result of a bulk update.
type BulkOutcome struct {
	EvaluationID string `json:"evaluationId"`
	Updated      bool   `json:"updated"`
	Error        string `json:"error,omitempty"`
}

// BulkUpdateAdminStatus applies the same patch to many evaluations.
// Authorization and status validation happen once up front; each record is
// then updated independently so one missing evaluation never aborts the rest.
func (s *Service) BulkUpdateAdminStatus(ctx context.Context, principalID string, evaluationIDs []string, patch *StatusPatch) ([]BulkOutcome, error) {
	if !models.ValidAdminStatuses[patch.AdminStatus] {
		return nil, apperrors.NewInvalidAdminStatusError(string(patch.AdminStatus))
	}
	if err := s.authorize(ctx, principalID); err != nil {
		return nil, err
	}

	outcomes := make([]BulkOutcome, 0, len(evaluationIDs))
	for _, id := range evaluationIDs {
		outcome := BulkOutcome{EvaluationID: id, Updated: true}
		upd := &store.AdminStatusUpdate{
			AdminStatus:       patch.AdminStatus,
			AdminNotes:        patch.AdminNotes,
			PriorityLevel:     patch.PriorityLevel,
			RiskAssessment:    patch.RiskAssessment,
			ApplicationCohort: patch.ApplicationCohort,
			DecidedBy:         principalID,
		}
		if err := s.evaluations.UpdateAdminStatus(ctx, id, upd); err != nil {
			outcome.Updated = false
			outcome.Error = string(apperrors.CodeOf(err))
			s.logger.WithError(err).Warn("bulk decision skipped record", map[string]interface{}{
				"evaluationId": id,
			})
		} else {
			metrics.ModerationDecisions.WithLabelValues(string(patch.AdminStatus)).Inc()
			details, _ := json.Marshal(map[string]interface{}{"adminStatus": patch.AdminStatus, "bulk": true})
			s.audit.Record(ctx, &store.AuditEntry{
				UserID:       principalID,
				Action:       models.EventAdminDecision,
				ResourceType: models.ResourceEvaluation,
				ResourceID:   id,
				Details:      details,
			})
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// authorize verifies the principal holds an admin role, consulting the Redis
// role cache before the users table.
func (s *Service) authorize(ctx context.Context, principalID string) error {
	role, err := s.lookupRole(ctx, principalID)
	if err != nil {
		return err
	}
	if role != "admin" && role != "super_admin" {
		return apperrors.NewUnauthorizedError(principalID)
	}
	return nil
}

func (s *Service) lookupRole(ctx context.Context, userID string) (string, error) {
	key := fmt.Sprintf("user:role:%s", userID)
	if s.cache != nil {
		if role, err := s.cache.Get(ctx, key).Result(); err == nil {
			return role, nil
		} else if err != redis.Nil {
			s.logger.WithError(err).Warn("role cache read failed", map[string]interface{}{
				"userId": userID,
			})
		}
	}

	role, err := s.roles.GetRole(ctx, userID)
	if err != nil {
		return "", err
	}
	if s.cache != nil && role != "" {
		if err := s.cache.Set(ctx, key, role, s.cacheTTL).Err(); err != nil {
			s.logger.WithError(err).Warn("role cache write failed", map[string]interface{}{
				"userId": userID,
			})
		}
	}
	return role, nil
}
