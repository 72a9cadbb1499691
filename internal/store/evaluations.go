// internal/store/evaluations.go

// Package store holds the PostgreSQL persistence layer for evaluations,
// intake files, users and the audit log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
)

// EvaluationStore persists the evaluation aggregate. Status transitions that
// race with concurrent runs go through guarded updates on (status, version).
type EvaluationStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewEvaluationStore(db *sql.DB, log logger.Logger) *EvaluationStore {
	return &EvaluationStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "evaluations"}),
	}
}

// Create inserts a new evaluation in pending state. The ID is generated when
// the caller leaves it empty.
func (s *EvaluationStore) Create(ctx context.Context, ev *models.Evaluation) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Status == "" {
		ev.Status = models.StatusPending
	}
	if ev.AdminStatus == "" {
		ev.AdminStatus = models.AdminPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			id, user_id, title, description, industry, target_market,
			language, input_type, status, admin_status, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())`,
		ev.ID, ev.UserID, ev.Title, ev.Description, ev.Industry,
		ev.TargetMarket, ev.Language, ev.InputType, ev.Status, ev.AdminStatus,
	)
	if err != nil {
		return apperrors.NewPersistenceError("insert evaluation", err)
	}
	ev.Version = 1
	return nil
}

// Get loads a full evaluation row.
func (s *EvaluationStore) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	ev := &models.Evaluation{}
	var (
		overallScore, marketViability, financialFeasibility sql.NullFloat64
		innovationIndex, executionReadiness                 sql.NullFloat64
		scalabilityPotential, extractionConfidence          sql.NullFloat64
		businessPlan, processedInputs                       []byte
		failureStage, failureDetail                         sql.NullString
		adminNotes, priorityLevel, riskAssessment, cohort   sql.NullString
		decisionBy                                          sql.NullString
		decisionDate                                        sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, industry, target_market,
		       language, input_type, status,
		       overall_score, market_viability, financial_feasibility,
		       innovation_index, execution_readiness, scalability_potential,
		       business_plan, extraction_confidence, processed_inputs,
		       failure_stage, failure_detail,
		       admin_status, admin_notes, priority_level, risk_assessment,
		       application_cohort, admin_decision_by, admin_decision_date,
		       version, created_at, updated_at
		FROM evaluations
		WHERE id = $1`, id).Scan(
		&ev.ID, &ev.UserID, &ev.Title, &ev.Description, &ev.Industry,
		&ev.TargetMarket, &ev.Language, &ev.InputType, &ev.Status,
		&overallScore, &marketViability, &financialFeasibility,
		&innovationIndex, &executionReadiness, &scalabilityPotential,
		&businessPlan, &extractionConfidence, &processedInputs,
		&failureStage, &failureDetail,
		&ev.AdminStatus, &adminNotes, &priorityLevel, &riskAssessment,
		&cohort, &decisionBy, &decisionDate,
		&ev.Version, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewEvaluationNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get evaluation", err)
	}

	ev.OverallScore = nullFloat(overallScore)
	ev.MarketViability = nullFloat(marketViability)
	ev.FinancialFeasibility = nullFloat(financialFeasibility)
	ev.InnovationIndex = nullFloat(innovationIndex)
	ev.ExecutionReadiness = nullFloat(executionReadiness)
	ev.ScalabilityPotential = nullFloat(scalabilityPotential)
	ev.ExtractionConfidence = nullFloat(extractionConfidence)
	ev.BusinessPlanJSON = json.RawMessage(businessPlan)
	ev.ProcessedInputs = json.RawMessage(processedInputs)
	if failureStage.Valid {
		stage := models.FailureStage(failureStage.String)
		ev.FailureStage = &stage
	}
	ev.FailureDetail = nullString(failureDetail)
	ev.AdminNotes = adminNotes.String
	ev.PriorityLevel = priorityLevel.String
	ev.RiskAssessment = riskAssessment.String
	ev.ApplicationCohort = cohort.String
	ev.AdminDecisionBy = nullString(decisionBy)
	if decisionDate.Valid {
		t := decisionDate.Time
		ev.AdminDecisionDate = &t
	}
	return ev, nil
}

// BeginProcessing claims the evaluation for a pipeline run. Only pending and
// failed evaluations are claimable; the version bump fences stale writers for
// the rest of the run. Returns the row version after the claim.
func (s *EvaluationStore) BeginProcessing(ctx context.Context, id string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `
		UPDATE evaluations
		SET status = 'processing',
		    failure_stage = NULL,
		    failure_detail = NULL,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')
		RETURNING version`, id).Scan(&version)
	if err == sql.ErrNoRows {
		// Either the row does not exist or another run holds it.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, apperrors.NewRunInProgressError(id)
	}
	if err != nil {
		return 0, apperrors.NewPersistenceError("begin processing", err)
	}
	return version, nil
}

// CompletionUpdate carries everything a successful run writes in one guarded
// update. Score dimensions are already on the 0-100 scale.
type CompletionUpdate struct {
	OverallScore         float64
	MarketViability      float64
	ExecutionReadiness   float64
	FinancialFeasibility float64
	InnovationIndex      float64
	ScalabilityPotential float64
	BusinessPlanJSON     json.RawMessage
	ExtractionConfidence float64
	ProcessedInputs      json.RawMessage
}

// MarkCompleted finishes a run the claiming writer started. The version guard
// rejects writers whose claim was superseded.
func (s *EvaluationStore) MarkCompleted(ctx context.Context, id string, version int, upd *CompletionUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE evaluations
		SET status = 'completed',
		    overall_score = $3,
		    market_viability = $4,
		    execution_readiness = $5,
		    financial_feasibility = $6,
		    innovation_index = $7,
		    scalability_potential = $8,
		    business_plan = $9,
		    extraction_confidence = $10,
		    processed_inputs = $11,
		    failure_stage = NULL,
		    failure_detail = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = 'processing'`,
		id, version,
		upd.OverallScore, upd.MarketViability, upd.ExecutionReadiness,
		upd.FinancialFeasibility, upd.InnovationIndex, upd.ScalabilityPotential,
		[]byte(upd.BusinessPlanJSON), upd.ExtractionConfidence, []byte(upd.ProcessedInputs),
	)
	if err != nil {
		return apperrors.NewPersistenceError("mark completed", err)
	}
	return s.requireOneRow(res, "mark completed", id)
}

// MarkFailed records a failed run with the stage that broke and a detail
// message, under the same version guard as MarkCompleted.
func (s *EvaluationStore) MarkFailed(ctx context.Context, id string, version int, stage models.FailureStage, detail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE evaluations
		SET status = 'failed',
		    failure_stage = $3,
		    failure_detail = $4,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = 'processing'`,
		id, version, string(stage), detail,
	)
	if err != nil {
		return apperrors.NewPersistenceError("mark failed", err)
	}
	return s.requireOneRow(res, "mark failed", id)
}

// AdminStatusUpdate is the moderation patch applied by UpdateAdminStatus.
// Optional fields stay untouched when nil.
type AdminStatusUpdate struct {
	AdminStatus       models.AdminStatus
	AdminNotes        *string
	PriorityLevel     *string
	RiskAssessment    *string
	ApplicationCohort *string
	DecidedBy         string
}

// UpdateAdminStatus applies a moderation decision. It never touches the
// pipeline status column.
func (s *EvaluationStore) UpdateAdminStatus(ctx context.Context, id string, upd *AdminStatusUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE evaluations
		SET admin_status = $2,
		    admin_notes = COALESCE($3, admin_notes),
		    priority_level = COALESCE($4, priority_level),
		    risk_assessment = COALESCE($5, risk_assessment),
		    application_cohort = COALESCE($6, application_cohort),
		    admin_decision_by = $7,
		    admin_decision_date = $8,
		    updated_at = NOW()
		WHERE id = $1`,
		id, upd.AdminStatus,
		upd.AdminNotes, upd.PriorityLevel, upd.RiskAssessment, upd.ApplicationCohort,
		upd.DecidedBy, time.Now().UTC(),
	)
	if err != nil {
		return apperrors.NewPersistenceError("update admin status", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError("update admin status", err)
	}
	if affected == 0 {
		return apperrors.NewEvaluationNotFoundError(id)
	}
	return nil
}

func (s *EvaluationStore) requireOneRow(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError(op, err)
	}
	if affected == 0 {
		s.logger.Warn("guarded update lost its claim", map[string]interface{}{
			"evaluationId": id,
			"op":           op,
		})
		return apperrors.NewPersistenceError(op, sql.ErrNoRows)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	str := v.String
	return &str
}
