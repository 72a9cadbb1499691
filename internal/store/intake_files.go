// internal/store/intake_files.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
)

// IntakeFileStore persists uploaded artifacts and their extraction results.
type IntakeFileStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewIntakeFileStore(db *sql.DB, log logger.Logger) *IntakeFileStore {
	return &IntakeFileStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "intake_files"}),
	}
}

// Insert creates the file record after the blob write succeeded.
func (s *IntakeFileStore) Insert(ctx context.Context, f *models.IntakeFile) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.UploadStatus == "" {
		f.UploadStatus = models.UploadCompleted
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO application_files (
			id, evaluation_id, file_type, file_name, file_url,
			upload_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		f.ID, f.EvaluationID, f.FileType, f.FileName, f.FileURL, f.UploadStatus,
	)
	if err != nil {
		return apperrors.NewPersistenceError("insert intake file", err)
	}
	return nil
}

// ListByEvaluation returns the files of one evaluation in registration order.
// The extraction loop and the input concatenation both depend on this order.
func (s *IntakeFileStore) ListByEvaluation(ctx context.Context, evaluationID string) ([]*models.IntakeFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, evaluation_id, file_type, file_name, file_url,
		       upload_status, extracted_text, confidence_score,
		       processing_results, created_at, updated_at
		FROM application_files
		WHERE evaluation_id = $1
		ORDER BY created_at, id`, evaluationID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list intake files", err)
	}
	defer rows.Close()

	var files []*models.IntakeFile
	for rows.Next() {
		f := &models.IntakeFile{}
		var (
			extractedText sql.NullString
			confidence    sql.NullFloat64
			results       []byte
		)
		if err := rows.Scan(
			&f.ID, &f.EvaluationID, &f.FileType, &f.FileName, &f.FileURL,
			&f.UploadStatus, &extractedText, &confidence, &results,
			&f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewPersistenceError("scan intake file", err)
		}
		f.ExtractedText = nullString(extractedText)
		f.ConfidenceScore = nullFloat(confidence)
		f.ProcessingResults = json.RawMessage(results)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("list intake files", err)
	}
	return files, nil
}

// SaveExtraction writes the per-file extraction result once the adapter call
// for that file succeeded.
func (s *IntakeFileStore) SaveExtraction(ctx context.Context, fileID, text string, confidence float64, results json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE application_files
		SET extracted_text = $2,
		    confidence_score = $3,
		    processing_results = $4,
		    updated_at = NOW()
		WHERE id = $1`,
		fileID, text, confidence, []byte(results),
	)
	if err != nil {
		return apperrors.NewPersistenceError("save extraction", err)
	}
	return nil
}
