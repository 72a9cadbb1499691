// internal/store/intake_files_test.go
package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/models"
)

func newIntakeFileStore(t *testing.T) (*IntakeFileStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewIntakeFileStore(db, logger.NewTestLogger(t)), mock
}

func TestIntakeFileStoreInsert(t *testing.T) {
	s, mock := newIntakeFileStore(t)

	mock.ExpectExec(`INSERT INTO application_files`).
		WithArgs(sqlmock.AnyArg(), "eval-1", models.FileImage, "sketch.png",
			"https://cdn.example.com/eval-1/sketch.png", models.UploadCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f := &models.IntakeFile{
		EvaluationID: "eval-1",
		FileType:     models.FileImage,
		FileName:     "sketch.png",
		FileURL:      "https://cdn.example.com/eval-1/sketch.png",
	}
	err := s.Insert(context.Background(), f)

	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, models.UploadCompleted, f.UploadStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntakeFileStoreListByEvaluationPreservesOrder(t *testing.T) {
	s, mock := newIntakeFileStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "evaluation_id", "file_type", "file_name", "file_url",
		"upload_status", "extracted_text", "confidence_score",
		"processing_results", "created_at", "updated_at",
	}).
		AddRow("file-1", "eval-1", "image", "a.png", "https://cdn/a.png",
			"completed", nil, nil, nil, testTime(), testTime()).
		AddRow("file-2", "eval-1", "voice", "b.mp3", "https://cdn/b.mp3",
			"completed", "transcribed pitch", 0.9, []byte(`{"source":"voice"}`), testTime(), testTime())

	mock.ExpectQuery(`SELECT id, evaluation_id`).
		WithArgs("eval-1").
		WillReturnRows(rows)

	files, err := s.ListByEvaluation(context.Background(), "eval-1")

	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "file-1", files[0].ID)
	assert.Nil(t, files[0].ExtractedText)
	assert.Equal(t, "file-2", files[1].ID)
	require.NotNil(t, files[1].ExtractedText)
	assert.Equal(t, "transcribed pitch", *files[1].ExtractedText)
	require.NotNil(t, files[1].ConfidenceScore)
	assert.Equal(t, 0.9, *files[1].ConfidenceScore)
}

func TestIntakeFileStoreSaveExtraction(t *testing.T) {
	s, mock := newIntakeFileStore(t)

	results := json.RawMessage(`{"source":"image","confidence":0.8}`)
	mock.ExpectExec(`UPDATE application_files`).
		WithArgs("file-1", "extracted text", 0.8, []byte(results)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveExtraction(context.Background(), "file-1", "extracted text", 0.8, results)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
