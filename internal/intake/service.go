// internal/intake/service.go

// Package intake registers uploaded artifacts: blob write first, then the
// database record. The pipeline only ever sees files whose record exists.
package intake

import (
	"context"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/storage"
	"idea-eval-workers/internal/models"
	"idea-eval-workers/internal/store"
)

// FileUpload is one artifact handed in for registration.
type FileUpload struct {
	FileName    string
	FileType    models.FileType
	ContentType string
	Data        []byte
}

// Service registers intake files against an evaluation.
type Service struct {
	blobs  *storage.BlobStore
	files  *store.IntakeFileStore
	audit  *store.AuditStore
	logger logger.Logger
}

func NewService(blobs *storage.BlobStore, files *store.IntakeFileStore, audit *store.AuditStore, log logger.Logger) *Service {
	return &Service{
		blobs:  blobs,
		files:  files,
		audit:  audit,
		logger: log.WithFields(map[string]interface{}{"component": "intake"}),
	}
}

// RegisterFile uploads the artifact and creates its record. When the blob
// write fails nothing is recorded. When the insert fails after a successful
// upload the blob is left orphaned; reconciliation picks those up offline.
func (s *Service) RegisterFile(ctx context.Context, evaluationID string, upload *FileUpload) (*models.IntakeFile, error) {
	url, key, err := s.blobs.Upload(ctx, evaluationID, upload.FileName, upload.ContentType, upload.Data)
	if err != nil {
		return nil, apperrors.NewStorageWriteError(key, err)
	}

	file := &models.IntakeFile{
		EvaluationID: evaluationID,
		FileType:     upload.FileType,
		FileName:     upload.FileName,
		FileURL:      url,
		UploadStatus: models.UploadCompleted,
	}
	if err := s.files.Insert(ctx, file); err != nil {
		s.logger.WithError(err).Warn("file record insert failed, blob orphaned", map[string]interface{}{
			"evaluationId": evaluationID,
			"objectKey":    key,
		})
		return nil, err
	}

	s.audit.Record(ctx, &store.AuditEntry{
		Action:       models.EventFileRegistered,
		ResourceType: models.ResourceIntakeFile,
		ResourceID:   file.ID,
	})

	s.logger.Info("file registered", map[string]interface{}{
		"evaluationId": evaluationID,
		"fileId":       file.ID,
		"fileType":     upload.FileType,
	})
	return file, nil
}
