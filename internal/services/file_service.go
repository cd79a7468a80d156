package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"embedchat-backend/internal/files"
	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
)

var ErrNoActiveFile = errors.New("no active file for session")

// FileService ingests session data files. A session holds at most one
// active file; uploading replaces it.
type FileService struct {
	store     store.Store
	processor *files.Processor
}

func NewFileService(s store.Store, processor *files.Processor) *FileService {
	return &FileService{
		store:     s,
		processor: processor,
	}
}

// Upload processes the file and attaches it to the session.
func (s *FileService) Upload(ctx context.Context, clientID, sessionID uuid.UUID, name string, content []byte) (*models.FileUploadResponse, error) {
	if _, err := s.store.GetSessionByID(ctx, sessionID, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	processed, err := s.processor.Process(name, content)
	if err != nil {
		return nil, err
	}

	summaryJSON, err := json.Marshal(processed.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal file summary: %w", err)
	}

	upload, err := s.store.CreateFileUpload(ctx, store.CreateFileUploadParams{
		ID:            uuid.New(),
		SessionID:     sessionID,
		OriginalName:  processed.OriginalName,
		FileType:      processed.Type,
		FileSize:      processed.Size,
		ProcessedData: processed.Data,
		Summary:       summaryJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store file upload: %w", err)
	}

	return mapFileUploadToResponse(upload), nil
}

// GetActive returns the session's active file, if any.
func (s *FileService) GetActive(ctx context.Context, clientID, sessionID uuid.UUID) (*models.FileUploadResponse, error) {
	if _, err := s.store.GetSessionByID(ctx, sessionID, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	upload, err := s.store.GetActiveFileUpload(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActiveFile
		}
		return nil, fmt.Errorf("failed to fetch active file: %w", err)
	}
	return mapFileUploadToResponse(upload), nil
}

// Remove detaches the session's active file.
func (s *FileService) Remove(ctx context.Context, clientID, sessionID uuid.UUID) error {
	if _, err := s.store.GetSessionByID(ctx, sessionID, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to fetch session: %w", err)
	}
	if err := s.store.DeactivateFileUploads(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to deactivate files: %w", err)
	}
	return nil
}

func mapFileUploadToResponse(upload *models.FileUpload) *models.FileUploadResponse {
	return &models.FileUploadResponse{
		FileID:       upload.ID,
		SessionID:    upload.SessionID,
		OriginalName: upload.OriginalName,
		FileType:     upload.FileType,
		FileSize:     upload.FileSize,
		Summary:      upload.Summary,
		UploadedAt:   upload.UploadedAt,
	}
}
