package postgres

import (
	"context"
	"errors"
	"fmt"

	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const fileUploadColumns = `id, session_id, original_name, file_type, file_size, processed_data, summary, is_active, uploaded_at`

func scanFileUpload(row pgx.Row) (*models.FileUpload, error) {
	upload := &models.FileUpload{}
	err := row.Scan(
		&upload.ID,
		&upload.SessionID,
		&upload.OriginalName,
		&upload.FileType,
		&upload.FileSize,
		&upload.ProcessedData,
		&upload.Summary,
		&upload.IsActive,
		&upload.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return upload, nil
}

// CreateFileUpload stores a processed file and deactivates any previous
// upload for the session, so at most one is active at a time.
func (s *PostgresStore) CreateFileUpload(ctx context.Context, arg store.CreateFileUploadParams) (*models.FileUpload, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE file_uploads SET is_active = FALSE WHERE session_id = $1 AND is_active`,
		arg.SessionID,
	); err != nil {
		return nil, fmt.Errorf("database error deactivating previous uploads: %w", err)
	}

	query := `
		INSERT INTO file_uploads (id, session_id, original_name, file_type, file_size, processed_data, summary, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING ` + fileUploadColumns

	upload, err := scanFileUpload(tx.QueryRow(ctx, query,
		arg.ID,
		arg.SessionID,
		arg.OriginalName,
		arg.FileType,
		arg.FileSize,
		arg.ProcessedData,
		arg.Summary,
	))
	if err != nil {
		return nil, fmt.Errorf("database error creating file upload: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing file upload: %w", err)
	}
	return upload, nil
}

// GetActiveFileUpload retrieves the session's active upload, if any.
func (s *PostgresStore) GetActiveFileUpload(ctx context.Context, sessionID uuid.UUID) (*models.FileUpload, error) {
	query := `
		SELECT ` + fileUploadColumns + `
		FROM file_uploads
		WHERE session_id = $1 AND is_active
		ORDER BY uploaded_at DESC
		LIMIT 1`

	upload, err := scanFileUpload(s.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching active file upload: %w", err)
	}
	return upload, nil
}

// DeactivateFileUploads clears a session's active upload.
func (s *PostgresStore) DeactivateFileUploads(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE file_uploads SET is_active = FALSE WHERE session_id = $1 AND is_active`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("database error deactivating file uploads: %w", err)
	}
	return nil
}
