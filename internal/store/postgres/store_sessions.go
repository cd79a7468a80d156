package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, client_id, title, user_identifier, config, archived, created_at, last_activity, total_tokens, message_count`

func scanSession(row pgx.Row) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(
		&session.ID,
		&session.ClientID,
		&session.Title,
		&session.UserIdentifier,
		&session.Config,
		&session.Archived,
		&session.CreatedAt,
		&session.LastActivity,
		&session.TotalTokens,
		&session.MessageCount,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CreateSession inserts a new conversation session and returns the
// stored row.
func (s *PostgresStore) CreateSession(ctx context.Context, arg store.CreateSessionParams) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, client_id, title, user_identifier, config)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + sessionColumns

	session, err := scanSession(s.db.QueryRow(ctx, query,
		arg.ID,
		arg.ClientID,
		arg.Title,
		arg.UserIdentifier,
		arg.Config,
	))
	if err != nil {
		return nil, fmt.Errorf("database error creating session: %w", err)
	}
	return session, nil
}

// GetSessionByID retrieves a session scoped to its owning client.
func (s *PostgresStore) GetSessionByID(ctx context.Context, id, clientID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND client_id = $2`

	session, err := scanSession(s.db.QueryRow(ctx, query, id, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching session: %w", err)
	}
	return session, nil
}

// ListSessionsByClient retrieves a page of a client's sessions, most
// recently active first.
func (s *PostgresStore) ListSessionsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE client_id = $1 AND NOT archived
		ORDER BY last_activity DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("database error listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning session row: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating session rows: %w", err)
	}
	return sessions, nil
}

// UpdateSessionConfig replaces a session's config blob.
func (s *PostgresStore) UpdateSessionConfig(ctx context.Context, id, clientID uuid.UUID, config json.RawMessage) error {
	query := `
		UPDATE sessions SET config = $3
		WHERE id = $1 AND client_id = $2`

	tag, err := s.db.Exec(ctx, query, id, clientID, config)
	if err != nil {
		return fmt.Errorf("database error updating session config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// TouchSession bumps last_activity and accumulates token usage. Called
// once per completed chat exchange.
func (s *PostgresStore) TouchSession(ctx context.Context, id uuid.UUID, addedTokens int64) error {
	query := `
		UPDATE sessions
		SET last_activity = NOW(), total_tokens = total_tokens + $2
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id, addedTokens)
	if err != nil {
		return fmt.Errorf("database error touching session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteSession archives a session. Its messages stay around for usage
// accounting but the session disappears from listings.
func (s *PostgresStore) DeleteSession(ctx context.Context, id, clientID uuid.UUID) error {
	query := `UPDATE sessions SET archived = TRUE WHERE id = $1 AND client_id = $2`

	tag, err := s.db.Exec(ctx, query, id, clientID)
	if err != nil {
		return fmt.Errorf("database error archiving session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const messageColumns = `id, session_id, role, content, metadata, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	msg := &models.Message{}
	err := row.Scan(
		&msg.ID,
		&msg.SessionID,
		&msg.Role,
		&msg.Content,
		&msg.Metadata,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateMessage appends a turn to a session and bumps its message
// count.
func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (session_id, role, content, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns

	msg, err := scanMessage(tx.QueryRow(ctx, query,
		arg.SessionID,
		arg.Role,
		arg.Content,
		arg.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("database error creating message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET message_count = message_count + 1 WHERE id = $1`,
		arg.SessionID,
	); err != nil {
		return nil, fmt.Errorf("database error bumping message count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing message: %w", err)
	}
	return msg, nil
}

// ListRecentMessages returns the newest limit messages of a session in
// chronological order.
func (s *PostgresStore) ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC`

	rows, err := s.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning message row: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating message rows: %w", err)
	}
	return messages, nil
}

// CountMessages returns the number of messages stored for a session.
func (s *PostgresStore) CountMessages(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting messages: %w", err)
	}
	return count, nil
}
