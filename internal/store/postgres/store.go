package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, organization_id, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1`

	user := &models.User{}
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.OrganizationID,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user record into the database.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, organization_id, email, hashed_password)
		VALUES ($1, $2, $3, $4)`
	// created_at and updated_at have database defaults (NOW()).

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.OrganizationID,
		user.Email,
		user.HashedPassword,
	)
	if err != nil {
		if isUniqueViolation(err) {
			log.Printf("WARN [PostgresStore] CreateUser: duplicate email %s", user.Email)
		}
		return fmt.Errorf("database error creating user: %w", err)
	}
	return nil
}

// CreateOrganization inserts a new organization record into the database.
func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name)
		VALUES ($1, $2)`

	if _, err := s.db.Exec(ctx, query, org.ID, org.Name); err != nil {
		return fmt.Errorf("database error creating organization: %w", err)
	}
	return nil
}

const clientColumns = `id, organization_id, name, email, api_key, config, is_active, created_at, updated_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	client := &models.Client{}
	err := row.Scan(
		&client.ID,
		&client.OrganizationID,
		&client.Name,
		&client.Email,
		&client.APIKey,
		&client.Config,
		&client.IsActive,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// CreateClient inserts a new client (tenant) and returns the stored row.
func (s *PostgresStore) CreateClient(ctx context.Context, arg store.CreateClientParams) (*models.Client, error) {
	query := `
		INSERT INTO clients (id, organization_id, name, email, api_key, config, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING ` + clientColumns

	client, err := scanClient(s.db.QueryRow(ctx, query,
		arg.ID,
		arg.OrganizationID,
		arg.Name,
		arg.Email,
		arg.APIKey,
		arg.Config,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("client email or api key already exists: %w", err)
		}
		return nil, fmt.Errorf("database error creating client: %w", err)
	}
	return client, nil
}

// GetClientByID retrieves a client scoped to its organization.
func (s *PostgresStore) GetClientByID(ctx context.Context, id, orgID uuid.UUID) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND organization_id = $2`

	client, err := scanClient(s.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching client: %w", err)
	}
	return client, nil
}

// GetClientByAPIKey retrieves a client by its API key. Used by the
// widget-auth middleware on every request.
func (s *PostgresStore) GetClientByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE api_key = $1`

	client, err := scanClient(s.db.QueryRow(ctx, query, apiKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching client by api key: %w", err)
	}
	return client, nil
}

// ListClientsByOrg retrieves all clients of an organization, newest first.
func (s *PostgresStore) ListClientsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE organization_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("database error listing clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning client row: %w", err)
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating client rows: %w", err)
	}
	return clients, nil
}

// UpdateClient applies a partial update and returns the stored row.
func (s *PostgresStore) UpdateClient(ctx context.Context, arg store.UpdateClientParams) (*models.Client, error) {
	query := `
		UPDATE clients
		SET name       = COALESCE($3, name),
		    config     = COALESCE($4, config),
		    is_active  = COALESCE($5, is_active),
		    updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
		RETURNING ` + clientColumns

	client, err := scanClient(s.db.QueryRow(ctx, query,
		arg.ID,
		arg.OrganizationID,
		arg.Name,
		arg.Config,
		arg.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error updating client: %w", err)
	}
	return client, nil
}

// UpdateClientAPIKey replaces a client's API key.
func (s *PostgresStore) UpdateClientAPIKey(ctx context.Context, id, orgID uuid.UUID, apiKey string) error {
	query := `
		UPDATE clients SET api_key = $3, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2`

	tag, err := s.db.Exec(ctx, query, id, orgID, apiKey)
	if err != nil {
		return fmt.Errorf("database error rotating client api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteClient removes a client and, via FK cascade, its sessions.
func (s *PostgresStore) DeleteClient(ctx context.Context, id, orgID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM clients WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("database error deleting client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
