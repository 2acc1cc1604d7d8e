package activity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"loomworks/internal/domain"
	txcontext "loomworks/pkg/platform/tx"
)

// PostgresStore persists the activity stream in the activities table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO activities (id, user_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var entityID *uuid.UUID
	if entry.EntityID != uuid.Nil {
		entityID = &entry.EntityID
	}
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		string(entry.EntityType),
		entityID,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, details, created_at
		FROM activities
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, details, created_at
		FROM activities
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities by user: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			entityType string
			entityID   *uuid.UUID
		)
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entityType,
			&entityID,
			&entry.Details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entry.EntityType = domain.EntityType(entityType)
		if entityID != nil {
			entry.EntityID = *entityID
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return entries, nil
}
