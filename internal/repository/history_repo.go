package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/caretrack/priorauth/internal/models"
	"go.uber.org/zap"
)

// HistoryRepository handles workflow history database operations.
// History rows are append-only; there are no update or delete paths.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a new history record
func (r *HistoryRepository) Create(ctx context.Context, tx *sql.Tx, entry *models.WorkflowHistoryEntry) error {
	query := `
		INSERT INTO workflow_history (
			authorization_id, state, status, notes, actor
		) VALUES (?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.ExecContext(ctx, query,
			entry.AuthorizationID,
			entry.State,
			entry.Status,
			entry.Notes,
			entry.Actor,
		)
	} else {
		result, err = r.db.ExecContext(ctx, query,
			entry.AuthorizationID,
			entry.State,
			entry.Status,
			entry.Notes,
			entry.Actor,
		)
	}

	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByAuthorizationID retrieves the ordered history for a request
func (r *HistoryRepository) GetByAuthorizationID(ctx context.Context, authorizationID int64) ([]*models.WorkflowHistoryEntry, error) {
	query := `
		SELECT id, authorization_id, state, status, notes, actor, timestamp
		FROM workflow_history
		WHERE authorization_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, authorizationID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.Int64("authorization_id", authorizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []*models.WorkflowHistoryEntry
	for rows.Next() {
		var entry models.WorkflowHistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.AuthorizationID,
			&entry.State,
			&entry.Status,
			&entry.Notes,
			&entry.Actor,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
