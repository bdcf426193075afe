package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/caretrack/priorauth/internal/models"
	"go.uber.org/zap"
)

// DecisionRepository handles decision database operations
type DecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sql.DB, logger *zap.Logger) *DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a decision for a request
func (r *DecisionRepository) Create(ctx context.Context, tx *sql.Tx, decision *models.Decision) error {
	query := `
		INSERT INTO decisions (
			authorization_id, decision, reason, authorization_number, reviewer
		) VALUES (?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.ExecContext(ctx, query,
			decision.AuthorizationID,
			decision.Decision,
			decision.Reason,
			decision.AuthorizationNumber,
			decision.Reviewer,
		)
	} else {
		result, err = r.db.ExecContext(ctx, query,
			decision.AuthorizationID,
			decision.Decision,
			decision.Reason,
			decision.AuthorizationNumber,
			decision.Reviewer,
		)
	}

	if err != nil {
		r.logger.Error("Failed to create decision", zap.Int64("authorization_id", decision.AuthorizationID), zap.Error(err))
		return fmt.Errorf("failed to create decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	decision.ID = id
	return nil
}

// GetByAuthorizationID retrieves all decisions for a request, newest
// first. Appeals can legitimately produce more than one.
func (r *DecisionRepository) GetByAuthorizationID(ctx context.Context, authorizationID int64) ([]*models.Decision, error) {
	query := `
		SELECT id, authorization_id, decision, reason, authorization_number, reviewer, decided_at
		FROM decisions
		WHERE authorization_id = ?
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, authorizationID)
	if err != nil {
		r.logger.Error("Failed to get decisions", zap.Int64("authorization_id", authorizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to get decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.Decision
	for rows.Next() {
		var d models.Decision
		err := rows.Scan(
			&d.ID,
			&d.AuthorizationID,
			&d.Decision,
			&d.Reason,
			&d.AuthorizationNumber,
			&d.Reviewer,
			&d.DecidedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, &d)
	}

	return decisions, rows.Err()
}

// CountByAuthorizationID returns how many decisions exist for a request
func (r *DecisionRepository) CountByAuthorizationID(ctx context.Context, authorizationID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM decisions WHERE authorization_id = ?",
		authorizationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return count, nil
}
