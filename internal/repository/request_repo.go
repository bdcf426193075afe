package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caretrack/priorauth/internal/models"
	"go.uber.org/zap"
)

// RequestRepository handles authorization request database operations
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `id, request_number, patient_id, provider_id, practice_id,
	payer_id, payer_name, service_type, procedure_codes, diagnosis_codes,
	service_date, urgency_level, estimated_cost, priority_score,
	workflow_state, status, clinical_notes, supporting_documents,
	created_by, created_at, updated_at`

// Create creates a new authorization request
func (r *RequestRepository) Create(ctx context.Context, tx *sql.Tx, req *models.AuthorizationRequest) error {
	procedures, err := marshalJSON(req.ProcedureCodes)
	if err != nil {
		return fmt.Errorf("failed to marshal procedure codes: %w", err)
	}
	diagnoses, err := marshalJSON(req.DiagnosisCodes)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnosis codes: %w", err)
	}
	documents, err := marshalJSON(req.Documents)
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}

	query := `
		INSERT INTO authorization_requests (
			request_number, patient_id, provider_id, practice_id,
			payer_id, payer_name, service_type, procedure_codes, diagnosis_codes,
			service_date, urgency_level, estimated_cost, priority_score,
			workflow_state, status, clinical_notes, supporting_documents, created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		req.RequestNumber,
		req.PatientID,
		req.ProviderID,
		req.PracticeID,
		req.PayerID,
		req.PayerName,
		req.ServiceType,
		procedures,
		diagnoses,
		req.ServiceDate,
		req.UrgencyLevel,
		req.EstimatedCost,
		req.PriorityScore,
		req.WorkflowState,
		req.Status,
		req.ClinicalNotes,
		documents,
		req.CreatedBy,
	}

	var result sql.Result
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, args...)
	} else {
		result, err = r.db.ExecContext(ctx, query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves an authorization request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.AuthorizationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM authorization_requests WHERE id = ?`, requestColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByRequestNumber retrieves a request by its human-readable number
func (r *RequestRepository) GetByRequestNumber(ctx context.Context, number string) (*models.AuthorizationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM authorization_requests WHERE request_number = ?`, requestColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, number))
}

// UpdateState performs a guarded state change. The WHERE clause compares
// against the state the caller read, so a concurrent writer who got
// there first makes this update match zero rows and the caller sees
// ErrStaleState instead of silently overwriting their transition.
func (r *RequestRepository) UpdateState(ctx context.Context, tx *sql.Tx, id int64, fromState, toState, status string) error {
	query := `
		UPDATE authorization_requests
		SET workflow_state = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND workflow_state = ?
	`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, toState, status, id, fromState)
	} else {
		result, err = r.db.ExecContext(ctx, query, toState, status, id, fromState)
	}

	if err != nil {
		r.logger.Error("Failed to update state",
			zap.Int64("id", id),
			zap.String("from", fromState),
			zap.String("to", toState),
			zap.Error(err))
		return fmt.Errorf("failed to update state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleState
	}

	return nil
}

// UpdateEnrichment persists enrichment-derived fields and the priority score
func (r *RequestRepository) UpdateEnrichment(ctx context.Context, tx *sql.Tx, req *models.AuthorizationRequest) error {
	query := `
		UPDATE authorization_requests
		SET payer_id = ?, payer_name = ?, service_type = ?, urgency_level = ?,
			estimated_cost = ?, priority_score = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, req.PayerID, req.PayerName, req.ServiceType,
			req.UrgencyLevel, req.EstimatedCost, req.PriorityScore, req.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, req.PayerID, req.PayerName, req.ServiceType,
			req.UrgencyLevel, req.EstimatedCost, req.PriorityScore, req.ID)
	}

	if err != nil {
		r.logger.Error("Failed to update enrichment fields", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update enrichment fields: %w", err)
	}
	return nil
}

// ListActive retrieves non-terminal requests ordered by priority score
// descending, oldest first at equal priority
func (r *RequestRepository) ListActive(ctx context.Context, terminalState string, limit int) ([]*models.AuthorizationRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM authorization_requests
		WHERE workflow_state != ?
		ORDER BY priority_score DESC, created_at ASC
		LIMIT ?
	`, requestColumns)

	rows, err := r.db.QueryContext(ctx, query, terminalState, limit)
	if err != nil {
		r.logger.Error("Failed to list active requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list active requests: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListNearingDeadline retrieves non-terminal requests whose service date
// falls on or before the cutoff
func (r *RequestRepository) ListNearingDeadline(ctx context.Context, terminalState string, cutoff time.Time, limit int) ([]*models.AuthorizationRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM authorization_requests
		WHERE workflow_state != ? AND service_date <= ?
		ORDER BY service_date ASC
		LIMIT ?
	`, requestColumns)

	rows, err := r.db.QueryContext(ctx, query, terminalState, cutoff, limit)
	if err != nil {
		r.logger.Error("Failed to list requests nearing deadline", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests nearing deadline: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// List retrieves requests with pagination, newest first
func (r *RequestRepository) List(ctx context.Context, limit, offset int) ([]*models.AuthorizationRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM authorization_requests
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, requestColumns)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RequestRepository) scanRequest(row rowScanner) (*models.AuthorizationRequest, error) {
	var req models.AuthorizationRequest
	var procedures, diagnoses, documents string

	err := row.Scan(
		&req.ID,
		&req.RequestNumber,
		&req.PatientID,
		&req.ProviderID,
		&req.PracticeID,
		&req.PayerID,
		&req.PayerName,
		&req.ServiceType,
		&procedures,
		&diagnoses,
		&req.ServiceDate,
		&req.UrgencyLevel,
		&req.EstimatedCost,
		&req.PriorityScore,
		&req.WorkflowState,
		&req.Status,
		&req.ClinicalNotes,
		&documents,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.ProcedureCodes, err = unmarshalStrings(procedures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal procedure codes: %w", err)
	}
	if req.DiagnosisCodes, err = unmarshalStrings(diagnoses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnosis codes: %w", err)
	}
	if documents != "" && documents != "[]" {
		if err := json.Unmarshal([]byte(documents), &req.Documents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
		}
	}

	return &req, nil
}

func (r *RequestRepository) scanOne(row *sql.Row) (*models.AuthorizationRequest, error) {
	req, err := r.scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

func (r *RequestRepository) scanAll(rows *sql.Rows) ([]*models.AuthorizationRequest, error) {
	var requests []*models.AuthorizationRequest
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
