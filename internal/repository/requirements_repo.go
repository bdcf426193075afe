package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/caretrack/priorauth/internal/models"
	"go.uber.org/zap"
)

// RequirementsRepository serves the locally cached payer requirements
// snapshot. The rules collaborator owns the data; this subsystem only
// reads it, apart from Upsert which the refresh job uses.
type RequirementsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequirementsRepository creates a new requirements repository
func NewRequirementsRepository(db *sql.DB, logger *zap.Logger) *RequirementsRepository {
	return &RequirementsRepository{
		db:     db,
		logger: logger,
	}
}

// Lookup retrieves the requirements for (payer, service type).
// A missing snapshot is not an error: it returns (nil, nil) and the
// caller decides how to fail closed.
func (r *RequirementsRepository) Lookup(ctx context.Context, payerID, serviceType string) (*models.PayerRequirements, error) {
	query := `
		SELECT id, payer_id, service_type, approved_procedures, approved_diagnoses,
			max_cost, conditions, required_documents, updated_at
		FROM payer_requirements
		WHERE payer_id = ? AND service_type = ?
	`

	var req models.PayerRequirements
	var procedures, diagnoses, conditions, documents string
	var maxCost sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, payerID, serviceType).Scan(
		&req.ID,
		&req.PayerID,
		&req.ServiceType,
		&procedures,
		&diagnoses,
		&maxCost,
		&conditions,
		&documents,
		&req.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to look up payer requirements",
			zap.String("payer_id", payerID),
			zap.String("service_type", serviceType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to look up payer requirements: %w", err)
	}

	if maxCost.Valid {
		req.MaxCost = &maxCost.Float64
	}
	if req.ApprovedProcedures, err = unmarshalStrings(procedures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approved procedures: %w", err)
	}
	if req.ApprovedDiagnoses, err = unmarshalStrings(diagnoses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approved diagnoses: %w", err)
	}
	if req.RequiredDocuments, err = unmarshalStrings(documents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal required documents: %w", err)
	}
	if conditions != "" && conditions != "[]" {
		if err := json.Unmarshal([]byte(conditions), &req.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	return &req, nil
}

// Upsert replaces the snapshot for (payer, service type). Used by the
// periodic refresh from the rules collaborator.
func (r *RequirementsRepository) Upsert(ctx context.Context, req *models.PayerRequirements) error {
	procedures, err := marshalJSON(req.ApprovedProcedures)
	if err != nil {
		return fmt.Errorf("failed to marshal approved procedures: %w", err)
	}
	diagnoses, err := marshalJSON(req.ApprovedDiagnoses)
	if err != nil {
		return fmt.Errorf("failed to marshal approved diagnoses: %w", err)
	}
	conditions, err := marshalJSON(req.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	documents, err := marshalJSON(req.RequiredDocuments)
	if err != nil {
		return fmt.Errorf("failed to marshal required documents: %w", err)
	}

	query := `
		INSERT INTO payer_requirements (
			payer_id, service_type, approved_procedures, approved_diagnoses,
			max_cost, conditions, required_documents, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(payer_id, service_type) DO UPDATE SET
			approved_procedures = excluded.approved_procedures,
			approved_diagnoses = excluded.approved_diagnoses,
			max_cost = excluded.max_cost,
			conditions = excluded.conditions,
			required_documents = excluded.required_documents,
			updated_at = CURRENT_TIMESTAMP
	`

	var maxCost interface{}
	if req.MaxCost != nil {
		maxCost = *req.MaxCost
	}

	_, err = r.db.ExecContext(ctx, query,
		req.PayerID,
		req.ServiceType,
		procedures,
		diagnoses,
		maxCost,
		conditions,
		documents,
	)
	if err != nil {
		r.logger.Error("Failed to upsert payer requirements",
			zap.String("payer_id", req.PayerID),
			zap.String("service_type", req.ServiceType),
			zap.Error(err))
		return fmt.Errorf("failed to upsert payer requirements: %w", err)
	}

	return nil
}
