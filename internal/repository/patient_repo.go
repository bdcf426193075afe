package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/caretrack/priorauth/internal/models"
	"go.uber.org/zap"
)

// PatientRepository serves the payer-of-record view of patient records
type PatientRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *sql.DB, logger *zap.Logger) *PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a patient by ID; absent patients return (nil, nil)
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	query := `SELECT id, payer_id, payer_name, updated_at FROM patients WHERE id = ?`

	var patient models.Patient
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&patient.ID,
		&patient.PayerID,
		&patient.PayerName,
		&patient.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get patient", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return &patient, nil
}

// Upsert replaces a patient's payer-of-record entry
func (r *PatientRepository) Upsert(ctx context.Context, patient *models.Patient) error {
	query := `
		INSERT INTO patients (id, payer_id, payer_name, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			payer_id = excluded.payer_id,
			payer_name = excluded.payer_name,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, patient.ID, patient.PayerID, patient.PayerName)
	if err != nil {
		r.logger.Error("Failed to upsert patient", zap.String("id", patient.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert patient: %w", err)
	}
	return nil
}
