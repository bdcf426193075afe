package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations holds every schema migration in order. Migrations live in
// code rather than on disk so tests can bring an in-memory database to
// the current schema.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_authorization_requests",
		SQL: `
			CREATE TABLE IF NOT EXISTS authorization_requests (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				request_number TEXT NOT NULL UNIQUE,
				patient_id TEXT NOT NULL,
				provider_id TEXT NOT NULL,
				practice_id TEXT NOT NULL,
				payer_id TEXT NOT NULL DEFAULT '',
				payer_name TEXT NOT NULL DEFAULT '',
				service_type TEXT NOT NULL DEFAULT '',
				procedure_codes TEXT NOT NULL DEFAULT '[]',
				diagnosis_codes TEXT NOT NULL DEFAULT '[]',
				service_date DATETIME NOT NULL,
				urgency_level TEXT NOT NULL DEFAULT 'routine',
				estimated_cost REAL NOT NULL DEFAULT 0,
				priority_score INTEGER NOT NULL DEFAULT 0,
				workflow_state TEXT NOT NULL DEFAULT 'intake',
				status TEXT NOT NULL DEFAULT 'draft',
				clinical_notes TEXT NOT NULL DEFAULT '',
				supporting_documents TEXT NOT NULL DEFAULT '[]',
				created_by TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_requests_state ON authorization_requests(workflow_state);
			CREATE INDEX IF NOT EXISTS idx_requests_priority ON authorization_requests(priority_score DESC, created_at ASC);
		`,
	},
	{
		Version: 2,
		Name:    "create_workflow_history",
		SQL: `
			CREATE TABLE IF NOT EXISTS workflow_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				authorization_id INTEGER NOT NULL REFERENCES authorization_requests(id),
				state TEXT NOT NULL,
				status TEXT NOT NULL,
				notes TEXT NOT NULL DEFAULT '',
				actor TEXT NOT NULL DEFAULT '',
				timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_history_authorization ON workflow_history(authorization_id, id);
		`,
	},
	{
		Version: 3,
		Name:    "create_decisions",
		SQL: `
			CREATE TABLE IF NOT EXISTS decisions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				authorization_id INTEGER NOT NULL REFERENCES authorization_requests(id),
				decision TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				authorization_number TEXT NOT NULL,
				reviewer TEXT NOT NULL,
				decided_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_decisions_authorization ON decisions(authorization_id);
		`,
	},
	{
		Version: 4,
		Name:    "create_payer_requirements",
		SQL: `
			CREATE TABLE IF NOT EXISTS payer_requirements (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				payer_id TEXT NOT NULL,
				service_type TEXT NOT NULL,
				approved_procedures TEXT NOT NULL DEFAULT '[]',
				approved_diagnoses TEXT NOT NULL DEFAULT '[]',
				max_cost REAL,
				conditions TEXT NOT NULL DEFAULT '[]',
				required_documents TEXT NOT NULL DEFAULT '[]',
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(payer_id, service_type)
			);
		`,
	},
	{
		Version: 5,
		Name:    "create_patients",
		SQL: `
			CREATE TABLE IF NOT EXISTS patients (
				id TEXT PRIMARY KEY,
				payer_id TEXT NOT NULL DEFAULT '',
				payer_name TEXT NOT NULL DEFAULT '',
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
}

// Migrator handles database migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

// getAppliedMigrations returns the list of applied migration versions
func (m *Migrator) getAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RunMigrations executes all pending migrations
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		tx, err := m.db.BeginTx(context.Background())
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	m.logger.Info("Database migrations complete", zap.Int("count", len(migrations)))
	return nil
}
