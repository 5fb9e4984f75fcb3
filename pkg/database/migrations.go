package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered schema history. New changes append here with
// the next version number.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_reimbursement_records",
		SQL: `
			CREATE TABLE IF NOT EXISTS reimbursement_records (
				id TEXT PRIMARY KEY,
				staff_name TEXT NOT NULL,
				amount TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'PENDING',
				reference TEXT NOT NULL DEFAULT 'PENDING',
				client_location TEXT NOT NULL DEFAULT 'UNKNOWN',
				category TEXT NOT NULL DEFAULT '',
				receipt_date DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				raw_text TEXT NOT NULL DEFAULT '',
				CHECK (status IN ('PENDING', 'PAID'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "index_records_created_at",
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_records_created_at
				ON reimbursement_records (created_at);
			CREATE INDEX IF NOT EXISTS idx_records_staff_name
				ON reimbursement_records (staff_name);
		`,
	},
}

// Migrator applies pending schema migrations.
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

// Run applies every migration that has not been applied yet, in version
// order, each inside its own transaction.
func (m *Migrator) Run() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))

		err := m.db.WithTransaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(mig.SQL); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", mig.Version, mig.Name, err)
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				mig.Version, mig.Name,
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
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
