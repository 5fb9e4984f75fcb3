package database

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigratorCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, NewMigrator(db, zap.NewNop()).Run())

	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'reimbursement_records'",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "reimbursement_records", name)
}

func TestMigratorIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.Run())
	require.NoError(t, migrator.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).Run())

	err := db.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO reimbursement_records (id, staff_name, amount, status)
			VALUES ('tx-1', 'Jane', '10.00', 'PENDING')
		`)
		require.NoError(t, err)
		return fmt.Errorf("deliberate failure")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM reimbursement_records").Scan(&count))
	assert.Equal(t, 0, count, "failed transaction leaves no rows behind")
}

func TestWithTransactionCommits(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).Run())

	err := db.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO reimbursement_records (id, staff_name, amount, status)
			VALUES ('tx-2', 'Jane', '10.00', 'PENDING')
		`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM reimbursement_records").Scan(&count))
	assert.Equal(t, 1, count)
}
