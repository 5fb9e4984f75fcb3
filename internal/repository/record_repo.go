package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/models"
)

// RecordRepository handles reimbursement record persistence. The audit core
// only creates and reads; updates serve settlement and corrections.
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// RecordUpdate carries the fields of a partial update. Nil fields are left
// untouched.
type RecordUpdate struct {
	StaffName      *string
	Amount         *decimal.Decimal
	Status         *string
	Reference      *string
	ClientLocation *string
	Category       *string
}

const recordColumns = `id, staff_name, amount, status, reference, client_location,
	category, receipt_date, created_at, raw_text`

// Create persists a new record and returns its id.
func (r *RecordRepository) Create(record *models.ReimbursementRecord) (string, error) {
	query := `
		INSERT INTO reimbursement_records (
			id, staff_name, amount, status, reference, client_location,
			category, receipt_date, created_at, raw_text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		record.ID,
		record.StaffName,
		record.Amount.StringFixed(2),
		record.Status,
		record.Reference,
		record.ClientLocation,
		record.Category,
		record.ReceiptDate,
		record.CreatedAt,
		record.RawText,
	)
	if err != nil {
		r.logger.Error("Failed to create record", zap.Error(err))
		return "", fmt.Errorf("failed to create record: %w", err)
	}

	return record.ID, nil
}

// ListAll returns every persisted record in creation order. Reports always
// recompute over this full collection rather than an incremental cache.
func (r *RecordRepository) ListAll() ([]*models.ReimbursementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM reimbursement_records ORDER BY created_at, id`, recordColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list records", zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*models.ReimbursementRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetByID retrieves one record, or nil when absent.
func (r *RecordRepository) GetByID(id string) (*models.ReimbursementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM reimbursement_records WHERE id = ?`, recordColumns)

	record, err := scanRecord(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get record", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

// Update applies a partial update to one record.
func (r *RecordRepository) Update(id string, update RecordUpdate) error {
	var sets []string
	var args []interface{}

	if update.StaffName != nil {
		sets = append(sets, "staff_name = ?")
		args = append(args, *update.StaffName)
	}
	if update.Amount != nil {
		if update.Amount.IsNegative() {
			return fmt.Errorf("record amount must not be negative, got %s", update.Amount.String())
		}
		sets = append(sets, "amount = ?")
		args = append(args, update.Amount.StringFixed(2))
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.Reference != nil {
		sets = append(sets, "reference = ?")
		args = append(args, *update.Reference)
	}
	if update.ClientLocation != nil {
		sets = append(sets, "client_location = ?")
		args = append(args, *update.ClientLocation)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}

	if len(sets) == 0 {
		return fmt.Errorf("no fields to update")
	}

	query := fmt.Sprintf("UPDATE reimbursement_records SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Error("Failed to update record", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %s not found", id)
	}

	return nil
}

// BulkDelete removes the given records in one statement.
func (r *RecordRepository) BulkDelete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	query := fmt.Sprintf("DELETE FROM reimbursement_records WHERE id IN (%s)", placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		r.logger.Error("Failed to bulk delete records", zap.Int("count", len(ids)), zap.Error(err))
		return fmt.Errorf("failed to bulk delete records: %w", err)
	}

	r.logger.Info("Records deleted", zap.Int("count", len(ids)))
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.ReimbursementRecord, error) {
	var record models.ReimbursementRecord
	var amountStr string
	var receiptDate sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.StaffName,
		&amountStr,
		&record.Status,
		&record.Reference,
		&record.ClientLocation,
		&record.Category,
		&receiptDate,
		&record.CreatedAt,
		&record.RawText,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q on record %s: %w", amountStr, record.ID, err)
	}
	record.Amount = amount

	if receiptDate.Valid {
		record.ReceiptDate = receiptDate.Time
	} else {
		record.ReceiptDate = time.Time{}
	}

	return &record, nil
}
