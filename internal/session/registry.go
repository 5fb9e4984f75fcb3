// Package session holds the single-session working set of proposed
// transactions between extraction and confirmation.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/models"
	"github.com/mhartley/claim-audit/internal/reconcile"
)

// Field names accepted by UpdateField.
const (
	FieldName      = "formatted_name"
	FieldAmount    = "amount"
	FieldReference = "current_reference"
	FieldLocation  = "client_location"
	FieldCategory  = "category"
)

// referencePlaceholder is the literal token echoed into generated source
// text at intake. Updating the reference substitutes this token in place.
// If the token is not present, no substitution occurs; that is a documented
// limitation of the literal-token scheme, not a template engine.
const referencePlaceholder = "reference: " + models.ReferencePending

// Registry is the editable proposal set for the in-progress audit.
// Typically one entry; plural is supported. Edits follow a single-threaded
// model: operations never interleave and the last write wins. The mutex
// only guards against concurrent HTTP handlers, not a multi-user protocol.
type Registry struct {
	mu           sync.Mutex
	transactions []models.Transaction
	ledger       *reconcile.Ledger
	logger       *zap.Logger
}

// NewRegistry creates an empty registry with a fresh duplicate ledger.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		ledger: reconcile.NewLedger(),
		logger: logger,
	}
}

// Ledger exposes the session duplicate ledger.
func (r *Registry) Ledger() *reconcile.Ledger {
	return r.ledger
}

// ReplaceAll swaps in a new proposal set, discarding any pending edits.
func (r *Registry) ReplaceAll(list []models.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transactions = make([]models.Transaction, len(list))
	copy(r.transactions, list)

	r.logger.Info("Working set replaced", zap.Int("count", len(list)))
}

// Transactions returns a copy of the current proposal set.
func (r *Registry) Transactions() []models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Transaction, len(r.transactions))
	copy(out, r.transactions)
	return out
}

// UpdateField corrects one field on one proposal. Updating the reference
// also substitutes the intake placeholder token in the generated source
// text so the echoed text stays consistent with the field.
func (r *Registry) UpdateField(index int, field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.transactions) {
		return fmt.Errorf("transaction index %d out of range", index)
	}

	tx := &r.transactions[index]

	switch field {
	case FieldName:
		tx.FormattedName = value
	case FieldAmount:
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", value, err)
		}
		if amount.IsNegative() {
			return fmt.Errorf("amount must not be negative, got %s", value)
		}
		tx.Amount = amount.Round(2)
	case FieldReference:
		tx.CurrentReference = value
		if strings.Contains(tx.SourceText, referencePlaceholder) {
			tx.SourceText = strings.Replace(tx.SourceText, referencePlaceholder, "reference: "+value, 1)
		}
	case FieldLocation:
		tx.ClientLocation = value
	case FieldCategory:
		tx.Category = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	r.logger.Info("Working set field updated",
		zap.Int("index", index), zap.String("field", field))
	return nil
}

// ClearTransactions drops the working set after successful persistence but
// keeps the session duplicate ledger intact for subsequent audits.
func (r *Registry) ClearTransactions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = nil
}

// Reset discards the working set and the session duplicate ledger.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transactions = nil
	r.ledger.Reset()
	r.logger.Info("Audit session reset")
}
