package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record status values. The only legal transition is PENDING -> PAID.
const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
)

// Sentinel values for fields that were not captured during intake.
const (
	ReferencePending   = "PENDING"
	ReferenceProcessed = "PROCESSED"
	LocationUnknown    = "UNKNOWN"
	StaffUnknown       = "UNKNOWN"
)

// ReimbursementRecord is a settled claim as persisted in the record store.
// Amount is always non-negative and carries two decimal places.
type ReimbursementRecord struct {
	ID             string          `json:"id"`
	StaffName      string          `json:"staff_name"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	Reference      string          `json:"reference"`
	ClientLocation string          `json:"client_location"`
	Category       string          `json:"category"`
	ReceiptDate    time.Time       `json:"receipt_date"`
	CreatedAt      time.Time       `json:"created_at"`
	RawText        string          `json:"raw_text"`
}

// NewRecord builds a pending record with a fresh ID and sentinel defaults
// applied to any missing field.
func NewRecord(staffName string, amount decimal.Decimal, location, category string, receiptDate time.Time, rawText string) (*ReimbursementRecord, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("record amount must not be negative, got %s", amount.String())
	}
	if staffName == "" {
		staffName = StaffUnknown
	}
	if location == "" {
		location = LocationUnknown
	}

	return &ReimbursementRecord{
		ID:             uuid.NewString(),
		StaffName:      staffName,
		Amount:         amount.Round(2),
		Status:         StatusPending,
		Reference:      ReferencePending,
		ClientLocation: location,
		Category:       category,
		ReceiptDate:    receiptDate,
		CreatedAt:      time.Now(),
		RawText:        rawText,
	}, nil
}

// MarkPaid records a settlement reference and moves the record to PAID.
// The reverse transition is undefined and rejected.
func (r *ReimbursementRecord) MarkPaid(reference string) error {
	if r.Status == StatusPaid {
		return fmt.Errorf("record %s is already paid", r.ID)
	}
	if reference == "" {
		return fmt.Errorf("settlement reference is required to mark record %s paid", r.ID)
	}
	r.Status = StatusPaid
	r.Reference = reference
	return nil
}

// HasSettlementReference reports whether the record carries a concrete
// settlement reference rather than an intake sentinel.
func (r *ReimbursementRecord) HasSettlementReference() bool {
	return r.Reference != "" && r.Reference != ReferencePending && r.Reference != ReferenceProcessed
}

// HasUnknownParty reports whether staff or location is still a placeholder.
func (r *ReimbursementRecord) HasUnknownParty() bool {
	return r.StaffName == "" || r.StaffName == StaffUnknown ||
		r.ClientLocation == "" || r.ClientLocation == LocationUnknown
}
