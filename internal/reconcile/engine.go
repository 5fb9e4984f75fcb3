// Package reconcile implements the reimbursement reconciliation policy as a
// pure decision function: amount resolution between claim form and receipt
// evidence, session-scoped duplicate detection, and escalation routing.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// Disposition is the categorical outcome of reconciling one claim.
type Disposition string

const (
	// StandardConfirmation: the claim clears policy and can be confirmed.
	StandardConfirmation Disposition = "STANDARD_CONFIRMATION"
	// Escalation: the claim is routed to a human approver.
	Escalation Disposition = "ESCALATION"
	// CriticalDiscrepancy: receipt evidence is missing, illegible or
	// unrelated; no amount can be resolved.
	CriticalDiscrepancy Disposition = "CRITICAL_DISCREPANCY"
)

// EvidenceStatus describes the usability of the receipt evidence.
type EvidenceStatus string

const (
	EvidenceOK        EvidenceStatus = "OK"
	EvidenceMissing   EvidenceStatus = "MISSING"
	EvidenceIllegible EvidenceStatus = "ILLEGIBLE"
	EvidenceUnrelated EvidenceStatus = "UNRELATED"
)

// Input carries everything the policy needs for one claim.
type Input struct {
	FormAmount    decimal.Decimal
	ReceiptAmount decimal.Decimal
	Evidence      EvidenceStatus
	Store         string
	ReceiptDate   time.Time
	ProcessedAt   time.Time
}

// Flags are the boolean findings reported alongside any disposition.
type Flags struct {
	Duplicate      bool `json:"duplicate"`
	EscalateAmount bool `json:"escalate_amount"`
	EscalateAge    bool `json:"escalate_age"`
}

// Result is the outcome of reconciling one claim.
type Result struct {
	FinalAmount decimal.Decimal `json:"final_amount"`
	Disposition Disposition     `json:"disposition"`
	Flags       Flags           `json:"flags"`
}

// Engine applies the fixed financial policy. It performs no I/O and never
// retries; insufficient input routes to a disposition value instead of an
// error, so callers may safely re-invoke with identical inputs.
type Engine struct {
	amountThreshold decimal.Decimal
	maxReceiptAge   int // days
}

// DefaultAmountThreshold is the escalation boundary: amounts strictly above
// it escalate, the boundary itself does not.
var DefaultAmountThreshold = decimal.NewFromInt(300)

// DefaultMaxReceiptAge is the receipt age boundary in days. Strictly older
// escalates; exactly this old does not.
const DefaultMaxReceiptAge = 30

// NewEngine creates a policy engine with the given thresholds.
func NewEngine(amountThreshold decimal.Decimal, maxReceiptAgeDays int) *Engine {
	return &Engine{
		amountThreshold: amountThreshold,
		maxReceiptAge:   maxReceiptAgeDays,
	}
}

// NewDefaultEngine creates a policy engine with the standard thresholds.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultAmountThreshold, DefaultMaxReceiptAge)
}

// Reconcile resolves one claim against the policy. The ledger accumulates
// the (store, date, amount) triples seen this session; the duplicate check
// runs regardless of how amount resolution went.
func (e *Engine) Reconcile(in Input, ledger *Ledger) Result {
	var res Result

	// Amount resolution: the claimant is never paid more than requested
	// and never more than proven, so the lower of the two wins. Unusable
	// receipt evidence skips resolution entirely.
	usable := in.Evidence == EvidenceOK || in.Evidence == ""
	if usable {
		if in.ReceiptAmount.GreaterThan(in.FormAmount) {
			res.FinalAmount = in.FormAmount
		} else {
			res.FinalAmount = in.ReceiptAmount
		}
	}

	// Duplicate check is independent of amount resolution.
	if ledger != nil {
		res.Flags.Duplicate = ledger.Register(in.Store, in.ReceiptDate, in.ReceiptAmount)
	}

	// Threshold checks, both strict inequalities.
	res.Flags.EscalateAmount = res.FinalAmount.GreaterThan(e.amountThreshold)
	res.Flags.EscalateAge = receiptAgeDays(in.ReceiptDate, in.ProcessedAt) > e.maxReceiptAge

	switch {
	case !usable:
		res.Disposition = CriticalDiscrepancy
	case res.Flags.EscalateAmount || res.Flags.EscalateAge:
		res.Disposition = Escalation
	default:
		res.Disposition = StandardConfirmation
	}

	return res
}

// receiptAgeDays returns whole calendar days between receipt and processing
// dates. Time-of-day is ignored.
func receiptAgeDays(receipt, processed time.Time) int {
	r := time.Date(receipt.Year(), receipt.Month(), receipt.Day(), 0, 0, 0, 0, time.UTC)
	p := time.Date(processed.Year(), processed.Month(), processed.Day(), 0, 0, 0, 0, time.UTC)
	return int(p.Sub(r).Hours() / 24)
}
