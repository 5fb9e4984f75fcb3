package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawAnalysis holds the four phase sections sliced out of one extraction
// run. It lives only for the duration of the active audit session and is
// discarded on reset. A missing phase is an empty string, which is itself
// diagnostic of upstream extraction trouble.
type RawAnalysis struct {
	Phase1 string `json:"phase1"` // receipt inventory
	Phase2 string `json:"phase2"` // form cross-check
	Phase3 string `json:"phase3"` // policy evaluation
	Phase4 string `json:"phase4"` // decision summary
}

// Transaction is a proposed reimbursement awaiting confirmation. It is
// mutable during review and discarded on reset or after persistence.
type Transaction struct {
	FormattedName    string          `json:"formatted_name"`
	Amount           decimal.Decimal `json:"amount"`
	CurrentReference string          `json:"current_reference"`
	SourceText       string          `json:"source_text"`
	ClientLocation   string          `json:"client_location"`
	Category         string          `json:"category"`
	Store            string          `json:"store"`
	ReceiptDate      time.Time       `json:"receipt_date"`
}
