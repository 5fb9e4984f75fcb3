package extraction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/models"
)

const sampleBlob = `Preamble the model sometimes adds.
[PHASE1]
Receipt 1 from Coles, dated 2026-08-20.
Store: Coles
Groceries $42.50
[/PHASE1]
[PHASE2]
Form amount: $50.00
Receipt amount: $42.50
The receipt supports the claim.
[/PHASE2]
[PHASE3]
Amount is under the escalation threshold and the receipt is recent.
[/PHASE3]
[PHASE4]
Approve for payment of $42.50.
Staff: Jane Doe
Location: Northside Clinic
Category: Groceries
Receipt date: 2026-08-20
[/PHASE4]`

func TestParseSlicesAllFourSections(t *testing.T) {
	parser := NewParser(zap.NewNop())

	raw := parser.Parse(sampleBlob)

	assert.Contains(t, raw.Phase1, "Store: Coles")
	assert.Contains(t, raw.Phase2, "Form amount: $50.00")
	assert.Contains(t, raw.Phase3, "escalation threshold")
	assert.Contains(t, raw.Phase4, "Staff: Jane Doe")
	assert.NotContains(t, raw.Phase1, "[PHASE1]")
	assert.NotContains(t, raw.Phase1, "Preamble")
}

func TestParseMissingSectionComesBackEmpty(t *testing.T) {
	parser := NewParser(zap.NewNop())

	tests := []struct {
		name string
		blob string
	}{
		{"no markers at all", "free text without any structure"},
		{"open marker without close", "[PHASE3] policy discussion trailing off"},
		{"empty blob", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := parser.Parse(tt.blob)
			assert.Empty(t, raw.Phase3)
		})
	}
}

func TestProposedTransactionsScrapesDecisionSection(t *testing.T) {
	parser := NewParser(zap.NewNop())
	raw := parser.Parse(sampleBlob)

	txs := parser.ProposedTransactions(raw)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, "Jane Doe", tx.FormattedName)
	assert.True(t, decimal.NewFromFloat(42.50).Equal(tx.Amount))
	assert.Equal(t, models.ReferencePending, tx.CurrentReference)
	assert.Equal(t, "Northside Clinic", tx.ClientLocation)
	assert.Equal(t, "Groceries", tx.Category)
	assert.Equal(t, "Coles", tx.Store)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), tx.ReceiptDate)
	assert.Contains(t, tx.SourceText, "Approve for payment")
}

func TestProposedTransactionsWithoutAmountYieldsNone(t *testing.T) {
	parser := NewParser(zap.NewNop())

	raw := parser.Parse("[PHASE4]\nNo payable amount could be determined.\nStaff: Jane Doe\n[/PHASE4]")

	assert.Nil(t, parser.ProposedTransactions(raw))
}

func TestProposedTransactionsAppliesFallbacks(t *testing.T) {
	parser := NewParser(zap.NewNop())

	raw := parser.Parse("[PHASE4]\nPay $1,250.00 for travel.\n[/PHASE4]")

	txs := parser.ProposedTransactions(raw)
	require.Len(t, txs, 1)

	assert.Equal(t, models.StaffUnknown, txs[0].FormattedName)
	assert.Equal(t, models.LocationUnknown, txs[0].ClientLocation)
	assert.Equal(t, models.LocationUnknown, txs[0].Store, "store falls back to client location")
	assert.True(t, decimal.NewFromInt(1250).Equal(txs[0].Amount), "thousands comma is stripped")
	assert.True(t, txs[0].ReceiptDate.IsZero())
}

func TestClaimAmountsScrapesBothSides(t *testing.T) {
	parser := NewParser(zap.NewNop())
	raw := parser.Parse(sampleBlob)

	form, receipt := parser.ClaimAmounts(raw)

	require.NotNil(t, form)
	require.NotNil(t, receipt)
	assert.True(t, decimal.NewFromInt(50).Equal(*form))
	assert.True(t, decimal.NewFromFloat(42.50).Equal(*receipt))
}

func TestClaimAmountsMissingLabelsLeaveNil(t *testing.T) {
	parser := NewParser(zap.NewNop())

	raw := parser.Parse("[PHASE2]\nThe receipt matches the form.\n[/PHASE2]")

	form, receipt := parser.ClaimAmounts(raw)
	assert.Nil(t, form)
	assert.Nil(t, receipt)
}

func TestEvidenceStatusClassification(t *testing.T) {
	parser := NewParser(zap.NewNop())

	tests := []struct {
		name   string
		phase2 string
		phase3 string
		want   string
	}{
		{"clean claim", "Receipt supports the claim.", "Within policy.", EvidenceOK},
		{"missing receipt", "There is no receipt for this expense.", "", EvidenceMissing},
		{"missing flagged in policy section", "", "Missing receipt requires follow-up.", EvidenceMissing},
		{"illegible scan", "The receipt scan is illegible.", "", EvidenceIllegible},
		{"unreadable scan", "The attachment is unreadable.", "", EvidenceIllegible},
		{"unrelated document", "The attachment is unrelated to the claim.", "", EvidenceUnrelated},
		{"case insensitive", "RECEIPT MISSING", "", EvidenceMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &models.RawAnalysis{Phase2: tt.phase2, Phase3: tt.phase3}
			assert.Equal(t, tt.want, parser.EvidenceStatus(raw))
		})
	}
}

func TestStoreFallsBackToEmpty(t *testing.T) {
	parser := NewParser(zap.NewNop())

	raw := parser.Parse("[PHASE1]\nOne receipt, merchant unclear.\n[/PHASE1]")

	assert.Empty(t, parser.Store(raw))
}
