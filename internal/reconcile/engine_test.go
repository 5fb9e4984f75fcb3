package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAmountResolutionNeverExceedsEitherSide(t *testing.T) {
	engine := NewDefaultEngine()
	processed := day("2026-08-28")

	tests := []struct {
		name    string
		form    string
		receipt string
		want    string
	}{
		{"receipt lower wins", "50.00", "42.50", "42.50"},
		{"form lower wins", "20.00", "310.00", "20.00"},
		{"equal amounts", "75.25", "75.25", "75.25"},
		{"zero receipt", "10.00", "0.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Reconcile(Input{
				FormAmount:    money(tt.form),
				ReceiptAmount: money(tt.receipt),
				Evidence:      EvidenceOK,
				Store:         "Coles",
				ReceiptDate:   day("2026-08-27"),
				ProcessedAt:   processed,
			}, NewLedger())

			assert.True(t, money(tt.want).Equal(res.FinalAmount),
				"want %s, got %s", tt.want, res.FinalAmount)
			// The final amount is always one of the two inputs.
			assert.True(t, res.FinalAmount.Equal(money(tt.form)) || res.FinalAmount.Equal(money(tt.receipt)))
		})
	}
}

func TestStandardConfirmationExample(t *testing.T) {
	engine := NewDefaultEngine()

	res := engine.Reconcile(Input{
		FormAmount:    money("50.00"),
		ReceiptAmount: money("42.50"),
		Evidence:      EvidenceOK,
		Store:         "Woolworths",
		ReceiptDate:   day("2026-08-20"),
		ProcessedAt:   day("2026-08-28"),
	}, NewLedger())

	assert.True(t, money("42.50").Equal(res.FinalAmount))
	assert.Equal(t, StandardConfirmation, res.Disposition)
	assert.False(t, res.Flags.Duplicate)
	assert.False(t, res.Flags.EscalateAmount)
	assert.False(t, res.Flags.EscalateAge)
}

func TestReceiptAboveFormDoesNotEscalate(t *testing.T) {
	engine := NewDefaultEngine()

	// Receipt is over the threshold but the form caps the payable amount.
	res := engine.Reconcile(Input{
		FormAmount:    money("20.00"),
		ReceiptAmount: money("310.00"),
		Evidence:      EvidenceOK,
		ReceiptDate:   day("2026-08-27"),
		ProcessedAt:   day("2026-08-28"),
	}, NewLedger())

	assert.True(t, money("20.00").Equal(res.FinalAmount))
	assert.False(t, res.Flags.EscalateAmount)
	assert.Equal(t, StandardConfirmation, res.Disposition)
}

func TestAmountThresholdIsStrict(t *testing.T) {
	engine := NewDefaultEngine()
	processed := day("2026-08-28")

	tests := []struct {
		name     string
		amount   string
		escalate bool
	}{
		{"exactly at threshold", "300.00", false},
		{"one cent over", "300.01", true},
		{"well under", "12.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Reconcile(Input{
				FormAmount:    money(tt.amount),
				ReceiptAmount: money(tt.amount),
				Evidence:      EvidenceOK,
				ReceiptDate:   day("2026-08-27"),
				ProcessedAt:   processed,
			}, NewLedger())

			assert.Equal(t, tt.escalate, res.Flags.EscalateAmount)
			if tt.escalate {
				assert.Equal(t, Escalation, res.Disposition)
			} else {
				assert.Equal(t, StandardConfirmation, res.Disposition)
			}
		})
	}
}

func TestReceiptAgeThresholdIsStrict(t *testing.T) {
	engine := NewDefaultEngine()
	processed := day("2026-08-31")

	tests := []struct {
		name     string
		receipt  string
		escalate bool
	}{
		{"exactly 30 days old", "2026-08-01", false},
		{"31 days old", "2026-07-31", true},
		{"same day", "2026-08-31", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Reconcile(Input{
				FormAmount:    money("80.00"),
				ReceiptAmount: money("80.00"),
				Evidence:      EvidenceOK,
				ReceiptDate:   day(tt.receipt),
				ProcessedAt:   processed,
			}, NewLedger())

			assert.Equal(t, tt.escalate, res.Flags.EscalateAge)
		})
	}
}

func TestOldReceiptEscalatesWithoutAmountFlag(t *testing.T) {
	engine := NewDefaultEngine()

	// 45 days old, both amounts $80.
	res := engine.Reconcile(Input{
		FormAmount:    money("80.00"),
		ReceiptAmount: money("80.00"),
		Evidence:      EvidenceOK,
		ReceiptDate:   day("2026-07-14"),
		ProcessedAt:   day("2026-08-28"),
	}, NewLedger())

	assert.Equal(t, Escalation, res.Disposition)
	assert.True(t, res.Flags.EscalateAge)
	assert.False(t, res.Flags.EscalateAmount)
}

func TestUnusableEvidenceIsCriticalRegardlessOfAmount(t *testing.T) {
	engine := NewDefaultEngine()

	for _, evidence := range []EvidenceStatus{EvidenceMissing, EvidenceIllegible, EvidenceUnrelated} {
		res := engine.Reconcile(Input{
			FormAmount:  money("100.00"),
			Evidence:    evidence,
			ReceiptDate: day("2026-08-27"),
			ProcessedAt: day("2026-08-28"),
		}, NewLedger())

		assert.Equal(t, CriticalDiscrepancy, res.Disposition, "evidence %s", evidence)
		assert.True(t, res.FinalAmount.IsZero(), "no amount is resolved for %s evidence", evidence)
	}
}

func TestDuplicateFlaggedOnSecondSightOnly(t *testing.T) {
	engine := NewDefaultEngine()
	ledger := NewLedger()

	in := Input{
		FormAmount:    money("42.50"),
		ReceiptAmount: money("42.50"),
		Evidence:      EvidenceOK,
		Store:         "Kmart",
		ReceiptDate:   day("2026-08-25"),
		ProcessedAt:   day("2026-08-28"),
	}

	first := engine.Reconcile(in, ledger)
	second := engine.Reconcile(in, ledger)

	assert.False(t, first.Flags.Duplicate)
	assert.True(t, second.Flags.Duplicate)

	// Duplicate is a flag, not a disposition.
	assert.Equal(t, StandardConfirmation, second.Disposition)
}

func TestDuplicateCheckRunsForCriticalDiscrepancy(t *testing.T) {
	engine := NewDefaultEngine()
	ledger := NewLedger()

	in := Input{
		FormAmount:  money("60.00"),
		Evidence:    EvidenceIllegible,
		Store:       "Target",
		ReceiptDate: day("2026-08-25"),
		ProcessedAt: day("2026-08-28"),
	}

	_ = engine.Reconcile(in, ledger)
	res := engine.Reconcile(in, ledger)

	assert.Equal(t, CriticalDiscrepancy, res.Disposition)
	assert.True(t, res.Flags.Duplicate)
}

func TestLedgerResetForgetsTriples(t *testing.T) {
	ledger := NewLedger()

	dup := ledger.Register("Coles", day("2026-08-25"), money("10.00"))
	require.False(t, dup)
	require.Equal(t, 1, ledger.Len())

	ledger.Reset()

	assert.Equal(t, 0, ledger.Len())
	assert.False(t, ledger.Register("Coles", day("2026-08-25"), money("10.00")))
}

func TestLedgerDistinguishesTripleComponents(t *testing.T) {
	ledger := NewLedger()

	require.False(t, ledger.Register("Coles", day("2026-08-25"), money("10.00")))
	assert.False(t, ledger.Register("Woolworths", day("2026-08-25"), money("10.00")), "different store")
	assert.False(t, ledger.Register("Coles", day("2026-08-26"), money("10.00")), "different date")
	assert.False(t, ledger.Register("Coles", day("2026-08-25"), money("10.01")), "different amount")
	assert.True(t, ledger.Register("Coles", day("2026-08-25"), money("10.00")), "exact repeat")
}
