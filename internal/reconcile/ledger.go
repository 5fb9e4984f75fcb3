package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger records the (store, date, amount) triples reconciled during the
// current audit session. Duplicate detection is session-scoped only: the
// ledger clears on restart and is never checked against the persisted store.
type Ledger struct {
	seen map[string]struct{}
}

// NewLedger creates an empty session ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Register adds a triple and reports whether an identical triple was
// already registered this session: false on first sight, true after.
func (l *Ledger) Register(store string, date time.Time, amount decimal.Decimal) bool {
	key := fmt.Sprintf("%s|%s|%s", store, date.Format("2006-01-02"), amount.Round(2).String())
	if _, dup := l.seen[key]; dup {
		return true
	}
	l.seen[key] = struct{}{}
	return false
}

// Reset clears every registered triple.
func (l *Ledger) Reset() {
	l.seen = make(map[string]struct{})
}

// Len returns the number of distinct triples registered.
func (l *Ledger) Len() int {
	return len(l.seen)
}
