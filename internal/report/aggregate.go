package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/models"
)

// ErrNoData distinguishes an empty report window from a valid zero-total
// snapshot.
var ErrNoData = errors.New("no records in report window")

// Summary cards carry three ranking rows; trend reports carry five.
const (
	topSummary = 3
	topTrend   = 5
)

// Engine computes report snapshots over the full record collection.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a reporting engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Aggregate filters the collection through the kind's window and computes
// the snapshot. An empty window yields ErrNoData.
func (e *Engine) Aggregate(records []*models.ReimbursementRecord, kind Kind, now, target time.Time) (*models.ReportSnapshot, error) {
	window := WindowFor(kind, now, target)
	subset := window.Filter(records)
	if len(subset) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrNoData, kind,
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	}

	limit := topSummary
	switch kind {
	case KindWeekly, KindMonthly, KindQuarterly, KindYearly:
		limit = topTrend
	}

	snapshot := &models.ReportSnapshot{
		Title:      titleFor(kind, window),
		RangeStart: window.Start,
		RangeEnd:   window.End,
		TotalSpend: decimal.Zero,
	}

	staffTotals := newRunningTotals()
	locationTotals := newRunningTotals()

	for _, record := range subset {
		snapshot.TotalRequests++
		snapshot.TotalSpend = snapshot.TotalSpend.Add(record.Amount)

		if record.Status == models.StatusPending {
			snapshot.PendingCount++
		}
		if record.HasUnknownParty() {
			snapshot.UnknownCount++
		}

		staffTotals.add(record.StaffName, record.Amount)
		locationTotals.add(record.ClientLocation, record.Amount)

		// Ties keep the first-encountered record.
		if snapshot.HighestSingle == nil || record.Amount.GreaterThan(snapshot.HighestSingle.Amount) {
			snapshot.HighestSingle = record
		}
	}

	snapshot.TopStaff = staffTotals.ranked(limit)
	snapshot.TopLocation = locationTotals.ranked(limit)

	e.logger.Debug("Report snapshot computed",
		zap.String("kind", string(kind)),
		zap.Int("records", snapshot.TotalRequests),
		zap.String("total", snapshot.TotalSpend.StringFixed(2)))

	return snapshot, nil
}

func titleFor(kind Kind, window Window) string {
	switch kind {
	case KindDailyBanking:
		return "Daily Banking Log — " + window.Target.Format("Mon 02 Jan 2006")
	case KindEODSchedule:
		return "End of Day Schedule — " + window.Target.Format("Mon 02 Jan 2006")
	case KindWeekly:
		return "Weekly Spend Report"
	case KindMonthly:
		return "Monthly Spend Report"
	case KindQuarterly:
		return "Quarterly Spend Report"
	case KindYearly:
		return "Yearly Spend Report"
	}
	return "Spend Report"
}

// runningTotals accumulates per-key totals preserving encounter order so
// ranking ties stay stable.
type runningTotals struct {
	order  []string
	totals map[string]*models.RankedTotal
}

func newRunningTotals() *runningTotals {
	return &runningTotals{totals: make(map[string]*models.RankedTotal)}
}

func (rt *runningTotals) add(key string, amount decimal.Decimal) {
	entry, ok := rt.totals[key]
	if !ok {
		entry = &models.RankedTotal{Name: key, Total: decimal.Zero}
		rt.totals[key] = entry
		rt.order = append(rt.order, key)
	}
	entry.Total = entry.Total.Add(amount)
	entry.Count++
}

// ranked returns the top entries by total, descending; equal totals keep
// encounter order.
func (rt *runningTotals) ranked(limit int) []models.RankedTotal {
	out := make([]models.RankedTotal, 0, len(rt.order))
	for _, key := range rt.order {
		out = append(out, *rt.totals[key])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
