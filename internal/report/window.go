// Package report computes time-windowed aggregates over the persisted
// record collection, including the synthesized end-of-day schedule. All
// computation is read-only and recomputed on demand; nothing is cached
// across calls.
package report

import (
	"fmt"
	"time"

	"github.com/mhartley/claim-audit/internal/models"
)

// Kind identifies a report type.
type Kind string

const (
	KindDailyBanking Kind = "daily-banking"
	KindEODSchedule  Kind = "eod-schedule"
	KindWeekly       Kind = "weekly"
	KindMonthly      Kind = "monthly"
	KindQuarterly    Kind = "quarterly"
	KindYearly       Kind = "yearly"
)

// ParseKind validates a report kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDailyBanking, KindEODSchedule, KindWeekly, KindMonthly, KindQuarterly, KindYearly:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown report kind %q", s)
}

// Window is the bounded date range a report filters records by. Daily
// windows match on calendar date; range windows are right-open at now.
type Window struct {
	Start  time.Time
	End    time.Time
	Daily  bool
	Target time.Time
}

// WindowFor computes the window for a report kind. target is only
// meaningful for the two daily kinds and defaults to now's date.
func WindowFor(kind Kind, now, target time.Time) Window {
	if target.IsZero() {
		target = now
	}

	switch kind {
	case KindDailyBanking, KindEODSchedule:
		day := dateOf(target)
		return Window{Start: day, End: day.AddDate(0, 0, 1), Daily: true, Target: day}
	case KindWeekly:
		return Window{Start: now.AddDate(0, 0, -7), End: now}
	case KindMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: now}
	case KindQuarterly:
		quarterMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		start := time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: now}
	case KindYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: now}
	}

	return Window{End: now}
}

// Contains reports whether a record's createdAt falls inside the window.
func (w Window) Contains(record *models.ReimbursementRecord) bool {
	if w.Daily {
		return dateOf(record.CreatedAt).Equal(w.Target)
	}
	return !record.CreatedAt.Before(w.Start) && record.CreatedAt.Before(w.End)
}

// Filter returns the window's subset of records in encounter order.
func (w Window) Filter(records []*models.ReimbursementRecord) []*models.ReimbursementRecord {
	var out []*models.ReimbursementRecord
	for _, record := range records {
		if w.Contains(record) {
			out = append(out, record)
		}
	}
	return out
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
