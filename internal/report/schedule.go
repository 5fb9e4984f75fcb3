package report

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/mhartley/claim-audit/internal/models"
)

// Anchors fix the synthesized working day. Blocks start at DayStart and an
// idle tail, when there is room, always ends exactly at DayEnd.
type Anchors struct {
	DayStart        string // HH:MM
	DayEnd          string // HH:MM
	MinBlockMinutes int
	MaxBlockMinutes int
}

// DefaultAnchors is the standard office day used by the end-of-day report.
var DefaultAnchors = Anchors{
	DayStart:        "09:00",
	DayEnd:          "17:00",
	MinBlockMinutes: 10,
	MaxBlockMinutes: 15,
}

// Schedule entry status text.
const (
	scheduleStatusUnresolved = "unresolved"
	scheduleIdleActivity     = "Office admin / idle"
)

// SynthesizeSchedule lays the day's records out as sequential,
// non-overlapping activity blocks. Records are ordered by their original
// timestamp; each block's duration is drawn from the configured range and
// the next block starts one minute after the previous one ends. Randomness
// affects durations only, never ordering or the non-overlap invariants.
//
// rng may be nil, in which case durations are time-seeded.
func SynthesizeSchedule(dayRecords []*models.ReimbursementRecord, day time.Time, anchors Anchors, rng *rand.Rand) ([]models.ScheduleEntry, error) {
	dayStart, err := anchorOn(day, anchors.DayStart)
	if err != nil {
		return nil, fmt.Errorf("invalid day start anchor: %w", err)
	}
	dayEnd, err := anchorOn(day, anchors.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid day end anchor: %w", err)
	}
	if !dayEnd.After(dayStart) {
		return nil, fmt.Errorf("day end %s must be after day start %s", anchors.DayEnd, anchors.DayStart)
	}

	if len(dayRecords) == 0 {
		return nil, fmt.Errorf("%w: no activity on %s", ErrNoData, day.Format("2006-01-02"))
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	ordered := make([]*models.ReimbursementRecord, len(dayRecords))
	copy(ordered, dayRecords)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	entries := make([]models.ScheduleEntry, 0, len(ordered)+1)
	cursor := dayStart

	for _, record := range ordered {
		span := anchors.MaxBlockMinutes - anchors.MinBlockMinutes
		duration := anchors.MinBlockMinutes
		if span > 0 {
			duration += rng.Intn(span + 1)
		}

		entry := models.ScheduleEntry{
			TimeIn:     cursor,
			TimeOut:    cursor.Add(time.Duration(duration) * time.Minute),
			Activity:   activityFor(record),
			ClientName: record.ClientLocation,
			StaffName:  record.StaffName,
			Amount:     record.Amount,
			Status:     statusFor(record),
		}
		entries = append(entries, entry)

		cursor = entry.TimeOut.Add(time.Minute)
	}

	// Idle tail fills whatever remains of the day; omitted when the last
	// block already reaches the anchor.
	if last := entries[len(entries)-1]; last.TimeOut.Before(dayEnd) {
		entries = append(entries, idleEntry(last.TimeOut.Add(time.Minute), dayEnd))
	}

	return entries, nil
}

func idleEntry(from, until time.Time) models.ScheduleEntry {
	return models.ScheduleEntry{
		TimeIn:   from,
		TimeOut:  until,
		Activity: scheduleIdleActivity,
		Status:   scheduleStatusUnresolved,
		IsIdle:   true,
	}
}

func activityFor(record *models.ReimbursementRecord) string {
	if record.Category != "" {
		return "Reimbursement: " + record.Category
	}
	return "Reimbursement processing"
}

func statusFor(record *models.ReimbursementRecord) string {
	if !record.HasSettlementReference() {
		return scheduleStatusUnresolved
	}
	return fmt.Sprintf("settled (ref %s)", record.Reference)
}

// anchorOn places an HH:MM anchor onto the given calendar day.
func anchorOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad anchor %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
