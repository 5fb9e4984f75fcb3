package report

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhartley/claim-audit/internal/models"
)

func scheduleDay() time.Time {
	return time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
}

func scheduleRecords(day time.Time, n int) []*models.ReimbursementRecord {
	out := make([]*models.ReimbursementRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &models.ReimbursementRecord{
			ID:             string(rune('a' + i)),
			StaffName:      "Jane",
			ClientLocation: "Clinic",
			Amount:         decimal.NewFromInt(int64(10 + i)),
			Status:         models.StatusPending,
			Reference:      models.ReferencePending,
			Category:       "Groceries",
			CreatedAt:      day.Add(time.Duration(9+i) * time.Hour),
		})
	}
	return out
}

func TestSynthesizeScheduleEmptyDayIsNoData(t *testing.T) {
	_, err := SynthesizeSchedule(nil, scheduleDay(), DefaultAnchors, rand.New(rand.NewSource(1)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestSynthesizeScheduleBlockInvariants(t *testing.T) {
	day := scheduleDay()
	records := scheduleRecords(day, 5)
	rng := rand.New(rand.NewSource(42))

	entries, err := SynthesizeSchedule(records, day, DefaultAnchors, rng)
	require.NoError(t, err)

	// Five activity blocks plus the idle tail.
	require.Len(t, entries, 6)

	dayStart := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC)

	assert.Equal(t, dayStart, entries[0].TimeIn)

	for i, entry := range entries {
		assert.True(t, entry.TimeOut.After(entry.TimeIn), "entry %d has zero or negative span", i)

		if i > 0 {
			gap := entry.TimeIn.Sub(entries[i-1].TimeOut)
			assert.Equal(t, time.Minute, gap, "entry %d does not start one minute after the previous", i)
		}

		if !entry.IsIdle {
			span := entry.TimeOut.Sub(entry.TimeIn)
			assert.GreaterOrEqual(t, span, 10*time.Minute)
			assert.LessOrEqual(t, span, 15*time.Minute)
		}
	}

	tail := entries[len(entries)-1]
	assert.True(t, tail.IsIdle)
	assert.Equal(t, dayEnd, tail.TimeOut, "idle tail ends exactly at the day-end anchor")
	assert.Equal(t, scheduleStatusUnresolved, tail.Status)
}

func TestSynthesizeScheduleOrdersByCreationTime(t *testing.T) {
	day := scheduleDay()

	records := []*models.ReimbursementRecord{
		{ID: "late", StaffName: "B", CreatedAt: day.Add(15 * time.Hour), Amount: decimal.NewFromInt(1)},
		{ID: "early", StaffName: "A", CreatedAt: day.Add(10 * time.Hour), Amount: decimal.NewFromInt(2)},
	}

	entries, err := SynthesizeSchedule(records, day, DefaultAnchors, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 2)

	assert.Equal(t, "A", entries[0].StaffName)
	assert.Equal(t, "B", entries[1].StaffName)
}

func TestSynthesizeScheduleIsDeterministicForSeed(t *testing.T) {
	day := scheduleDay()
	records := scheduleRecords(day, 3)

	first, err := SynthesizeSchedule(records, day, DefaultAnchors, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	second, err := SynthesizeSchedule(records, day, DefaultAnchors, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSynthesizeScheduleOmitsIdleWhenDayIsFull(t *testing.T) {
	day := scheduleDay()
	// One fixed-length block exactly filling a tiny working day.
	anchors := Anchors{DayStart: "09:00", DayEnd: "09:10", MinBlockMinutes: 10, MaxBlockMinutes: 10}

	entries, err := SynthesizeSchedule(scheduleRecords(day, 1), day, anchors, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsIdle)
	assert.Equal(t, time.Date(2026, 8, 28, 9, 10, 0, 0, time.UTC), entries[0].TimeOut)
}

func TestSynthesizeScheduleStatusReflectsSettlement(t *testing.T) {
	day := scheduleDay()

	settled := &models.ReimbursementRecord{
		ID: "s", StaffName: "Jane", Status: models.StatusPaid, Reference: "TXN-7",
		Amount: decimal.NewFromInt(20), CreatedAt: day.Add(10 * time.Hour),
	}
	pending := &models.ReimbursementRecord{
		ID: "p", StaffName: "John", Status: models.StatusPending, Reference: models.ReferencePending,
		Amount: decimal.NewFromInt(30), CreatedAt: day.Add(11 * time.Hour),
	}

	entries, err := SynthesizeSchedule([]*models.ReimbursementRecord{settled, pending}, day, DefaultAnchors, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 2)

	assert.Equal(t, "settled (ref TXN-7)", entries[0].Status)
	assert.Equal(t, scheduleStatusUnresolved, entries[1].Status)
}

func TestSynthesizeScheduleRejectsBadAnchors(t *testing.T) {
	day := scheduleDay()
	records := scheduleRecords(day, 1)

	_, err := SynthesizeSchedule(records, day, Anchors{DayStart: "bogus", DayEnd: "17:00", MinBlockMinutes: 10, MaxBlockMinutes: 15}, nil)
	assert.Error(t, err)

	_, err = SynthesizeSchedule(records, day, Anchors{DayStart: "17:00", DayEnd: "09:00", MinBlockMinutes: 10, MaxBlockMinutes: 15}, nil)
	assert.Error(t, err)
}
