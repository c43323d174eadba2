package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curbside/pkg/models"
)

func fullWeek(openMin, closeMin int) []models.BusinessHours {
	hours := make([]models.BusinessHours, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		hours = append(hours, models.BusinessHours{Weekday: d, OpenMin: openMin, CloseMin: closeMin})
	}
	return hours
}

func TestPlanEmitsHourlySlotsUntilClose(t *testing.T) {
	// Monday 09:00, open 11:00-23:00: first slot 11:00, last 22:00.
	now := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	got := Plan(fullWeek(11*60, 23*60), 20*time.Minute, now, time.UTC)

	require.Len(t, got, 12)
	assert.Equal(t, time.Date(2025, time.September, 1, 11, 0, 0, 0, time.UTC), got[0].At)
	assert.Equal(t, time.Date(2025, time.September, 1, 22, 0, 0, 0, time.UTC), got[11].At)
}

func TestPlanSlotsAreMonotonicAndAfterBuffer(t *testing.T) {
	now := time.Date(2025, time.September, 1, 12, 40, 0, 0, time.UTC)
	buffer := 20 * time.Minute
	got := Plan(fullWeek(11*60, 23*60), buffer, now, time.UTC)

	require.NotEmpty(t, got)
	for i, s := range got {
		assert.False(t, s.At.Before(now.Add(buffer)), "slot %d before now+buffer", i)
		if i > 0 {
			assert.True(t, s.At.After(got[i-1].At), "slot %d not strictly increasing", i)
		}
	}
	// 12:40+20m = 13:00 exactly, which is usable as-is.
	assert.Equal(t, 13, got[0].At.Hour())
}

func TestPlanRollsToNextDayWhenBufferPassesClose(t *testing.T) {
	// Monday 22:50 + 20m buffer: next whole hour is past the 23:00 close,
	// so the first slot is Tuesday at opening.
	now := time.Date(2025, time.September, 1, 22, 50, 0, 0, time.UTC)
	got := Plan(fullWeek(11*60, 23*60), 20*time.Minute, now, time.UTC)

	require.NotEmpty(t, got)
	assert.Equal(t, time.Date(2025, time.September, 2, 11, 0, 0, 0, time.UTC), got[0].At)
	assert.Equal(t, time.Tuesday, got[0].At.Weekday())
}

func TestPlanStopsAtFirstProductiveDay(t *testing.T) {
	now := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	got := Plan(fullWeek(11*60, 23*60), 20*time.Minute, now, time.UTC)

	require.NotEmpty(t, got)
	for _, s := range got {
		assert.Equal(t, now.Day(), s.At.Day(), "slots must not span multiple days")
	}
}

func TestPlanAllDaysClosed(t *testing.T) {
	hours := fullWeek(11*60, 23*60)
	for i := range hours {
		hours[i].Closed = true
	}
	now := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)

	assert.Empty(t, Plan(hours, 20*time.Minute, now, time.UTC))
}

func TestPlanMissingDayRecordIsClosed(t *testing.T) {
	// Only Wednesday has hours; from Monday the scan lands there.
	hours := []models.BusinessHours{{Weekday: time.Wednesday, OpenMin: 10 * 60, CloseMin: 14 * 60}}
	now := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)

	got := Plan(hours, 20*time.Minute, now, time.UTC)
	require.Len(t, got, 4)
	assert.Equal(t, time.Wednesday, got[0].At.Weekday())
	assert.Equal(t, 10, got[0].At.Hour())
}

func TestPlanEmptyHours(t *testing.T) {
	now := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	assert.Empty(t, Plan(nil, 20*time.Minute, now, time.UTC))
}
