// Package slots computes candidate fulfillment times from business hours.
package slots

import (
	"time"

	"curbside/pkg/models"
)

// lookahead limits the forward scan to one week of calendar days.
const lookaheadDays = 7

// Plan returns the candidate fulfillment slots for a checkout session.
//
// Days are scanned forward from today. For each open day the earliest usable
// instant is the opening time, or now+prepBuffer on the current day, rounded
// up to the next whole hour; one slot is emitted per hour strictly before
// closing time. The scan stops at the first day that yields at least one
// slot, so the list stays short and fresh. A day without an hours record is
// treated as closed. An empty result means the store is closed for the whole
// window and checkout must not proceed.
func Plan(hours []models.BusinessHours, prepBuffer time.Duration, now time.Time, loc *time.Location) []models.TimeSlot {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	byDay := make(map[time.Weekday]models.BusinessHours, len(hours))
	for _, h := range hours {
		byDay[h.Weekday] = h
	}

	for offset := 0; offset < lookaheadDays; offset++ {
		day := now.AddDate(0, 0, offset)
		h, ok := byDay[day.Weekday()]
		if !ok || h.Closed {
			continue
		}

		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
		open := midnight.Add(time.Duration(h.OpenMin) * time.Minute)
		close := midnight.Add(time.Duration(h.CloseMin) * time.Minute)

		earliest := open
		if offset == 0 {
			if buffered := now.Add(prepBuffer); buffered.After(earliest) {
				earliest = buffered
			}
		}
		earliest = roundUpHour(earliest)

		var out []models.TimeSlot
		for at := earliest; at.Before(close); at = at.Add(time.Hour) {
			out = append(out, models.TimeSlot{
				At:    at,
				Label: at.Format("Mon Jan 2, 3:04 PM"),
			})
		}
		if len(out) > 0 {
			return out
		}
	}

	return nil
}

// roundUpHour rounds t up to the next whole wall-clock hour; instants
// already on an hour boundary are unchanged.
func roundUpHour(t time.Time) time.Time {
	if t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t
	}
	floor := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	return floor.Add(time.Hour)
}
