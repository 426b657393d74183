package clock

import (
	"time"
)

// DayKeyFunc maps an instant to the attendance-day key it falls on.
// Injected into the store so tests can roll the day deterministically.
type DayKeyFunc func(t time.Time) string

const dayKeyLayout = "2006-01-02"

// NewDayKey builds a DayKeyFunc for a reference day that rolls over at
// rolloverHour local time in a fixed UTC+utcOffsetHours zone. With the
// observed deployment values (offset 9, rollover 7) an instant at
// 06:59 KST still belongs to the previous day; 07:00 KST starts a new one.
func NewDayKey(utcOffsetHours, rolloverHour int) DayKeyFunc {
	offset := time.Duration(utcOffsetHours) * time.Hour
	rollover := time.Duration(rolloverHour) * time.Hour
	return func(t time.Time) string {
		// Shift into the reference zone, then back by the rollover hour so
		// the calendar date flips at the configured local hour.
		ref := t.UTC().Add(offset - rollover)
		return ref.Format(dayKeyLayout)
	}
}
