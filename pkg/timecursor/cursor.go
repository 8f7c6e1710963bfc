// Package timecursor implements the virtual clock that wait steps advance.
// The cursor never blocks execution; it only shifts the timestamp baseline
// used to compute due dates for later steps.
package timecursor

import "time"

// Unit is a supported wait unit.
type Unit string

const (
	UnitHours  Unit = "hours"
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

// Cursor is a virtual clock value. It is threaded through step execution as a
// value, including across branch boundaries, so a wait inside a branch keeps
// affecting steps after the branch returns.
type Cursor struct {
	at time.Time
}

// Start returns a cursor positioned at the run's start time.
func Start(at time.Time) Cursor {
	return Cursor{at: at}
}

// Time returns the cursor's current position.
func (c Cursor) Time() time.Time {
	return c.at
}

// Advance returns a cursor shifted forward by amount units. Months use
// calendar-month arithmetic rather than a fixed day count. Unknown units and
// non-positive amounts leave the cursor unchanged.
func (c Cursor) Advance(amount int, unit Unit) Cursor {
	if amount <= 0 {
		return c
	}

	switch unit {
	case UnitHours:
		return Cursor{at: c.at.Add(time.Duration(amount) * time.Hour)}
	case UnitDays:
		return Cursor{at: c.at.AddDate(0, 0, amount)}
	case UnitWeeks:
		return Cursor{at: c.at.AddDate(0, 0, amount*7)}
	case UnitMonths:
		return Cursor{at: c.at.AddDate(0, amount, 0)}
	default:
		return c
	}
}
