package model

import (
	"iter"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for event anchors.
const DateLayout = "2006-01-02"

// Recurrence is the repeat rule of a calendar event.
type Recurrence string

// Recurrence rules.
const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Valid reports whether r is a known recurrence rule.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Event is a calendar entry. An event with a recurrence other than none
// stands for every occurrence implied by its rule, starting at Date.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Date        string     `json:"date"`
	Time        string     `json:"time,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	Recurrence  Recurrence `json:"recurrence"`
}

// EventPatch is a partial update for an Event.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *string
	Time        *string
	Icon        *string
	Recurrence  *Recurrence
}

// Validate checks the fields required of a stored event.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("event", "title", "must not be empty")
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return invalid("event", "date", "must be a YYYY-MM-DD date")
	}
	if e.Time != "" {
		if _, err := time.Parse("15:04", e.Time); err != nil {
			return invalid("event", "time", "must be HH:MM")
		}
	}
	if !e.Recurrence.Valid() {
		return invalid("event", "recurrence", "must be none, daily, weekly or monthly")
	}
	return nil
}

// Validate checks the fields a patch would set.
func (p EventPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("event", "title", "must not be empty")
	}
	if p.Date != nil {
		if _, err := time.Parse(DateLayout, *p.Date); err != nil {
			return invalid("event", "date", "must be a YYYY-MM-DD date")
		}
	}
	if p.Time != nil && *p.Time != "" {
		if _, err := time.Parse("15:04", *p.Time); err != nil {
			return invalid("event", "time", "must be HH:MM")
		}
	}
	if p.Recurrence != nil && !p.Recurrence.Valid() {
		return invalid("event", "recurrence", "must be none, daily, weekly or monthly")
	}
	return nil
}

// Apply returns a copy of e with the patch merged in.
func (e Event) Apply(p EventPatch) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Icon != nil {
		e.Icon = *p.Icon
	}
	if p.Recurrence != nil {
		e.Recurrence = *p.Recurrence
	}
	return e
}

// Anchor returns the parsed first occurrence date.
func (e Event) Anchor() (time.Time, bool) {
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Occurrences yields the dates of e that fall within [start, end], in
// ascending order. Only the requested window is ever computed, so an
// unbounded rule is safe to expand. Bounds are compared by calendar day.
func (e Event) Occurrences(start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		anchor, ok := e.Anchor()
		if !ok {
			return
		}
		start, end = civilDay(start), civilDay(end)
		if end.Before(start) || anchor.After(end) {
			return
		}

		switch e.Recurrence {
		case RecurrenceDaily, RecurrenceWeekly:
			step := 1
			if e.Recurrence == RecurrenceWeekly {
				step = 7
			}
			k := 0
			if anchor.Before(start) {
				days := int(start.Sub(anchor).Hours() / 24)
				k = (days + step - 1) / step
			}
			for d := anchor.AddDate(0, 0, k*step); !d.After(end); d = d.AddDate(0, 0, step) {
				if !yield(d) {
					return
				}
			}
		case RecurrenceMonthly:
			k := 0
			if anchor.Before(start) {
				k = (start.Year()-anchor.Year())*12 + int(start.Month()-anchor.Month()) - 1
				if k < 0 {
					k = 0
				}
			}
			for ; ; k++ {
				d := addMonthsClamped(anchor, k)
				if d.After(end) {
					return
				}
				if d.Before(start) {
					continue
				}
				if !yield(d) {
					return
				}
			}
		default:
			if !anchor.Before(start) {
				yield(anchor)
			}
		}
	}
}

// civilDay truncates t to midnight UTC of its own calendar date.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonthsClamped moves t forward k months, pinning the day to the last
// day of the target month when t's day does not exist there.
func addMonthsClamped(t time.Time, k int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(k), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
