package plenum

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// DateLayout is the date format used in page identifiers and event bullets.
const DateLayout = "2006-01-02"

// Weekday is a day of the week where 0 is Monday and 6 is Sunday.
type Weekday int

// Weekday constants, Monday first.
const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var rruleWeekdays = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Valid reports whether w is in the range Monday..Sunday.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

// Time converts w to the standard library representation.
func (w Weekday) Time() time.Weekday {
	return time.Weekday((int(w) + 1) % 7)
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return w.Time().String()
}

// WeekdayOf returns the weekday of t in the Monday-first convention.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// RecurrenceConfig describes the single weekly meeting handled by the bot.
type RecurrenceConfig struct {
	Weekday   Weekday
	Namespace string
}

// Validate checks that the weekday is in range and the namespace is usable.
func (c RecurrenceConfig) Validate() error {
	if !c.Weekday.Valid() {
		return fmt.Errorf("weekday must be between 0 (Monday) and 6 (Sunday), got %d", int(c.Weekday))
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.New("namespace cannot be empty")
	}
	return nil
}

// PageID returns the page identifier of the meeting held on date.
func (c RecurrenceConfig) PageID(date time.Time) string {
	return PageID(c.Namespace, date)
}

// Window holds the meeting dates surrounding a reference day.
type Window struct {
	Reference time.Time
	Next      time.Time
	Last      time.Time
}

// ComputeWindow returns the next and the last meeting dates relative to reference.
//
// Next is always 1 to 7 days after reference. Last is 0 to 6 days before it, so on
// the meeting weekday itself Last equals Reference while Next is a week ahead.
func ComputeWindow(reference time.Time, weekday Weekday) Window {
	ref := truncateDay(reference)
	delta := int(weekday) - int(WeekdayOf(ref))

	nextDelta := delta
	if nextDelta <= 0 {
		nextDelta += 7
	}

	lastDelta := delta
	if lastDelta > 0 {
		lastDelta -= 7
	}

	return Window{
		Reference: ref,
		Next:      ref.AddDate(0, 0, nextDelta),
		Last:      ref.AddDate(0, 0, lastDelta),
	}
}

// Occurrences returns the next count meeting dates strictly after from.
func Occurrences(from time.Time, weekday Weekday, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, nil
	}
	if !weekday.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(weekday))
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[weekday]},
		Dtstart:   ComputeWindow(from, weekday).Next,
		Count:     count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}
	return rule.All(), nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// PageID joins namespace and the formatted date with a colon.
func PageID(namespace string, date time.Time) string {
	return namespace + ":" + FormatDate(date)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
