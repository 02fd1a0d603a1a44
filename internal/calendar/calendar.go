// Package calendar exports meeting dates and announced events as iCalendar.
package calendar

import (
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/sha1n/plenumbot/internal/plenum"
)

const (
	// ProductID identifies the generator in exported calendars.
	ProductID = "-//plenumbot//plenumbot//DE"

	// ContentType is the MIME type of the exported feed.
	ContentType = "text/calendar; charset=utf-8"

	uidDomain = "plenumbot"
)

// uidNamespace seeds the name-based event UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(uidDomain))

// Meeting is an occurrence of the recurring meeting.
type Meeting struct {
	Date   time.Time
	PageID string
}

// Feed is the content of an exported calendar.
type Feed struct {
	Name     string
	Meetings []Meeting
	Events   []plenum.EventEntry
	// WikiURL, when set, is used to link meeting events to their pages.
	WikiURL string
	// Stamp is written as DTSTAMP of every event.
	Stamp time.Time
}

// UID returns the stable identifier of an event. The same date and
// description always map to the same UID so calendar clients update
// entries instead of duplicating them.
func UID(date, description string) string {
	return uuid.NewSHA1(uidNamespace, []byte(date+"\x00"+description)).String() + "@" + uidDomain
}

// occurrenceUID returns the UID of the n-th entry with the same date and
// description. The first one keeps UID(date, description).
func occurrenceUID(date, description string, n int) string {
	if n == 0 {
		return UID(date, description)
	}
	return UID(date, description+"\x00"+strconv.Itoa(n))
}

// Build assembles the calendar of f.
func Build(f Feed) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}

	stamp := f.Stamp.UTC()
	if f.Stamp.IsZero() {
		stamp = time.Now().UTC()
	}

	for _, m := range f.Meetings {
		date := plenum.FormatDate(m.Date)
		ev := cal.AddEvent(UID(date, m.PageID))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(m.Date)
		ev.SetAllDayEndAt(m.Date.AddDate(0, 0, 1))
		ev.SetSummary(meetingSummary(f.Name))
		ev.SetDescription(m.PageID)
		if f.WikiURL != "" {
			ev.SetURL(PageURL(f.WikiURL, m.PageID))
		}
	}

	seen := make(map[string]int, len(f.Events))
	for _, e := range f.Events {
		day, err := plenum.ParseDate(e.Date, time.UTC)
		if err != nil {
			continue
		}
		summary := strings.TrimSpace(strings.TrimLeft(e.Description, " :-"))
		if summary == "" {
			summary = "Termin"
		}

		key := e.Date + "\x00" + e.Description
		ev := cal.AddEvent(occurrenceUID(e.Date, e.Description, seen[key]))
		seen[key]++
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ev.SetSummary(summary)
	}

	return cal
}

// Render serializes the calendar of f.
func Render(f Feed) string {
	return Build(f).Serialize()
}

// PageURL returns the DokuWiki URL of a page.
func PageURL(wikiURL, pageID string) string {
	return strings.TrimRight(wikiURL, "/") + "/doku.php?id=" + pageID
}

func meetingSummary(name string) string {
	if name == "" {
		return "Plenum"
	}
	return name
}
