package plenum

import (
	"regexp"
	"strings"
	"time"
)

// EventsHeading is the title of the appointments section.
const EventsHeading = "Termine"

var (
	eventsHeadingPattern = regexp.MustCompile(`(?i)^\s*={5}\s*` + EventsHeading + `\s*={5}\s*$`)
	eventPattern         = regexp.MustCompile(`^\s{2,4}\*\s(\d{4}-\d{2}-\d{2})(.*)$`)
)

// EventEntry is a dated bullet of the appointments section.
// Description holds the raw remainder of the line after the date.
type EventEntry struct {
	Date        string `json:"date" yaml:"date"`
	Description string `json:"description" yaml:"description"`
}

// UpcomingEvents returns the appointments listed below the "Termine" heading that
// are dated after next, in document order. The second return value is false when
// the page has no appointments section.
func UpcomingEvents(text string, next time.Time) ([]EventEntry, bool) {
	lines := splitLines(text)

	headingLine := ""
	for _, line := range lines {
		if eventsHeadingPattern.MatchString(line) {
			headingLine = line
			break
		}
	}
	if headingLine == "" {
		return nil, false
	}

	start, ok := FindSectionStart(text, headingLine)
	if !ok {
		return nil, false
	}

	cutoff := FormatDate(next)
	var events []EventEntry
	for _, line := range lines[start+1:] {
		m := eventPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// ISO dates of equal width compare like calendar dates
		if m[1] > cutoff {
			events = append(events, EventEntry{Date: m[1], Description: m[2]})
		}
	}
	return events, true
}

// FormatEvents renders events as page bullets, one per line with a trailing newline.
func FormatEvents(events []EventEntry) string {
	var sb strings.Builder
	for _, ev := range events {
		sb.WriteString("  * ")
		sb.WriteString(ev.Date)
		sb.WriteString(ev.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}
