package plenum

import (
	"regexp"
	"strings"
)

var endMarkerPattern = regexp.MustCompile(`(?im)^Ende:\s*\d{2}:\d{2}\s*Uhr\s*$`)

// MeetingConcluded reports whether one of the last two lines of text records the
// end of the meeting, e.g. "Ende: 21:15 Uhr".
func MeetingConcluded(text string) bool {
	lines := splitLines(text)
	if len(lines) > 2 {
		lines = lines[len(lines)-2:]
	}
	return endMarkerPattern.MatchString(strings.Join(lines, "\n"))
}
