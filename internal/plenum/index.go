package plenum

import (
	"strconv"
	"strings"
	"time"
)

// ProtocolsHeading is the top-level heading of the index page.
const ProtocolsHeading = "====== Protokolle ======"

// YearHeading returns the index heading line for year.
func YearHeading(year int) string {
	return HeadingLine(strconv.Itoa(year))
}

// LinkLine returns the index bullet linking to pageID.
func LinkLine(pageID string) string {
	return "  * [[" + pageID + "]]"
}

// UpdateIndex inserts a link to pageID below the year heading of next.
//
// A missing year heading is inserted directly below the protocols heading, or at
// the top of the page when that is missing too, and the link goes two lines
// below it. The result does not end with a line break.
func UpdateIndex(index string, next time.Time, pageID string) string {
	lines := splitLines(index)
	yearHeading := YearHeading(next.Year())

	insertAt := indexOf(lines, yearHeading) + 1
	if insertAt == 0 {
		protocolAt := indexOf(lines, ProtocolsHeading) + 1
		insertAt = protocolAt + 2
		lines = insertLine(lines, protocolAt, yearHeading)
	}

	lines = insertLine(lines, insertAt, LinkLine(pageID))
	return strings.Join(lines, "\n")
}

// PageAlreadyListed reports whether pageID appears anywhere in index.
func PageAlreadyListed(index, pageID string) bool {
	return strings.Contains(index, pageID)
}

func indexOf(lines []string, want string) int {
	for i, line := range lines {
		if line == want {
			return i
		}
	}
	return -1
}

// insertLine inserts line at pos, appending when pos is past the end.
func insertLine(lines []string, pos int, line string) []string {
	if pos >= len(lines) {
		return append(lines, line)
	}
	lines = append(lines, "")
	copy(lines[pos+1:], lines[pos:])
	lines[pos] = line
	return lines
}
