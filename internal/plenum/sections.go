package plenum

import (
	"regexp"
	"strings"
)

const headingDelimiter = "====="

var headingPattern = regexp.MustCompile(`^={5}[^=]*={5}$`)

// Section is a level-2 heading of a plenum page and the lines below it.
type Section struct {
	Heading string
	Body    string
}

// IsHeading reports whether line is a section heading such as "===== Topic =====".
func IsHeading(line string) bool {
	return headingPattern.MatchString(strings.TrimSpace(line))
}

// HeadingLine renders title as a section heading line.
func HeadingLine(title string) string {
	return headingDelimiter + " " + title + " " + headingDelimiter
}

// SplitSections splits text into its sections in document order.
//
// The body of a section is every line strictly between its heading and the next
// boundary. The last line of the document acts as the final boundary and is
// therefore never part of a body. Text before the first heading is ignored.
func SplitSections(text string) []Section {
	lines := splitLines(text)

	var boundaries []int
	for i, line := range lines {
		if IsHeading(line) {
			boundaries = append(boundaries, i)
		}
	}
	if len(boundaries) == 0 {
		return nil
	}
	boundaries = append(boundaries, len(lines)-1)

	sections := make([]Section, 0, len(boundaries)-1)
	for k := 0; k < len(boundaries)-1; k++ {
		start, end := boundaries[k]+1, boundaries[k+1]
		body := ""
		if start < end {
			body = strings.Join(lines[start:end], "\n")
		}
		sections = append(sections, Section{
			Heading: headingTitle(lines[boundaries[k]]),
			Body:    body,
		})
	}
	return sections
}

// FindSectionStart returns the index of the first line equal to headingLine.
// The second return value is false when no such line exists.
func FindSectionStart(text, headingLine string) (int, bool) {
	want := strings.TrimRight(headingLine, "\n")
	for i, line := range splitLines(text) {
		if line == want {
			return i, true
		}
	}
	return -1, false
}

func headingTitle(line string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "="))
}

// splitLines splits text on line breaks. A trailing line break does not produce
// an empty final line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
