package plenum

import (
	"fmt"
	"strings"
	"time"
)

// Template variable names available to the plenum template.
const (
	VarDatePlenum     = "date_plenum"
	VarUpcomingEvents = "upcoming_events"
	VarContent        = "content"
)

// Renderer substitutes named values into a template text.
type Renderer interface {
	Render(tpl string, values map[string]any) (string, error)
}

// Templates holds the two template sources used to build a new page.
// Plenum is the page blueprint, Blank is the topic block used after a
// meeting that took place.
type Templates struct {
	Plenum string
	Blank  string
}

// CarryForward rebuilds every section of previous except the appointments
// section, so unresolved topics reappear on the next page.
func CarryForward(previous string) string {
	var sb strings.Builder
	for _, section := range SplitSections(previous) {
		if section.Heading == EventsHeading {
			continue
		}
		sb.WriteString(HeadingLine(section.Heading))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(section.Body, "\n"))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// RenderNextPage builds the page of the meeting held on next from the page of the
// previous meeting.
func RenderNextPage(previous string, next time.Time, tpls Templates, r Renderer) (string, error) {
	content := tpls.Blank
	if !MeetingConcluded(previous) {
		content = CarryForward(previous)
	}

	events, _ := UpcomingEvents(previous, next)

	out, err := r.Render(tpls.Plenum, map[string]any{
		VarDatePlenum:     FormatDate(next),
		VarUpcomingEvents: FormatEvents(events),
		VarContent:        content,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render plenum template: %w", err)
	}
	return out, nil
}
