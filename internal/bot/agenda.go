package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sha1n/plenumbot/internal/calendar"
	"github.com/sha1n/plenumbot/internal/plenum"
)

// Meeting is a scheduled meeting occurrence.
type Meeting struct {
	Date   string `json:"date" yaml:"date"`
	Day    string `json:"weekday" yaml:"weekday"`
	PageID string `json:"page" yaml:"page"`
}

// Schedule describes the current window and the meetings ahead.
type Schedule struct {
	Reference string    `json:"reference" yaml:"reference"`
	Last      Meeting   `json:"last" yaml:"last"`
	Upcoming  []Meeting `json:"upcoming" yaml:"upcoming"`
}

// Agenda is the list of announced events still ahead.
type Agenda struct {
	// Source is the page the events were read from.
	Source string              `json:"source" yaml:"source"`
	Found  bool                `json:"found" yaml:"found"`
	Events []plenum.EventEntry `json:"events" yaml:"events"`
}

func (b *Bot) meeting(date time.Time) Meeting {
	return Meeting{
		Date:   plenum.FormatDate(date),
		Day:    plenum.WeekdayOf(date).String(),
		PageID: b.opts.Recurrence.PageID(date),
	}
}

// Schedule returns the schedule window of today and the next count meetings.
func (b *Bot) Schedule(count int) (Schedule, error) {
	if count <= 0 {
		count = 1
	}
	w := b.Window()
	dates, err := plenum.Occurrences(w.Reference, b.opts.Recurrence.Weekday, count)
	if err != nil {
		return Schedule{}, fmt.Errorf("compute occurrences: %w", err)
	}

	s := Schedule{
		Reference: plenum.FormatDate(w.Reference),
		Last:      b.meeting(w.Last),
		Upcoming:  make([]Meeting, 0, len(dates)),
	}
	for _, d := range dates {
		s.Upcoming = append(s.Upcoming, b.meeting(d))
	}
	return s, nil
}

// Agenda reads the announced events that lie ahead of today. The next
// meeting page is used once it exists, the previous one before that.
func (b *Bot) Agenda(ctx context.Context) (Agenda, error) {
	w := b.Window()
	source := b.opts.Recurrence.PageID(w.Next)

	exists, err := b.store.Exists(ctx, source)
	if err != nil {
		return Agenda{}, fmt.Errorf("check next page: %w", err)
	}
	if !exists {
		source = b.opts.Recurrence.PageID(w.Last)
	}

	text, err := b.store.Get(ctx, source)
	if err != nil {
		return Agenda{}, fmt.Errorf("fetch %s: %w", source, err)
	}

	// events strictly after yesterday, i.e. from today on
	events, found := plenum.UpcomingEvents(text, b.Today().AddDate(0, 0, -1))
	if events == nil {
		events = []plenum.EventEntry{}
	}
	return Agenda{Source: source, Found: found, Events: events}, nil
}

// Feed builds the calendar feed of the next weeks meetings and the agenda.
func (b *Bot) Feed(ctx context.Context, weeks int, wikiURL string) (calendar.Feed, error) {
	agenda, err := b.Agenda(ctx)
	if err != nil {
		return calendar.Feed{}, err
	}
	// starting from yesterday keeps a meeting held today in the feed
	dates, err := plenum.Occurrences(b.Today().AddDate(0, 0, -1), b.opts.Recurrence.Weekday, max(weeks, 1))
	if err != nil {
		return calendar.Feed{}, fmt.Errorf("compute occurrences: %w", err)
	}

	meetings := make([]calendar.Meeting, 0, len(dates))
	for _, d := range dates {
		meetings = append(meetings, calendar.Meeting{Date: d, PageID: b.opts.Recurrence.PageID(d)})
	}

	return calendar.Feed{
		Name:     "Plenum " + b.opts.Recurrence.Namespace,
		Meetings: meetings,
		Events:   agenda.Events,
		WikiURL:  wikiURL,
		Stamp:    b.opts.Now(),
	}, nil
}

// String renders the schedule as plain text.
func (s Schedule) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today:    %s\n", s.Reference)
	fmt.Fprintf(&sb, "Last:     %s (%s) %s\n", s.Last.Date, s.Last.Day, s.Last.PageID)
	for i, m := range s.Upcoming {
		label := "Upcoming:"
		if i == 0 {
			label = "Next:    "
		} else if i > 1 {
			label = "         "
		}
		fmt.Fprintf(&sb, "%s %s (%s) %s\n", label, m.Date, m.Day, m.PageID)
	}
	return sb.String()
}

// String renders the agenda as page bullets.
func (a Agenda) String() string {
	if len(a.Events) == 0 {
		return fmt.Sprintf("No upcoming events on %s\n", a.Source)
	}
	return plenum.FormatEvents(a.Events)
}
