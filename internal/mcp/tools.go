package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/plenumbot/internal/archive"
	"github.com/sha1n/plenumbot/internal/bot"
	"github.com/sha1n/plenumbot/internal/calendar"
)

const maxScheduleCount = 52

// NextMeetingArgument defines next_meeting parameters.
type NextMeetingArgument struct {
	Count int `json:"count,omitempty" jsonschema_description:"Number of upcoming meetings to list (default 1, max 52)"`
}

// PreviewArgument defines preview_next_page parameters.
type PreviewArgument struct{}

// EventsArgument defines upcoming_events parameters.
type EventsArgument struct {
	Format string `json:"format,omitempty" jsonschema_description:"Output format: text (default) or ics"`
}

// SearchArgument defines search_protocols parameters.
type SearchArgument struct {
	Query string `json:"query" jsonschema_description:"Full-text query over past meeting pages"`
	Year  int    `json:"year,omitempty" jsonschema_description:"Only return meetings of this year (e.g., 2024)"`
}

// Tools implements the read-only MCP tools of the bot.
type Tools struct {
	bot        *bot.Bot
	maxResults int
	wikiURL    string
}

// NewTools creates the tool handlers.
func NewTools(b *bot.Bot, maxResults int, wikiURL string) *Tools {
	if maxResults <= 0 {
		maxResults = 20
	}
	return &Tools{bot: b, maxResults: maxResults, wikiURL: wikiURL}
}

// Register adds all tools to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "next_meeting",
		Description: "Show the date and page of the next plenum meetings and the last one",
	}, t.NextMeeting)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_next_page",
		Description: "Generate the next plenum page from the last one without writing anything to the wiki",
	}, t.PreviewNextPage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "upcoming_events",
		Description: "List the announced events (Termine) that lie ahead",
	}, t.UpcomingEvents)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_protocols",
		Description: "Search past plenum pages using full-text search",
	}, t.SearchProtocols)
}

// NextMeeting handles next_meeting.
func (t *Tools) NextMeeting(_ context.Context, _ *mcp.CallToolRequest, args NextMeetingArgument) (*mcp.CallToolResult, any, error) {
	count := min(max(args.Count, 1), maxScheduleCount)

	s, err := t.bot.Schedule(count)
	if err != nil {
		return errorResult("Failed to compute schedule: %s", err), nil, nil
	}
	return textResult(s.String()), nil, nil
}

// PreviewNextPage handles preview_next_page.
func (t *Tools) PreviewNextPage(ctx context.Context, _ *mcp.CallToolRequest, _ PreviewArgument) (*mcp.CallToolResult, any, error) {
	plan, err := t.bot.Plan(ctx)
	if err != nil {
		return errorResult("Failed to generate next page: %s", err), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Next page: %s\n", plan.NextPage)
	if t.wikiURL != "" {
		fmt.Fprintf(&sb, "URL: %s\n", calendar.PageURL(t.wikiURL, plan.NextPage))
	}
	fmt.Fprintf(&sb, "Previous page: %s (concluded: %t)\n", plan.LastPage, plan.Concluded)
	fmt.Fprintf(&sb, "Page exists: %t\n", plan.NextExists)
	fmt.Fprintf(&sb, "Index update needed: %t\n\n", !plan.IndexListed)
	sb.WriteString("```\n")
	sb.WriteString(plan.Content)
	if !strings.HasSuffix(plan.Content, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")

	return textResult(sb.String()), nil, nil
}

// UpcomingEvents handles upcoming_events.
func (t *Tools) UpcomingEvents(ctx context.Context, _ *mcp.CallToolRequest, args EventsArgument) (*mcp.CallToolResult, any, error) {
	switch strings.ToLower(args.Format) {
	case "", "text":
		agenda, err := t.bot.Agenda(ctx)
		if err != nil {
			return errorResult("Failed to read events: %s", err), nil, nil
		}
		return textResult(agenda.String()), nil, nil
	case "ics":
		feed, err := t.bot.Feed(ctx, 4, t.wikiURL)
		if err != nil {
			return errorResult("Failed to build calendar: %s", err), nil, nil
		}
		return textResult(calendar.Render(feed)), nil, nil
	default:
		return errorResult("Unsupported format: %s", args.Format), nil, nil
	}
}

// SearchProtocols handles search_protocols.
func (t *Tools) SearchProtocols(_ context.Context, _ *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	res, err := t.bot.Search(archive.SearchRequest{Query: args.Query, Year: args.Year, Limit: t.maxResults})
	if err != nil {
		if errors.Is(err, bot.ErrArchiveDisabled) {
			return errorResult("Search is not available. The protocol archive is disabled."), nil, nil
		}
		return errorResult("Search failed: %s", err), nil, nil
	}
	return textResult(res.Format()), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, a...)}},
		IsError: true,
	}
}
