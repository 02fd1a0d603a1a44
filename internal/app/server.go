package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/plenumbot/internal/auth"
	"github.com/sha1n/plenumbot/internal/bot"
	"github.com/sha1n/plenumbot/internal/calendar"
	"github.com/sha1n/plenumbot/internal/config"
	mcputil "github.com/sha1n/plenumbot/internal/mcp"
	"github.com/spf13/pflag"
)

const (
	// CalendarPath serves the meeting feed.
	CalendarPath = "/calendar.ics"
	// CalendarWeeks is the default number of meetings in the feed.
	CalendarWeeks = 8

	maxCalendarWeeks = 104
	shutdownTimeout  = 5 * time.Second
)

// Serve runs the MCP server on the configured transport
func Serve(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	env, err := Setup(params, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	slog.Info("Starting plenumbot MCP server", "version", version)
	config.Log(env.Settings)
	config.LogServe(env.Settings, slog.Default())

	mcpServer, err := params.CreateServer(env.Settings, env.Bot, version)
	if err != nil {
		return err
	}

	if env.Settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", env.Settings.Host, "port", env.Settings.Port)
	return params.StartSSEServer(ctx, mcpServer, env.Bot, env.Settings)
}

// CreateMCPServer creates the MCP server with registered tools
func CreateMCPServer(settings *config.Settings, b *bot.Bot, version string) (*mcp.Server, error) {
	if b == nil {
		return nil, errors.New("mcp server requires a bot")
	}
	return mcputil.CreateServer(mcputil.ServerConfig{
		Name:       "plenumbot",
		Version:    version,
		Bot:        b,
		MaxResults: settings.Archive.MaxResults,
		WikiURL:    WikiURL(settings),
	}), nil
}

// StartSSEServer starts the SSE server with authentication and stops it when ctx is done
func StartSSEServer(ctx context.Context, s *mcp.Server, b *bot.Bot, settings *config.Settings) error {
	srv, err := NewSSEServer(s, b, settings)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewSSEServer creates a new SSE server with authentication middleware.
// The calendar feed is served next to the SSE endpoint when b is set.
func NewSSEServer(s *mcp.Server, b *bot.Bot, settings *config.Settings) (*http.Server, error) {
	// Factory function returns the server instance for each request
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return s
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/sse", sseHandler)
	if b != nil {
		mux.Handle(CalendarPath, CalendarHandler(b, WikiURL(settings)))
	}

	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	handler := authMiddleware(mux)
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// CalendarHandler serves the iCalendar feed of the upcoming meetings and
// announced events. The optional weeks parameter sets the number of meetings.
func CalendarHandler(b *bot.Bot, wikiURL string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		weeks := CalendarWeeks
		if v := r.URL.Query().Get("weeks"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxCalendarWeeks {
				http.Error(w, fmt.Sprintf("weeks must be between 1 and %d", maxCalendarWeeks), http.StatusBadRequest)
				return
			}
			weeks = n
		}

		feed, err := b.Feed(r.Context(), weeks, wikiURL)
		if err != nil {
			slog.Error("Failed to build calendar feed", "error", err)
			http.Error(w, "failed to build calendar", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", calendar.ContentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(calendar.Render(feed)))
	})
}
