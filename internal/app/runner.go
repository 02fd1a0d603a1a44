package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/plenumbot/internal/archive"
	"github.com/sha1n/plenumbot/internal/bot"
	"github.com/sha1n/plenumbot/internal/calendar"
	"github.com/sha1n/plenumbot/internal/config"
	"github.com/sha1n/plenumbot/internal/render"
	"github.com/sha1n/plenumbot/internal/wiki"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatICS  = "ics"
)

// RunParams contains dependencies for the commands
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	OpenStore         func(*config.Settings) (wiki.Store, error)
	Now               func() time.Time
	StartSSEServer    func(context.Context, *mcp.Server, *bot.Bot, *config.Settings) error
	CreateServer      func(*config.Settings, *bot.Bot, string) (*mcp.Server, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	Out               io.Writer     // command output, defaults to os.Stdout
	LogOutput         io.Writer     // log output, defaults to os.Stderr
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		OpenStore:      OpenStore,
		Now:            time.Now,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
		Out:            os.Stdout,
		LogOutput:      os.Stderr,
	}
}

// Env is a loaded configuration with the bot built from it
type Env struct {
	Settings *config.Settings
	Bot      *bot.Bot
	Out      io.Writer

	store wiki.Store
}

// Close releases the store.
func (e *Env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Error("Failed to close page store", "error", err)
		}
	}
}

// Setup loads and validates the settings, configures logging and builds the bot.
func Setup(params RunParams, flags *pflag.FlagSet) (*Env, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues and to keep stdio transport clean
	logOut := params.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	handler := slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: settings.SlogLevel()})
	slog.SetDefault(slog.New(handler))

	openStore := params.OpenStore
	if openStore == nil {
		openStore = OpenStore
	}
	store, err := openStore(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open page store: %w", err)
	}

	env := &Env{Settings: settings, Out: params.Out, store: store}
	if env.Out == nil {
		env.Out = os.Stdout
	}

	b, err := BuildBot(settings, store, params.Now)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Bot = b
	return env, nil
}

// OpenStore opens the page store selected by the settings
func OpenStore(settings *config.Settings) (wiki.Store, error) {
	st := settings.Store
	switch st.Type {
	case config.StoreTypeDokuWiki:
		s, err := wiki.NewDokuWikiStore(wiki.DokuWikiOptions{
			URL:      st.DokuWiki.URL,
			Username: st.DokuWiki.Username,
			Password: st.DokuWiki.Password,
			Token:    st.DokuWiki.Token,
			Timeout:  st.DokuWiki.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreTypeFilesystem:
		var git *wiki.GitClient
		if st.Filesystem.GitCommit {
			git = wiki.NewGitClient()
			if !git.IsGitRepository(context.Background(), st.Filesystem.Dir) {
				return nil, fmt.Errorf("git_commit is set but %s is not a git repository", st.Filesystem.Dir)
			}
		}
		s, err := wiki.NewFilesystemStore(st.Filesystem.Dir, git)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreTypeSQLite:
		s, err := wiki.NewSQLiteStore(st.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type: %q", st.Type)
	}
}

// BuildBot creates the bot for a store. When enabled, the archive in the
// state directory is opened by the bot for each archive operation.
func BuildBot(settings *config.Settings, store wiki.Store, now func() time.Time) (*bot.Bot, error) {
	loc, err := settings.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid meeting timezone: %w", err)
	}

	templates, err := render.LoadTemplates(settings.Templates.Plenum, settings.Templates.Blank)
	if err != nil {
		return nil, err
	}

	var archiveDir string
	if settings.Archive.Enabled {
		archiveDir = settings.StateDir
	}

	b := bot.New(store, bot.Options{
		Recurrence:   settings.Recurrence(),
		IndexPage:    settings.Meeting.IndexPage,
		RedirectPage: settings.Meeting.RedirectPage,
		Summary:      settings.Meeting.Summary,
		Location:     loc,
		Templates:    templates,
		Renderer:     render.NewTextRenderer(settings.Templates.Strict),
		StateDir:     settings.StateDir,
		ArchiveDir:   archiveDir,
		Now:          now,
	})
	return b, nil
}

// WikiURL returns the base URL pages are linked to, empty for local stores.
func WikiURL(settings *config.Settings) string {
	if settings.Store.Type == config.StoreTypeDokuWiki {
		return strings.TrimRight(settings.Store.DokuWiki.URL, "/")
	}
	return ""
}

// withEnv runs fn with a freshly set up environment
func withEnv(params RunParams, flags *pflag.FlagSet, fn func(*Env) error) error {
	env, err := Setup(params, flags)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}

// RunCycle generates the next meeting page. With dryRun the page is printed instead of written.
func RunCycle(ctx context.Context, params RunParams, flags *pflag.FlagSet, dryRun bool) error {
	return withEnv(params, flags, func(env *Env) error {
		config.Log(env.Settings)

		run, plan, err := env.Bot.Run(ctx, dryRun)
		if err != nil {
			return err
		}
		if dryRun {
			return printPlan(env.Out, plan)
		}
		_, err = fmt.Fprintf(env.Out, "Wrote %s (index updated: %t, redirect: %t, archived: %d)\n",
			run.NextPage, run.IndexWritten, run.Redirected, run.PagesArchived)
		return err
	})
}

// Preview prints the next meeting page and the index decision without writing
func Preview(ctx context.Context, params RunParams, flags *pflag.FlagSet) error {
	return withEnv(params, flags, func(env *Env) error {
		plan, err := env.Bot.Plan(ctx)
		if err != nil {
			return err
		}
		return printPlan(env.Out, plan)
	})
}

func printPlan(w io.Writer, plan *bot.Plan) error {
	index := "would be updated"
	if plan.IndexListed {
		index = "already lists the next page"
	}
	existing := ""
	if plan.NextExists {
		existing = " (exists, would be overwritten)"
	}
	_, err := fmt.Fprintf(w, "Last page: %s (concluded: %t)\nNext page: %s%s\nIndex:     %s\nEvents:    %d\n\n%s",
		plan.LastPage, plan.Concluded, plan.NextPage, existing, index, len(plan.Events), plan.Content)
	return err
}

// ShowSchedule prints the schedule window and the next count meetings
func ShowSchedule(_ context.Context, params RunParams, flags *pflag.FlagSet, count int, format string) error {
	return withEnv(params, flags, func(env *Env) error {
		s, err := env.Bot.Schedule(count)
		if err != nil {
			return err
		}
		switch format {
		case FormatText, "":
			_, err = io.WriteString(env.Out, s.String())
			return err
		case FormatYAML:
			return writeYAML(env.Out, s)
		default:
			return fmt.Errorf("unsupported schedule format %q", format)
		}
	})
}

// ShowEvents prints the announced upcoming events
func ShowEvents(ctx context.Context, params RunParams, flags *pflag.FlagSet, format string, weeks int) error {
	return withEnv(params, flags, func(env *Env) error {
		switch format {
		case FormatText, "":
			agenda, err := env.Bot.Agenda(ctx)
			if err != nil {
				return err
			}
			_, err = io.WriteString(env.Out, agenda.String())
			return err
		case FormatYAML:
			agenda, err := env.Bot.Agenda(ctx)
			if err != nil {
				return err
			}
			return writeYAML(env.Out, agenda)
		case FormatICS:
			feed, err := env.Bot.Feed(ctx, weeks, WikiURL(env.Settings))
			if err != nil {
				return err
			}
			_, err = io.WriteString(env.Out, calendar.Render(feed))
			return err
		default:
			return fmt.Errorf("unsupported events format %q", format)
		}
	})
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// Search queries the protocol archive
func Search(_ context.Context, params RunParams, flags *pflag.FlagSet, query string, year, limit int) error {
	return withEnv(params, flags, func(env *Env) error {
		if limit <= 0 {
			limit = env.Settings.Archive.MaxResults
		}
		results, err := env.Bot.Search(archive.SearchRequest{Query: query, Year: year, Limit: limit})
		if err != nil {
			return err
		}
		_, err = io.WriteString(env.Out, results.Format())
		return err
	})
}

// Reindex rebuilds the protocol archive from the store
func Reindex(ctx context.Context, params RunParams, flags *pflag.FlagSet) error {
	return withEnv(params, flags, func(env *Env) error {
		n, err := env.Bot.Reindex(ctx)
		if err != nil {
			return err
		}
		slog.Info("Reindexed protocols", "pages", n)
		_, err = fmt.Fprintf(env.Out, "Indexed %d pages\n", n)
		return err
	})
}

// IsLockHeld reports whether err means another run holds the lock.
func IsLockHeld(err error) bool {
	return errors.Is(err, bot.ErrLockHeld)
}
