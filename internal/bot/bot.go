// Package bot runs the plenum page cycle against a wiki store.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sha1n/plenumbot/internal/archive"
	"github.com/sha1n/plenumbot/internal/lock"
	"github.com/sha1n/plenumbot/internal/plenum"
	"github.com/sha1n/plenumbot/internal/state"
	"github.com/sha1n/plenumbot/internal/wiki"
)

// ErrLockHeld is returned when another run holds the run lock.
var ErrLockHeld = errors.New("another run is in progress")

// ErrArchiveDisabled is returned by archive operations when no archive is configured.
var ErrArchiveDisabled = errors.New("protocol archive is disabled")

// Options configures a Bot.
type Options struct {
	Recurrence   plenum.RecurrenceConfig
	IndexPage    string
	RedirectPage string // empty disables the redirect
	Summary      string
	Location     *time.Location
	Templates    plenum.Templates
	Renderer     plenum.Renderer
	// StateDir holds the run lock and the run state. Empty disables both.
	StateDir string
	// Archive receives the previous and next page of every run when set.
	Archive *archive.Archive
	// ArchiveDir is opened for each archive operation when Archive is nil,
	// so the index is only held while it is used. Empty disables the archive.
	ArchiveDir string
	// Now returns the current time, defaults to time.Now.
	Now func() time.Time
}

// Bot generates meeting pages.
type Bot struct {
	store wiki.Store
	opts  Options

	// serializes archive opens within the process
	archiveMu sync.Mutex
}

// New creates a bot writing to store.
func New(store wiki.Store, opts Options) *Bot {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Summary == "" {
		opts.Summary = wiki.DefaultSummary
	}
	return &Bot{store: store, opts: opts}
}

// Store returns the page store.
func (b *Bot) Store() wiki.Store {
	return b.store
}

// Options returns the bot configuration.
func (b *Bot) Options() Options {
	return b.opts
}

// Today returns the current date in the configured timezone.
func (b *Bot) Today() time.Time {
	now := b.opts.Now().In(b.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.opts.Location)
}

// Window returns the schedule window of today.
func (b *Bot) Window() plenum.Window {
	return plenum.ComputeWindow(b.Today(), b.opts.Recurrence.Weekday)
}

// Plan is the outcome of a cycle before anything is written.
type Plan struct {
	Window       plenum.Window
	LastPage     string
	NextPage     string
	Concluded    bool
	NextExists   bool
	Content      string
	Index        string
	IndexListed  bool
	Events       []plenum.EventEntry
	EventsFound  bool
	previousText string
}

// Plan fetches the previous meeting page and the index and computes the
// next page and the updated index.
func (b *Bot) Plan(ctx context.Context) (*Plan, error) {
	w := b.Window()
	p := &Plan{
		Window:   w,
		LastPage: b.opts.Recurrence.PageID(w.Last),
		NextPage: b.opts.Recurrence.PageID(w.Next),
	}

	previous, err := b.store.Get(ctx, p.LastPage)
	if err != nil {
		return nil, fmt.Errorf("fetch previous page: %w", err)
	}
	index, err := b.store.Get(ctx, b.opts.IndexPage)
	if err != nil {
		return nil, fmt.Errorf("fetch index page: %w", err)
	}
	p.NextExists, err = b.store.Exists(ctx, p.NextPage)
	if err != nil {
		return nil, fmt.Errorf("check next page: %w", err)
	}

	p.previousText = previous
	p.Concluded = plenum.MeetingConcluded(previous)
	p.Events, p.EventsFound = plenum.UpcomingEvents(previous, w.Next)

	p.Content, err = plenum.RenderNextPage(previous, w.Next, b.opts.Templates, b.opts.Renderer)
	if err != nil {
		return nil, err
	}

	p.IndexListed = plenum.PageAlreadyListed(index, p.NextPage)
	p.Index = plenum.UpdateIndex(index, w.Next, p.NextPage)
	return p, nil
}

// Run executes one cycle. With dryRun set the plan is computed but nothing
// is written and no lock is taken. The returned run is also recorded in the
// state file when a state directory is configured.
func (b *Bot) Run(ctx context.Context, dryRun bool) (state.Run, *Plan, error) {
	run := state.Run{StartedAt: b.opts.Now(), DryRun: dryRun}

	if !dryRun && b.opts.StateDir != "" {
		l := lock.InDir(b.opts.StateDir)
		acquired, err := l.TryLock()
		if err != nil {
			return run, nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			if pid := l.Holder(); pid != 0 {
				return run, nil, fmt.Errorf("%w (pid %d)", ErrLockHeld, pid)
			}
			return run, nil, ErrLockHeld
		}
		defer func() { _ = l.Unlock() }()
	}

	plan, err := b.cycle(ctx, &run, dryRun)
	run.FinishedAt = b.opts.Now()
	if err != nil {
		run.Error = err.Error()
	}
	if recErr := b.record(run); recErr != nil {
		slog.Warn("Failed to record run state", "error", recErr)
	}
	return run, plan, err
}

func (b *Bot) cycle(ctx context.Context, run *state.Run, dryRun bool) (*Plan, error) {
	plan, err := b.Plan(ctx)
	if err != nil {
		return nil, err
	}

	run.Reference = plenum.FormatDate(plan.Window.Reference)
	run.LastPage = plan.LastPage
	run.NextPage = plan.NextPage
	run.Concluded = plan.Concluded

	logger := slog.With("next_page", plan.NextPage, "last_page", plan.LastPage)
	logger.Info("Planned next meeting page", "concluded", plan.Concluded, "events", len(plan.Events), "index_listed", plan.IndexListed)

	if dryRun {
		return plan, nil
	}

	if err := b.store.Set(ctx, plan.NextPage, plan.Content, b.opts.Summary); err != nil {
		return plan, fmt.Errorf("write next page: %w", err)
	}
	logger.Info("Wrote next meeting page")

	if !plan.IndexListed {
		if err := b.store.Set(ctx, b.opts.IndexPage, plan.Index, b.opts.Summary); err != nil {
			return plan, fmt.Errorf("write index page: %w", err)
		}
		run.IndexWritten = true
		logger.Info("Updated index page", "page", b.opts.IndexPage)
	}

	if b.opts.RedirectPage != "" {
		if err := wiki.SetRedirect(ctx, b.store, b.opts.RedirectPage, plan.NextPage); err != nil {
			return plan, fmt.Errorf("write redirect page: %w", err)
		}
		run.Redirected = true
	}

	if b.ArchiveEnabled() {
		err := b.withArchive(func(a *archive.Archive) error {
			run.PagesArchived = archivePages(a, map[string]string{
				plan.LastPage: plan.previousText,
				plan.NextPage: plan.Content,
			})
			return nil
		})
		if err != nil {
			slog.Warn("Skipping protocol archive", "error", err)
		}
	}

	return plan, nil
}

// ArchiveEnabled reports whether an archive is configured.
func (b *Bot) ArchiveEnabled() bool {
	return b.opts.Archive != nil || b.opts.ArchiveDir != ""
}

// withArchive calls fn with the configured archive. An archive opened from
// ArchiveDir is closed again when fn returns.
func (b *Bot) withArchive(fn func(*archive.Archive) error) error {
	if b.opts.Archive != nil {
		return fn(b.opts.Archive)
	}
	if b.opts.ArchiveDir == "" {
		return ErrArchiveDisabled
	}

	b.archiveMu.Lock()
	defer b.archiveMu.Unlock()

	a, err := archive.Open(b.opts.ArchiveDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to close protocol archive", "error", err)
		}
	}()
	return fn(a)
}

// archivePages indexes pages and returns how many were archived. Failures
// are logged only. Reindex repairs the index from the wiki.
func archivePages(a *archive.Archive, pages map[string]string) int {
	n := 0
	for id, text := range pages {
		if text == "" {
			continue
		}
		ok, err := a.IndexPage(id, text)
		if err != nil {
			slog.Warn("Failed to archive page", "page", id, "error", err)
			continue
		}
		if ok {
			n++
		}
	}
	return n
}

func (b *Bot) record(run state.Run) error {
	if b.opts.StateDir == "" {
		return nil
	}
	path := state.PathIn(b.opts.StateDir)
	s, err := state.Load(path)
	if err != nil {
		return err
	}
	s.Record(run)
	return s.Save(path)
}

// Reindex rebuilds the archive from every page in the meeting namespace.
func (b *Bot) Reindex(ctx context.Context) (int, error) {
	var n int
	err := b.withArchive(func(a *archive.Archive) error {
		var err error
		n, err = a.Reindex(ctx, b.store, b.opts.Recurrence.Namespace)
		return err
	})
	if errors.Is(err, ErrArchiveDisabled) {
		return 0, err
	}
	if err != nil {
		return n, fmt.Errorf("reindex: %w", err)
	}

	if b.opts.StateDir != "" {
		path := state.PathIn(b.opts.StateDir)
		s, err := state.Load(path)
		if err == nil {
			s.MarkIndexed(b.opts.Now())
			err = s.Save(path)
		}
		if err != nil {
			slog.Warn("Failed to record reindex", "error", err)
		}
	}
	return n, nil
}

// Search queries the archive.
func (b *Bot) Search(req archive.SearchRequest) (*archive.Results, error) {
	var res *archive.Results
	err := b.withArchive(func(a *archive.Archive) error {
		var err error
		res, err = a.Search(req)
		return err
	})
	return res, err
}

// LastRun returns the last recorded run, or nil.
func (b *Bot) LastRun() (*state.Run, error) {
	if b.opts.StateDir == "" {
		return nil, nil
	}
	s, err := state.Load(state.PathIn(b.opts.StateDir))
	if err != nil {
		return nil, err
	}
	last, _ := s.Snapshot()
	return last, nil
}
