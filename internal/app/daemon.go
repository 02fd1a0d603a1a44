package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sha1n/plenumbot/internal/bot"
	"github.com/sha1n/plenumbot/internal/config"
	"github.com/spf13/pflag"
)

// Daemon runs the cycle on the configured cron schedule until ctx is done
// or the process receives SIGINT or SIGTERM.
func Daemon(ctx context.Context, params RunParams, flags *pflag.FlagSet, runNow bool) error {
	return withEnv(params, flags, func(env *Env) error {
		if env.Settings.Daemon.Schedule == "" {
			return errors.New("daemon requires a schedule")
		}
		loc, err := env.Settings.Location()
		if err != nil {
			return err
		}
		config.Log(env.Settings)

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := NewScheduler(ctx, env.Bot, env.Settings.Daemon.Schedule, loc)
		if err != nil {
			return err
		}

		if runNow {
			RunScheduled(ctx, env.Bot)
		}

		c.Start()
		slog.Info("Daemon started", "schedule", env.Settings.Daemon.Schedule, "timezone", loc.String())

		<-ctx.Done()
		slog.Info("Shutting down daemon")
		<-c.Stop().Done()
		return nil
	})
}

// NewScheduler creates a cron scheduler running the cycle of b on schedule.
// Runs that are still in progress when the next one is due are skipped.
func NewScheduler(ctx context.Context, b *bot.Bot, schedule string, loc *time.Location) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(schedule, func() { RunScheduled(ctx, b) }); err != nil {
		return nil, fmt.Errorf("invalid daemon schedule %q: %w", schedule, err)
	}
	return c, nil
}

// RunScheduled runs one cycle and logs its outcome. Lock contention is
// reported and the run is skipped.
func RunScheduled(ctx context.Context, b *bot.Bot) {
	if ctx.Err() != nil {
		return
	}
	run, _, err := b.Run(ctx, false)
	switch {
	case err == nil:
		slog.Info("Scheduled run finished", "next_page", run.NextPage, "index_written", run.IndexWritten, "redirected", run.Redirected)
	case IsLockHeld(err):
		slog.Warn("Skipping scheduled run", "reason", err)
	default:
		slog.Error("Scheduled run failed", "error", err)
	}
}
