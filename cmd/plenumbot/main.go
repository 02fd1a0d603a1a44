package main

import (
	"context"
	"os"
	"strings"

	"github.com/sha1n/plenumbot/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "plenumbot"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	return ExecuteWithParams(version, build, programName, args, app.DefaultRunParams())
}

// ExecuteWithParams runs the CLI with the given dependencies
func ExecuteWithParams(version, build, programName string, args []string, params app.RunParams) error {
	ctx := context.Background()

	runCmd := func(use string) *cobra.Command {
		cmd := &cobra.Command{
			Use:   use,
			Short: "Generate the next plenum page, update the index and the redirect",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				dryRun, _ := cmd.Flags().GetBool("dry-run")
				return app.RunCycle(ctx, params, cmd.Flags(), dryRun)
			},
		}
		app.RegisterRunFlags(cmd.Flags())
		return cmd
	}

	rootCmd := runCmd(programName)
	rootCmd.Long = "Maintains the pages of a weekly plenum in a DokuWiki: creates the next meeting page from the last one, lists it on the index page and points the redirect page at it."
	rootCmd.Version = version
	rootCmd.SilenceUsage = true
	rootCmd.SetVersionTemplate(`{{.Version}} (build ` + build + `)
`)
	app.RegisterFlags(rootCmd.PersistentFlags())

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the next plenum page without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Preview(ctx, params, cmd.Flags())
		},
	}

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the last and the upcoming meeting dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, _ := cmd.Flags().GetInt("count")
			format, _ := cmd.Flags().GetString("format")
			return app.ShowSchedule(ctx, params, cmd.Flags(), count, format)
		},
	}
	scheduleCmd.Flags().IntP("count", "n", 4, "Number of upcoming meetings")
	app.RegisterFormatFlag(scheduleCmd.Flags(), app.FormatText, "Output format: text or yaml")

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "List the announced upcoming events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			weeks, _ := cmd.Flags().GetInt("weeks")
			return app.ShowEvents(ctx, params, cmd.Flags(), format, weeks)
		},
	}
	app.RegisterFormatFlag(eventsCmd.Flags(), app.FormatText, "Output format: text, yaml or ics")
	eventsCmd.Flags().Int("weeks", app.CalendarWeeks, "Number of meetings in the ics feed")

	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search past plenum pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, _ := cmd.Flags().GetInt("year")
			limit, _ := cmd.Flags().GetInt("limit")
			return app.Search(ctx, params, cmd.Flags(), strings.Join(args, " "), year, limit)
		},
	}
	searchCmd.Flags().Int("year", 0, "Only return meetings of this year")
	searchCmd.Flags().Int("limit", 0, "Maximum number of results (default archive.max_results)")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the protocol archive from the wiki",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Reindex(ctx, params, cmd.Flags())
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Serve(ctx, params, cmd.Flags(), version)
		},
	}

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the page cycle on the configured schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runNow, _ := cmd.Flags().GetBool("run-now")
			return app.Daemon(ctx, params, cmd.Flags(), runNow)
		},
	}
	daemonCmd.Flags().Bool("run-now", false, "Run once immediately before waiting for the schedule")

	rootCmd.AddCommand(runCmd("run"), previewCmd, scheduleCmd, eventsCmd, searchCmd, reindexCmd, serveCmd, daemonCmd)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}
