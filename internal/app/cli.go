package app

import "github.com/spf13/pflag"

// RegisterFlags registers the settings flags shared by all commands on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "Path to a YAML config file")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	// Meeting
	flags.IntP("weekday", "w", 0, "Meeting weekday, 0 = Monday .. 6 = Sunday")
	flags.String("namespace", "", "Wiki namespace of the meeting pages")
	flags.String("index-page", "", "Page listing all meeting pages")
	flags.String("redirect-page", "", "Page redirecting to the next meeting page")
	flags.String("timezone", "", "Timezone used to determine today")

	// Templates
	flags.String("template-plenum", "", "Template of a meeting page")
	flags.String("template-blank", "", "Template of the empty topics section")

	// Store
	flags.StringP("store", "s", "", "Page store: dokuwiki, filesystem or sqlite")
	flags.String("dokuwiki-url", "", "Base URL of the DokuWiki instance")
	flags.String("pages-dir", "", "Pages directory of the filesystem store")
	flags.Bool("git-commit", false, "Commit written pages when the pages directory is a git repository")
	flags.String("sqlite-path", "", "Database file of the sqlite store")

	flags.String("state-dir", "", "Directory of the run lock, run state and protocol archive")
	flags.Bool("archive", false, "Index meeting pages for search_protocols")
	flags.String("schedule", "", "Cron schedule of the daemon")

	// MCP server
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
}

// RegisterRunFlags registers the flags of the run command
func RegisterRunFlags(flags *pflag.FlagSet) {
	flags.Bool("dry-run", false, "Compute the next page without writing anything")
}

// RegisterFormatFlag registers the output format flag
func RegisterFormatFlag(flags *pflag.FlagSet, def string, usage string) {
	flags.StringP("format", "f", def, usage)
}
