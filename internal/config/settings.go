package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sha1n/plenumbot/internal/plenum"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of all environment variables read by the settings loader.
const EnvPrefix = "PLENUMBOT"

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Store type constants
const (
	StoreTypeDokuWiki   = "dokuwiki"
	StoreTypeFilesystem = "filesystem"
	StoreTypeSQLite     = "sqlite"
)

// AuthSettings configuration for authentication of the SSE server
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MeetingSettings describes the recurring meeting and the pages it maintains.
type MeetingSettings struct {
	Weekday      int    `mapstructure:"weekday"` // 0 = Monday .. 6 = Sunday
	Namespace    string `mapstructure:"namespace"`
	IndexPage    string `mapstructure:"index_page"`
	RedirectPage string `mapstructure:"redirect_page"` // empty disables the redirect
	Timezone     string `mapstructure:"timezone"`
	Summary      string `mapstructure:"summary"`
}

// TemplateSettings locates the page templates.
type TemplateSettings struct {
	Plenum string `mapstructure:"plenum"`
	Blank  string `mapstructure:"blank"`
	Strict bool   `mapstructure:"strict"`
}

// DokuWikiSettings configuration for the JSON-RPC store
type DokuWikiSettings struct {
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FilesystemSettings configuration for the pages directory store
type FilesystemSettings struct {
	Dir       string `mapstructure:"dir"`
	GitCommit bool   `mapstructure:"git_commit"`
}

// SQLiteSettings configuration for the SQLite store
type SQLiteSettings struct {
	Path string `mapstructure:"path"`
}

// StoreSettings selects and configures the page store.
type StoreSettings struct {
	Type       string             `mapstructure:"type"`
	DokuWiki   DokuWikiSettings   `mapstructure:"dokuwiki"`
	Filesystem FilesystemSettings `mapstructure:"filesystem"`
	SQLite     SQLiteSettings     `mapstructure:"sqlite"`
}

// ArchiveSettings configuration for the protocol search index
type ArchiveSettings struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxResults int  `mapstructure:"max_results"`
}

// DaemonSettings configuration for scheduled runs
type DaemonSettings struct {
	Schedule string `mapstructure:"schedule"`
}

// Settings application settings
type Settings struct {
	Meeting   MeetingSettings  `mapstructure:"meeting"`
	Templates TemplateSettings `mapstructure:"templates"`
	Store     StoreSettings    `mapstructure:"store"`
	StateDir  string           `mapstructure:"state_dir"`
	Archive   ArchiveSettings  `mapstructure:"archive"`
	Daemon    DaemonSettings   `mapstructure:"daemon"`
	LogLevel  string           `mapstructure:"log_level"`
	Transport string           `mapstructure:"transport"`
	Host      string           `mapstructure:"host"`
	Port      int              `mapstructure:"port"`
	Auth      AuthSettings     `mapstructure:"auth"`
}

// Recurrence returns the meeting recurrence described by the settings.
func (s *Settings) Recurrence() plenum.RecurrenceConfig {
	return plenum.RecurrenceConfig{
		Weekday:   plenum.Weekday(s.Meeting.Weekday),
		Namespace: s.Meeting.Namespace,
	}
}

// Location returns the timezone used to determine "today".
func (s *Settings) Location() (*time.Location, error) {
	if s.Meeting.Timezone == "" || s.Meeting.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Meeting.Timezone)
}

// SlogLevel converts LogLevel to a slog level, defaulting to info.
func (s *Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// flagBindings maps settings keys to the CLI flags that override them.
var flagBindings = map[string]string{
	"meeting.weekday":             "weekday",
	"meeting.namespace":           "namespace",
	"meeting.index_page":          "index-page",
	"meeting.redirect_page":       "redirect-page",
	"meeting.timezone":            "timezone",
	"templates.plenum":            "template-plenum",
	"templates.blank":             "template-blank",
	"store.type":                  "store",
	"store.dokuwiki.url":          "dokuwiki-url",
	"store.filesystem.dir":        "pages-dir",
	"store.sqlite.path":           "sqlite-path",
	"state_dir":                   "state-dir",
	"archive.enabled":             "archive",
	"daemon.schedule":             "schedule",
	"log_level":                   "log-level",
	"transport":                   "transport",
	"host":                        "host",
	"port":                        "port",
	"auth.type":                   "auth-type",
	"auth.basic.username":         "auth-basic-username",
	"auth.basic.password":         "auth-basic-password",
	"auth.api_keys":               "auth-api-keys",
	"store.filesystem.git_commit": "git-commit",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > config file > .env file > defaults.
// The config file is taken from the "config" flag when it is set.
// If flags is nil, only env vars, .env and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, envName(key))
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for key, flag := range flagBindings {
			if f := flags.Lookup(flag); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}
	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if configFile != "" {
		v.SetConfigFile(expandHomeDir(configFile))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(".env")
		v.SetConfigType("env")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // Ignore error if .env doesn't exist
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv(envName("auth.api_keys"))
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.Meeting.Namespace = strings.Trim(strings.TrimSpace(settings.Meeting.Namespace), ":")
	settings.StateDir = expandHomeDir(settings.StateDir)
	settings.Templates.Plenum = expandHomeDir(settings.Templates.Plenum)
	settings.Templates.Blank = expandHomeDir(settings.Templates.Blank)
	settings.Store.Filesystem.Dir = expandHomeDir(settings.Store.Filesystem.Dir)
	settings.Store.SQLite.Path = expandHomeDir(settings.Store.SQLite.Path)

	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("meeting.weekday", int(plenum.Monday))
	v.SetDefault("meeting.namespace", "plenum")
	v.SetDefault("meeting.index_page", "plenum:start")
	v.SetDefault("meeting.redirect_page", "plenum:aktuell")
	v.SetDefault("meeting.timezone", "Local")
	v.SetDefault("meeting.summary", "modified by plenumbot")

	v.SetDefault("templates.plenum", "templates/plenum.tmpl")
	v.SetDefault("templates.blank", "templates/blank_topics.tmpl")
	v.SetDefault("templates.strict", false)

	v.SetDefault("store.type", StoreTypeDokuWiki)
	v.SetDefault("store.dokuwiki.url", "")
	v.SetDefault("store.dokuwiki.username", "")
	v.SetDefault("store.dokuwiki.password", "")
	v.SetDefault("store.dokuwiki.token", "")
	v.SetDefault("store.dokuwiki.timeout", 30*time.Second)
	v.SetDefault("store.filesystem.dir", "")
	v.SetDefault("store.filesystem.git_commit", false)
	v.SetDefault("store.sqlite.path", "")

	v.SetDefault("state_dir", defaultStateDir())
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.max_results", 20)
	v.SetDefault("daemon.schedule", "0 6 * * *")
	v.SetDefault("log_level", "info")

	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)
	v.SetDefault("auth.basic.username", "")
	v.SetDefault("auth.basic.password", "")
	v.SetDefault("auth.api_keys", []string{})
}

// envName returns the environment variable bound to a settings key,
// e.g. "store.dokuwiki.url" -> "PLENUMBOT_STORE_DOKUWIKI_URL".
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// defaultStateDir returns the default directory for lock, run state and archive
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".plenumbot"
	}
	return filepath.Join(home, ".plenumbot")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for missing or conflicting configuration.
func ValidateSettings(s *Settings) error {
	if err := s.Recurrence().Validate(); err != nil {
		return fmt.Errorf("meeting: %w", err)
	}
	if strings.TrimSpace(s.Meeting.IndexPage) == "" {
		return errors.New("meeting index_page cannot be empty")
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("invalid meeting timezone %q: %w", s.Meeting.Timezone, err)
	}

	if s.Templates.Plenum == "" || s.Templates.Blank == "" {
		return errors.New("both templates.plenum and templates.blank are required")
	}

	if err := validateStoreSettings(&s.Store); err != nil {
		return err
	}

	if s.StateDir == "" {
		return errors.New("state_dir cannot be empty")
	}

	if s.Archive.Enabled && s.Archive.MaxResults <= 0 {
		return errors.New("archive max_results must be positive")
	}

	if s.Daemon.Schedule != "" {
		if _, err := cron.ParseStandard(s.Daemon.Schedule); err != nil {
			return fmt.Errorf("invalid daemon schedule %q: %w", s.Daemon.Schedule, err)
		}
	}

	switch strings.ToLower(s.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
		// valid
	default:
		return errors.New("log_level must be one of debug, info, warn, error, got: " + s.LogLevel)
	}

	return validateServeSettings(s)
}

// validateStoreSettings checks that the selected store has what it needs
func validateStoreSettings(st *StoreSettings) error {
	switch st.Type {
	case StoreTypeDokuWiki:
		if st.DokuWiki.URL == "" {
			return errors.New("store 'dokuwiki' requires store.dokuwiki.url")
		}
		if st.DokuWiki.Username != "" && st.DokuWiki.Token != "" {
			return errors.New("store.dokuwiki username and token are mutually exclusive")
		}
	case StoreTypeFilesystem:
		if st.Filesystem.Dir == "" {
			return errors.New("store 'filesystem' requires store.filesystem.dir")
		}
	case StoreTypeSQLite:
		if st.SQLite.Path == "" {
			return errors.New("store 'sqlite' requires store.sqlite.path")
		}
	default:
		return fmt.Errorf("unknown store type: %q", st.Type)
	}
	return nil
}

// validateServeSettings validates transport and auth settings of the MCP server
func validateServeSettings(s *Settings) error {
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	return nil
}
