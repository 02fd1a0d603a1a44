package config

import (
	"context"
	"log/slog"

	"github.com/sha1n/plenumbot/internal/plenum"
)

const masked = "****"

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: meeting.weekday", "value", s.Meeting.Weekday, "day", plenum.Weekday(s.Meeting.Weekday).String())
	logger.InfoContext(ctx, "Config: meeting.namespace", "value", s.Meeting.Namespace)
	logger.InfoContext(ctx, "Config: meeting.index_page", "value", s.Meeting.IndexPage)
	if s.Meeting.RedirectPage != "" {
		logger.InfoContext(ctx, "Config: meeting.redirect_page", "value", s.Meeting.RedirectPage)
	}
	logger.InfoContext(ctx, "Config: templates", "plenum", s.Templates.Plenum, "blank", s.Templates.Blank)

	logger.InfoContext(ctx, "Config: store.type", "value", s.Store.Type)
	switch s.Store.Type {
	case StoreTypeDokuWiki:
		logger.InfoContext(ctx, "Config: store.dokuwiki.url", "value", s.Store.DokuWiki.URL)
		if s.Store.DokuWiki.Username != "" {
			logger.InfoContext(ctx, "Config: store.dokuwiki.username", "value", s.Store.DokuWiki.Username)
			logger.InfoContext(ctx, "Config: store.dokuwiki.password", "value", masked)
		}
		if s.Store.DokuWiki.Token != "" {
			logger.InfoContext(ctx, "Config: store.dokuwiki.token", "value", masked)
		}
	case StoreTypeFilesystem:
		logger.InfoContext(ctx, "Config: store.filesystem.dir", "value", s.Store.Filesystem.Dir, "git_commit", s.Store.Filesystem.GitCommit)
	case StoreTypeSQLite:
		logger.InfoContext(ctx, "Config: store.sqlite.path", "value", s.Store.SQLite.Path)
	}

	logger.InfoContext(ctx, "Config: state_dir", "value", s.StateDir)
	logger.InfoContext(ctx, "Config: archive.enabled", "value", s.Archive.Enabled)
}

// LogServe logs the settings that only matter to the MCP server
func LogServe(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", masked)
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}
}

// StoreSettingsLogValue returns a slog.Value for StoreSettings with masked credentials
func StoreSettingsLogValue(s StoreSettings) slog.Value {
	password := ""
	if s.DokuWiki.Password != "" {
		password = masked
	}
	token := ""
	if s.DokuWiki.Token != "" {
		token = masked
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.String("url", s.DokuWiki.URL),
		slog.String("username", s.DokuWiki.Username),
		slog.String("password", password),
		slog.String("token", token),
		slog.String("dir", s.Filesystem.Dir),
		slog.String("sqlite", s.SQLite.Path),
	)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = masked
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.String("username", s.Basic.Username),
		slog.String("password", masked),
		slog.Any("api_keys", keys),
	)
}
