package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/plenumbot/internal/bot"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string
	// Bot backs the tools. Without it the server exposes no tools.
	Bot *bot.Bot
	// MaxResults bounds search_protocols results.
	MaxResults int
	// WikiURL is used to link pages in tool output when set.
	WikiURL string
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Bot != nil {
		tools := NewTools(cfg.Bot, cfg.MaxResults, cfg.WikiURL)
		tools.Register(s)
	}

	return s
}
