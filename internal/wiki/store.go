package wiki

import (
	"context"
	"fmt"
)

// DefaultSummary is the edit summary used when none is configured.
const DefaultSummary = "modified by plenumbot"

// Store reads and writes wiki pages addressed by page id.
type Store interface {
	// Get returns the text of a page. A page that does not exist has empty text.
	Get(ctx context.Context, id string) (string, error)
	// Set replaces the text of a page, recording summary as the edit summary.
	Set(ctx context.Context, id, text, summary string) error
	// Exists reports whether a page exists.
	Exists(ctx context.Context, id string) (bool, error)
	// List returns the ids of all pages below namespace, sorted.
	List(ctx context.Context, namespace string) ([]string, error)
	// Close releases resources held by the store.
	Close() error
}

// RedirectText returns the page text that redirects readers to dest.
func RedirectText(dest string) string {
	return "~~GOTO>" + dest + "~~"
}

// SetRedirect points the page src at dest.
func SetRedirect(ctx context.Context, s Store, src, dest string) error {
	if err := s.Set(ctx, src, RedirectText(dest), "redirect target set to "+dest); err != nil {
		return fmt.Errorf("failed to set redirect %s -> %s: %w", src, dest, err)
	}
	return nil
}
