package wiki

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PageExtension is the file extension of pages in a DokuWiki data directory.
const PageExtension = ".txt"

// CleanID normalizes a page id and validates its characters.
// Ids are lower-cased, spaces become underscores and leading or trailing colons
// are dropped. Every segment must be non-empty and consist of [a-z0-9_.-].
func CleanID(id string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(id))
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	cleaned = strings.Trim(cleaned, ":")
	if cleaned == "" {
		return "", fmt.Errorf("page id cannot be empty")
	}

	for _, segment := range strings.Split(cleaned, ":") {
		if segment == "" {
			return "", fmt.Errorf("invalid page id %q: empty namespace segment", id)
		}
		if segment == "." || segment == ".." {
			return "", fmt.Errorf("invalid page id %q: path traversal is not allowed", id)
		}
		for _, r := range segment {
			if !isIDRune(r) {
				return "", fmt.Errorf("invalid page id %q: unsupported character %q", id, r)
			}
		}
	}
	return cleaned, nil
}

func isIDRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}

// IDToPath converts a page id to a file path relative to the pages directory.
// Example: "plenum:2024-06-17" -> "plenum/2024-06-17.txt"
func IDToPath(id string) (string, error) {
	cleaned, err := CleanID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(strings.Split(cleaned, ":")...) + PageExtension, nil
}

// PathToID converts a path relative to the pages directory back to a page id.
func PathToID(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), PageExtension)
	return strings.ReplaceAll(rel, "/", ":")
}

// Namespace returns the namespace part of a page id, or "" for top-level pages.
func Namespace(id string) string {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[:i]
	}
	return ""
}
