package wiki

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemStore keeps pages in a DokuWiki style pages directory,
// one text file per page.
type FilesystemStore struct {
	dir string
	git *GitClient
}

// NewFilesystemStore creates a store rooted at dir. When git is non-nil every
// write is committed to the repository containing dir.
func NewFilesystemStore(dir string, git *GitClient) (*FilesystemStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("pages directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create pages directory: %w", err)
	}
	return &FilesystemStore{dir: dir, git: git}, nil
}

// Dir returns the pages directory.
func (s *FilesystemStore) Dir() string {
	return s.dir
}

func (s *FilesystemStore) path(id string) (string, string, error) {
	rel, err := IDToPath(id)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.dir, rel), rel, nil
}

// Get returns the page text, or "" if the page file does not exist.
func (s *FilesystemStore) Get(_ context.Context, id string) (string, error) {
	full, _, err := s.path(id)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read page %s: %w", id, err)
	}
	return string(data), nil
}

// Set writes the page atomically and commits it when git is enabled.
func (s *FilesystemStore) Set(ctx context.Context, id, text, summary string) error {
	full, rel, err := s.path(id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create namespace directory: %w", err)
	}

	tempPath := full + ".tmp"
	if err := os.WriteFile(tempPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write page %s: %w", id, err)
	}
	if err := os.Rename(tempPath, full); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename page %s: %w", id, err)
	}

	if s.git != nil {
		if err := s.git.CommitFile(ctx, s.dir, rel, summary); err != nil {
			return fmt.Errorf("failed to commit page %s: %w", id, err)
		}
		slog.Debug("Committed page", "page", id)
	}
	return nil
}

// Exists reports whether the page file exists.
func (s *FilesystemStore) Exists(_ context.Context, id string) (bool, error) {
	full, _, err := s.path(id)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat page %s: %w", id, err)
	}
	return !info.IsDir(), nil
}

// List walks the namespace directory recursively.
func (s *FilesystemStore) List(_ context.Context, namespace string) ([]string, error) {
	root := s.dir
	if namespace != "" {
		ns, err := CleanID(namespace)
		if err != nil {
			return nil, err
		}
		root = filepath.Join(s.dir, filepath.Join(strings.Split(ns, ":")...))
	}

	var ids []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, PageExtension) {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return nil
		}
		ids = append(ids, PathToID(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %q: %w", namespace, err)
	}

	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (s *FilesystemStore) Close() error {
	return nil
}
