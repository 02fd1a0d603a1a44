package wiki

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command and returns its standard output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its standard output.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// GitClient records page edits in the git repository holding the pages directory.
type GitClient struct {
	executor CommandExecutor
}

// NewGitClient creates a new GitClient with the default command executor.
func NewGitClient() *GitClient {
	return &GitClient{
		executor: &DefaultExecutor{},
	}
}

// NewGitClientWithExecutor creates a GitClient with a custom executor (for testing).
func NewGitClientWithExecutor(executor CommandExecutor) *GitClient {
	return &GitClient{
		executor: executor,
	}
}

// IsGitRepository checks if the given directory is inside a git work tree.
func (g *GitClient) IsGitRepository(ctx context.Context, dir string) bool {
	_, err := g.executor.Run(ctx, dir, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// HasChanges reports whether path differs from the last commit or is untracked.
func (g *GitClient) HasChanges(ctx context.Context, dir, path string) (bool, error) {
	output, err := g.executor.Run(ctx, dir, "git", "status", "--porcelain", "--", path)
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}
	return strings.TrimSpace(string(output)) != "", nil
}

// CommitFile stages path and commits it with message. Unchanged files are skipped.
func (g *GitClient) CommitFile(ctx context.Context, dir, path, message string) error {
	changed, err := g.HasChanges(ctx, dir, path)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if _, err := g.executor.Run(ctx, dir, "git", "add", "--", path); err != nil {
		return fmt.Errorf("git add failed: %w", err)
	}
	if _, err := g.executor.Run(ctx, dir, "git", "commit", "-m", message, "--", path); err != nil {
		return fmt.Errorf("git commit failed: %w", err)
	}
	return nil
}
