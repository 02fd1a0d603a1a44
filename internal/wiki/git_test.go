package wiki

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGitClient_IsGitRepository(t *testing.T) {
	git := NewFakeGit().
		Expect("rev-parse", "true\n", nil).
		Expect("rev-parse", "", errors.New("not a git repository"))
	client := NewGitClientWithExecutor(git)

	if !client.IsGitRepository(context.Background(), "/pages") {
		t.Error("Expected directory to be a git repository")
	}
	if client.IsGitRepository(context.Background(), "/tmp") {
		t.Error("Expected directory not to be a git repository")
	}
	git.AssertDone(t)
}

func TestGitClient_CommitFile(t *testing.T) {
	git := NewFakeGit(ChangedPageSteps("plenum/2024-06-17.txt")...)
	client := NewGitClientWithExecutor(git)

	err := client.CommitFile(context.Background(), "/pages", "plenum/2024-06-17.txt", "modified by plenumbot")
	if err != nil {
		t.Fatalf("CommitFile failed: %v", err)
	}
	git.AssertDone(t)

	calls := git.Calls()
	if got := strings.Join(calls[1].Args, " "); got != "add -- plenum/2024-06-17.txt" {
		t.Errorf("Unexpected add args: %q", got)
	}
	commits := git.Commits()
	want := GitCommit{Dir: "/pages", Message: "modified by plenumbot", Path: "plenum/2024-06-17.txt"}
	if len(commits) != 1 || commits[0] != want {
		t.Errorf("Commits = %+v, want [%+v]", commits, want)
	}
}

func TestGitClient_CommitFile_Unchanged(t *testing.T) {
	git := NewFakeGit().Expect("status", "", nil)
	client := NewGitClientWithExecutor(git)

	if err := client.CommitFile(context.Background(), "/pages", "start.txt", "msg"); err != nil {
		t.Fatalf("CommitFile failed: %v", err)
	}
	git.AssertDone(t)
	if len(git.Commits()) != 0 {
		t.Errorf("Expected no commit for an unchanged page, got %+v", git.Commits())
	}
}

func TestGitClient_CommitFile_Errors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		steps     []GitStep
		errSubstr string
	}{
		{"status fails", []GitStep{{Subcommand: "status", Err: boom}}, "git status failed"},
		{"add fails", []GitStep{
			{Subcommand: "status", Output: []byte(" M start.txt")},
			{Subcommand: "add", Err: boom},
		}, "git add failed"},
		{"commit fails", []GitStep{
			{Subcommand: "status", Output: []byte(" M start.txt")},
			{Subcommand: "add"},
			{Subcommand: "commit", Err: boom},
		}, "git commit failed"},
		{"commit before add", []GitStep{
			{Subcommand: "status", Output: []byte(" M start.txt")},
			{Subcommand: "commit"},
		}, "unexpected git add"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			git := NewFakeGit(tt.steps...)
			err := NewGitClientWithExecutor(git).CommitFile(context.Background(), "/pages", "start.txt", "msg")
			if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("Expected error containing %q, got %v", tt.errSubstr, err)
			}
		})
	}
}

func TestFakeGit_RejectsOtherCommands(t *testing.T) {
	git := NewFakeGit(GitStep{Subcommand: "status"})
	if _, err := git.Run(context.Background(), "/pages", "hg", "status"); err == nil {
		t.Error("Expected non-git command to fail")
	}
	if _, err := git.Run(context.Background(), "/pages", "git", "status"); err != nil {
		t.Errorf("Expected scripted step to run, got %v", err)
	}
	if _, err := git.Run(context.Background(), "/pages", "git", "push"); err == nil {
		t.Error("Expected call beyond the script to fail")
	}
}

func TestDefaultExecutor_Run(t *testing.T) {
	out, err := (&DefaultExecutor{}).Run(context.Background(), t.TempDir(), "echo", "hello")
	if err != nil {
		t.Skipf("echo not available: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("Unexpected output %q", out)
	}
}
