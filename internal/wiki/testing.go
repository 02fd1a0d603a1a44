package wiki

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// GitStep is one expected git invocation of a FakeGit.
type GitStep struct {
	// Subcommand is the first git argument, e.g. "status" or "commit".
	Subcommand string
	Output     []byte
	Err        error
}

// GitCall records a git invocation.
type GitCall struct {
	Dir  string
	Args []string
}

// GitCommit is a commit made through a FakeGit.
type GitCommit struct {
	Dir     string
	Message string
	Path    string
}

// FakeGit is a CommandExecutor playing the git side of a filesystem store.
// Steps are consumed strictly in order, so a store running git commands in
// a different sequence fails.
type FakeGit struct {
	mu    sync.Mutex
	steps []GitStep
	calls []GitCall
}

// NewFakeGit creates a fake expecting steps in order.
func NewFakeGit(steps ...GitStep) *FakeGit {
	return &FakeGit{steps: steps}
}

// ChangedPageSteps are the steps of committing a changed page file.
func ChangedPageSteps(path string) []GitStep {
	return []GitStep{
		{Subcommand: "status", Output: []byte("?? " + path + "\n")},
		{Subcommand: "add"},
		{Subcommand: "commit"},
	}
}

// Expect appends a step.
func (f *FakeGit) Expect(subcommand string, output string, err error) *FakeGit {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, GitStep{Subcommand: subcommand, Output: []byte(output), Err: err})
	return f
}

// Run plays the next step.
func (f *FakeGit) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if name != "git" || len(args) == 0 {
		return nil, fmt.Errorf("unexpected command: %s %s", name, strings.Join(args, " "))
	}
	f.calls = append(f.calls, GitCall{Dir: dir, Args: args})

	if len(f.steps) == 0 {
		return nil, fmt.Errorf("unexpected git %s: no step left", args[0])
	}
	step := f.steps[0]
	if step.Subcommand != args[0] {
		return nil, fmt.Errorf("unexpected git %s, want git %s", args[0], step.Subcommand)
	}
	f.steps = f.steps[1:]
	return step.Output, step.Err
}

// Calls returns the recorded invocations.
func (f *FakeGit) Calls() []GitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GitCall(nil), f.calls...)
}

// Commits returns the commits made, in order.
func (f *FakeGit) Commits() []GitCommit {
	var commits []GitCommit
	for _, c := range f.Calls() {
		if c.Args[0] != "commit" {
			continue
		}
		commit := GitCommit{Dir: c.Dir}
		for i := 1; i < len(c.Args); i++ {
			switch c.Args[i] {
			case "-m":
				if i+1 < len(c.Args) {
					commit.Message = c.Args[i+1]
					i++
				}
			case "--":
				commit.Path = strings.Join(c.Args[i+1:], " ")
				i = len(c.Args)
			}
		}
		commits = append(commits, commit)
	}
	return commits
}

// AssertDone fails t when expected steps did not run.
func (f *FakeGit) AssertDone(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.steps {
		t.Errorf("Expected git %s to run", s.Subcommand)
	}
}
