package isolation

import (
	"strings"
	"testing"

	"github.com/daresTheDevil/zeroshot/internal/git"
	"github.com/daresTheDevil/zeroshot/internal/zserrors"
)

// fakeGitRunner implements git.Runner with just enough behavior to exercise
// WorktreeManager without touching a real repository.
type fakeGitRunner struct {
	insideRepo       bool
	currentBranch    string
	addNewBranchAtFn func(path, branch, baseRef string) error
	removed          []string
	pruned           int
}

func (f *fakeGitRunner) IsInsideGitRepo() bool          { return f.insideRepo }
func (f *fakeGitRunner) CurrentBranch() (string, error) { return f.currentBranch, nil }
func (f *fakeGitRunner) WorktreeAddNewBranchAt(path, branch, baseRef string) error {
	if f.addNewBranchAtFn != nil {
		return f.addNewBranchAtFn(path, branch, baseRef)
	}
	return nil
}
func (f *fakeGitRunner) WorktreeRemove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}
func (f *fakeGitRunner) WorktreeUnlock(path string) error       { return nil }
func (f *fakeGitRunner) WorktreeListPorcelain() (string, error) { return "", nil }
func (f *fakeGitRunner) WorktreePruneExpireNow() error          { f.pruned++; return nil }

var _ git.Runner = (*fakeGitRunner)(nil)

func newTestManager(t *testing.T, runner *fakeGitRunner) *WorktreeManager {
	t.Helper()
	m, err := NewWorktreeManagerWithFactory(t.TempDir(), func(string) git.Runner { return runner })
	if err != nil {
		t.Fatalf("NewWorktreeManagerWithFactory() error = %v", err)
	}
	return m
}

func TestWorktreeCreateUsesClusterScopedBranchAndPath(t *testing.T) {
	runner := &fakeGitRunner{insideRepo: true, currentBranch: "main"}
	m := newTestManager(t, runner)

	info, err := m.Create("c1", "/repo")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if info.Branch != "zeroshot/c1" {
		t.Errorf("Branch = %q, want %q", info.Branch, "zeroshot/c1")
	}
	if !strings.HasSuffix(info.Path, "/c1") {
		t.Errorf("Path = %q, want suffix %q", info.Path, "/c1")
	}
	if !strings.Contains(info.Path, "c1") {
		t.Errorf("Path = %q, want to contain cluster id", info.Path)
	}
}

func TestWorktreeCreateRejectsNonGitRepo(t *testing.T) {
	runner := &fakeGitRunner{insideRepo: false}
	m := newTestManager(t, runner)

	_, err := m.Create("c1", "/not-a-repo")
	if err != zserrors.ErrNotAGitRepo {
		t.Fatalf("Create() error = %v, want %v", err, zserrors.ErrNotAGitRepo)
	}
}

func TestWorktreeCreateRetriesOnceAfterPrune(t *testing.T) {
	runner := &fakeGitRunner{insideRepo: true, currentBranch: "main"}
	calls := 0
	runner.addNewBranchAtFn = func(path, branch, baseRef string) error {
		calls++
		if calls == 1 {
			return errWorktreeLocked
		}
		return nil
	}
	m := newTestManager(t, runner)

	if _, err := m.Create("c1", "/repo"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("addNewBranchAt called %d times, want 2", calls)
	}
	if runner.pruned == 0 {
		t.Errorf("expected WorktreePruneExpireNow to be called before retry")
	}
}

func TestWorktreeCleanupIsIdempotent(t *testing.T) {
	runner := &fakeGitRunner{insideRepo: true, currentBranch: "main"}
	m := newTestManager(t, runner)

	if err := m.Cleanup("never-created"); err != nil {
		t.Fatalf("Cleanup() on unknown id error = %v", err)
	}

	if _, err := m.Create("c1", "/repo"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Cleanup("c1"); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if err := m.Cleanup("c1"); err != nil {
		t.Fatalf("second Cleanup() error = %v", err)
	}
	if len(runner.removed) != 1 {
		t.Errorf("WorktreeRemove called %d times, want 1", len(runner.removed))
	}

	if _, ok := m.Get("c1"); ok {
		t.Errorf("Get(c1) after cleanup should report not found")
	}
}

func TestParseWorktreePaths(t *testing.T) {
	output := `worktree /home/user/project
branch refs/heads/main

worktree /tmp/zeroshot-worktrees/c1
branch refs/heads/zeroshot/c1
`
	paths := parseWorktreePaths(output)
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}
	if !paths["/tmp/zeroshot-worktrees/c1"] {
		t.Errorf("expected /tmp/zeroshot-worktrees/c1 to be tracked")
	}
}

var errWorktreeLocked = &worktreeErr{"worktree locked"}

type worktreeErr struct{ msg string }

func (e *worktreeErr) Error() string { return e.msg }
