// Package isolation implements the Isolation Manager: per-cluster filesystem
// sandboxes, either a git worktree or a container (spec.md §4.1).
package isolation

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/daresTheDevil/zeroshot/internal/git"
	"github.com/daresTheDevil/zeroshot/internal/zserrors"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// branchPrefix and the worktree root segment are fixed by spec.md §6.
const (
	branchPrefix   = "zeroshot/"
	worktreeSubdir = "zeroshot-worktrees"
)

// WorktreeInfo is the caller-facing result of createWorktree.
type WorktreeInfo struct {
	Path      string
	Branch    string
	RepoRoot  string
	CreatedAt time.Time
}

// WorktreeProvider manages per-cluster git worktrees. A single instance is
// shared by every cluster started against the same repository.
type WorktreeProvider interface {
	// Create provisions a worktree for clusterID rooted at repoRoot.
	Create(clusterID, repoRoot string) (*WorktreeInfo, error)
	// Cleanup removes the worktree directory and its git registration. The
	// branch is preserved. Idempotent.
	Cleanup(clusterID string) error
	// Get returns the previously created worktree for clusterID, if any.
	Get(clusterID string) (*WorktreeInfo, bool)
}

// Verify WorktreeManager implements WorktreeProvider at compile time.
var _ WorktreeProvider = (*WorktreeManager)(nil)

// WorktreeManager handles git worktree operations for cluster isolation.
// It is grounded on the teacher's per-agent WorktreeManager, generalized from
// one worktree per agent to one worktree per cluster.
type WorktreeManager struct {
	baseDir string // root under the OS temp dir, e.g. <tmp>/zeroshot-worktrees
	mu      sync.Mutex
	active  map[string]*WorktreeInfo // clusterID -> info
	runners map[string]git.Runner    // repoRoot -> runner, reused across clusters
	newRunner func(repoRoot string) git.Runner
}

// NewWorktreeManager creates a WorktreeManager rooted at the OS temp
// directory's zeroshot-worktrees segment.
func NewWorktreeManager() (*WorktreeManager, error) {
	baseDir := filepath.Join(os.TempDir(), worktreeSubdir)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create worktree base directory: %w", err)
	}
	return &WorktreeManager{
		baseDir: baseDir,
		active:  make(map[string]*WorktreeInfo),
		runners: make(map[string]git.Runner),
		newRunner: func(repoRoot string) git.Runner {
			return git.NewRunner(repoRoot)
		},
	}, nil
}

// NewWorktreeManagerWithFactory is the test seam: newRunner replaces the
// default git.NewRunner so tests can inject a fake git.Runner.
func NewWorktreeManagerWithFactory(baseDir string, newRunner func(repoRoot string) git.Runner) (*WorktreeManager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), worktreeSubdir)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create worktree base directory: %w", err)
	}
	return &WorktreeManager{
		baseDir:   baseDir,
		active:    make(map[string]*WorktreeInfo),
		runners:   make(map[string]git.Runner),
		newRunner: newRunner,
	}, nil
}

func (m *WorktreeManager) runnerFor(repoRoot string) git.Runner {
	if r, ok := m.runners[repoRoot]; ok {
		return r
	}
	r := m.newRunner(repoRoot)
	m.runners[repoRoot] = r
	return r
}

// Create provisions a fresh worktree for clusterID at
// <tmp>/zeroshot-worktrees/<clusterID> on a new branch zeroshot/<clusterID>
// based on the current HEAD of repoRoot. If the path already exists from an
// orphaned prior run it is removed and pruned first.
func (m *WorktreeManager) Create(clusterID, repoRoot string) (*WorktreeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runner := m.runnerFor(repoRoot)
	if !runner.IsInsideGitRepo() {
		return nil, zserrors.ErrNotAGitRepo
	}

	path := filepath.Join(m.baseDir, clusterID)
	branch := branchPrefix + clusterID

	if _, err := os.Stat(path); err == nil {
		_ = runner.WorktreeUnlock(path)
		_ = runner.WorktreeRemove(path)
		_ = os.RemoveAll(path)
		_ = runner.WorktreePruneExpireNow()
	}

	head, err := runner.CurrentBranch()
	if err != nil {
		head = "HEAD"
	}

	if err := runner.WorktreeAddNewBranchAt(path, branch, head); err != nil {
		// Retry once with an explicit prune, per spec.md §4.1 GitFailure handling.
		if pruneErr := runner.WorktreePruneExpireNow(); pruneErr == nil {
			err = runner.WorktreeAddNewBranchAt(path, branch, head)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", zserrors.ErrIsolationFailed, err)
		}
	}

	info := &WorktreeInfo{
		Path:      path,
		Branch:    branch,
		RepoRoot:  repoRoot,
		CreatedAt: time.Now(),
	}
	m.active[clusterID] = info
	return info, nil
}

// Cleanup removes the worktree directory and its git registration for
// clusterID. The branch in the source repository is preserved. Unknown
// cluster ids and double cleanup are both no-ops.
func (m *WorktreeManager) Cleanup(clusterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.active[clusterID]
	if !ok {
		return nil
	}

	runner := m.runnerFor(info.RepoRoot)
	_ = runner.WorktreeUnlock(info.Path)
	if err := runner.WorktreeRemove(info.Path); err != nil {
		_ = os.RemoveAll(info.Path)
	}
	_ = runner.WorktreePruneExpireNow()

	delete(m.active, clusterID)
	return nil
}

// Get returns the previously created worktree for clusterID, if any.
func (m *WorktreeManager) Get(clusterID string) (*WorktreeInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.active[clusterID]
	return info, ok
}

// toModel converts a WorktreeInfo into the tagged IsolationRecord variant.
func (i *WorktreeInfo) toModel() models.IsolationRecord {
	return models.IsolationRecord{
		Kind:         models.IsolationWorktree,
		WorktreePath: i.Path,
		Branch:       i.Branch,
		RepoRoot:     i.RepoRoot,
	}
}

// parseWorktreePaths extracts the set of paths git currently tracks as
// worktrees, used by orphan recovery at startup.
func parseWorktreePaths(porcelain string) map[string]bool {
	paths := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(porcelain))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "worktree ") {
			paths[strings.TrimPrefix(line, "worktree ")] = true
		}
	}
	return paths
}

// RecoverOrphaned removes worktree directories under baseDir left behind by
// a crashed previous run that are not tracked by git and not in
// activeClusterIDs. Intended to run once at orchestrator startup.
func (m *WorktreeManager) RecoverOrphaned(repoRoot string, activeClusterIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runner := m.runnerFor(repoRoot)
	_ = runner.WorktreePruneExpireNow()

	porcelain, err := runner.WorktreeListPorcelain()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	known := parseWorktreePaths(porcelain)

	active := make(map[string]bool, len(activeClusterIDs))
	for _, id := range activeClusterIDs {
		active[id] = true
	}

	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read worktree base directory: %w", err)
	}

	var recovered []string
	for _, entry := range entries {
		if !entry.IsDir() || active[entry.Name()] {
			continue
		}
		path := filepath.Join(m.baseDir, entry.Name())
		if known[path] {
			_ = runner.WorktreeUnlock(path)
			if err := runner.WorktreeRemove(path); err != nil {
				if err := os.RemoveAll(path); err != nil {
					continue
				}
			}
		} else if err := os.RemoveAll(path); err != nil {
			continue
		}
		recovered = append(recovered, path)
	}

	_ = runner.WorktreePruneExpireNow()
	return recovered, nil
}
