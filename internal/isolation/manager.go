package isolation

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	execpkg "github.com/daresTheDevil/zeroshot/internal/exec"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// Options selects and configures an isolation mode for a cluster (spec.md
// §4.4 start options: options.worktree / options.docker).
type Options struct {
	Worktree bool
	Docker   bool
	RepoRoot string // required when Worktree
	WorkDir  string // required when Docker
	Image    string // container image when Docker; empty means ubuntu:24.04
}

// Manager is the Isolation Manager façade: it owns exactly one
// WorktreeProvider and one ContainerProvider and enforces that a cluster
// holds at most one active isolation record at a time.
type Manager struct {
	worktrees  WorktreeProvider
	containers ContainerProvider
	sf         singleflight.Group
}

// NewManager creates a Manager with default (git CLI / docker CLI)
// providers.
func NewManager() (*Manager, error) {
	wt, err := NewWorktreeManager()
	if err != nil {
		return nil, err
	}
	return &Manager{
		worktrees:  wt,
		containers: NewContainerManager(execpkg.NewRunner(), "docker"),
	}, nil
}

// NewManagerWithProviders is the test/injection seam.
func NewManagerWithProviders(wt WorktreeProvider, c ContainerProvider) *Manager {
	return &Manager{worktrees: wt, containers: c}
}

// Provision creates the isolation sandbox for clusterID per opts, dispatching
// to worktree or container provisioning. singleflight collapses concurrent
// calls for the same clusterID into one provisioning attempt, guaranteeing
// the "exactly one active isolation record per cluster" invariant even if
// the Supervisor is ever called re-entrantly for the same id.
func (m *Manager) Provision(ctx context.Context, clusterID string, opts Options) (models.IsolationRecord, error) {
	if opts.Worktree || opts.Docker {
		if err := opts.validate(); err != nil {
			return models.IsolationRecord{}, err
		}
	}
	v, err, _ := m.sf.Do("provision:"+clusterID, func() (interface{}, error) {
		switch {
		case opts.Worktree:
			info, err := m.worktrees.Create(clusterID, opts.RepoRoot)
			if err != nil {
				return models.IsolationRecord{}, err
			}
			return info.toModel(), nil
		case opts.Docker:
			image := opts.Image
			if image == "" {
				image = "ubuntu:24.04"
			}
			info, err := m.containers.Create(ctx, clusterID, opts.WorkDir, image)
			if err != nil {
				return models.IsolationRecord{}, err
			}
			return info.toModel(), nil
		default:
			return models.IsolationRecord{Kind: models.IsolationNone}, nil
		}
	})
	if err != nil {
		return models.IsolationRecord{}, err
	}
	return v.(models.IsolationRecord), nil
}

// CleanupWorktree removes the worktree registration and directory for
// clusterID; the branch is preserved. Idempotent.
func (m *Manager) CleanupWorktree(clusterID string) error {
	return m.worktrees.Cleanup(clusterID)
}

// CleanupContainer stops and removes the container for clusterID. Idempotent.
func (m *Manager) CleanupContainer(ctx context.Context, clusterID string) error {
	return m.containers.Cleanup(ctx, clusterID)
}

// Cleanup tears down whichever isolation kind is active for clusterID,
// determined by the record itself rather than by re-deriving intent.
func (m *Manager) Cleanup(ctx context.Context, clusterID string) error {
	if _, ok := m.worktrees.Get(clusterID); ok {
		return m.CleanupWorktree(clusterID)
	}
	if _, ok := m.containers.Get(clusterID); ok {
		return m.CleanupContainer(ctx, clusterID)
	}
	return nil
}

// GetWorktreeInfo looks up the worktree isolation record for clusterID.
func (m *Manager) GetWorktreeInfo(clusterID string) (*WorktreeInfo, bool) {
	return m.worktrees.Get(clusterID)
}

// HasContainer reports whether clusterID currently has an active container.
func (m *Manager) HasContainer(clusterID string) bool {
	_, ok := m.containers.Get(clusterID)
	return ok
}

// Record returns the current tagged isolation record for clusterID, or the
// None variant if no sandbox is active.
func (m *Manager) Record(clusterID string) models.IsolationRecord {
	if info, ok := m.worktrees.Get(clusterID); ok {
		return info.toModel()
	}
	if info, ok := m.containers.Get(clusterID); ok {
		return info.toModel()
	}
	return models.IsolationRecord{Kind: models.IsolationNone}
}

// validate rejects an Options value that names neither or both modes; the
// Supervisor is expected to pass exactly one.
func (o Options) validate() error {
	if o.Worktree == o.Docker {
		return fmt.Errorf("isolation options must select exactly one of worktree or docker")
	}
	return nil
}
