package isolation

import (
	"context"
	"testing"

	"github.com/daresTheDevil/zeroshot/pkg/models"
)

type stubWorktrees struct {
	created map[string]*WorktreeInfo
	calls   int
}

func (s *stubWorktrees) Create(clusterID, repoRoot string) (*WorktreeInfo, error) {
	s.calls++
	info := &WorktreeInfo{Path: "/tmp/zeroshot-worktrees/" + clusterID, Branch: "zeroshot/" + clusterID, RepoRoot: repoRoot}
	if s.created == nil {
		s.created = make(map[string]*WorktreeInfo)
	}
	s.created[clusterID] = info
	return info, nil
}
func (s *stubWorktrees) Cleanup(clusterID string) error {
	delete(s.created, clusterID)
	return nil
}
func (s *stubWorktrees) Get(clusterID string) (*WorktreeInfo, bool) {
	info, ok := s.created[clusterID]
	return info, ok
}

type stubContainers struct {
	created map[string]*ContainerInfo
}

func (s *stubContainers) Create(ctx context.Context, clusterID, workDir, image string) (*ContainerInfo, error) {
	info := &ContainerInfo{ContainerID: "cid-" + clusterID, Image: image, WorkDir: workDir}
	if s.created == nil {
		s.created = make(map[string]*ContainerInfo)
	}
	s.created[clusterID] = info
	return info, nil
}
func (s *stubContainers) Cleanup(ctx context.Context, clusterID string) error {
	delete(s.created, clusterID)
	return nil
}
func (s *stubContainers) Get(clusterID string) (*ContainerInfo, bool) {
	info, ok := s.created[clusterID]
	return info, ok
}

func TestManagerProvisionWorktree(t *testing.T) {
	wt := &stubWorktrees{}
	mgr := NewManagerWithProviders(wt, &stubContainers{})

	rec, err := mgr.Provision(context.Background(), "c1", Options{Worktree: true, RepoRoot: "/repo"})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if rec.Kind != models.IsolationWorktree {
		t.Errorf("Kind = %v, want %v", rec.Kind, models.IsolationWorktree)
	}
	if rec.Branch != "zeroshot/c1" {
		t.Errorf("Branch = %q, want %q", rec.Branch, "zeroshot/c1")
	}
}

func TestManagerProvisionContainer(t *testing.T) {
	cont := &stubContainers{}
	mgr := NewManagerWithProviders(&stubWorktrees{}, cont)

	rec, err := mgr.Provision(context.Background(), "c1", Options{Docker: true, WorkDir: "/work"})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if rec.Kind != models.IsolationContainer {
		t.Errorf("Kind = %v, want %v", rec.Kind, models.IsolationContainer)
	}
	if rec.Image != "ubuntu:24.04" {
		t.Errorf("Image = %q, want default ubuntu:24.04", rec.Image)
	}
}

func TestManagerProvisionRejectsAmbiguousOptions(t *testing.T) {
	mgr := NewManagerWithProviders(&stubWorktrees{}, &stubContainers{})

	if _, err := mgr.Provision(context.Background(), "c1", Options{Worktree: true, Docker: true}); err == nil {
		t.Errorf("Provision() with both modes set should error")
	}
}

func TestManagerCleanupDispatchesByActiveKind(t *testing.T) {
	wt := &stubWorktrees{}
	mgr := NewManagerWithProviders(wt, &stubContainers{})

	if _, err := mgr.Provision(context.Background(), "c1", Options{Worktree: true, RepoRoot: "/repo"}); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if err := mgr.Cleanup(context.Background(), "c1"); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, ok := mgr.GetWorktreeInfo("c1"); ok {
		t.Errorf("worktree should be gone after Cleanup")
	}
}

func TestManagerRecordDefaultsToNone(t *testing.T) {
	mgr := NewManagerWithProviders(&stubWorktrees{}, &stubContainers{})
	rec := mgr.Record("unknown")
	if rec.Kind != models.IsolationNone {
		t.Errorf("Kind = %v, want %v", rec.Kind, models.IsolationNone)
	}
}
