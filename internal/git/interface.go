// Package git provides an interface for git operations.
package git

// Runner is the git surface the Isolation Manager's worktree provisioning
// needs (spec.md §4.1): branch/HEAD inspection plus the worktree lifecycle.
type Runner interface {
	// CurrentBranch returns the name of the current branch.
	CurrentBranch() (string, error)
	// IsInsideGitRepo returns true if the runner's repoPath is inside a git
	// working tree.
	IsInsideGitRepo() bool
	// WorktreeAddNewBranchAt creates a new worktree with a new branch based
	// on an explicit ref, independent of whichever branch is checked out in
	// the main repo.
	WorktreeAddNewBranchAt(path, branch, baseRef string) error
	// WorktreeListPorcelain returns the raw porcelain output for detailed parsing.
	WorktreeListPorcelain() (string, error)
	// WorktreePruneExpireNow prunes worktrees with --expire now.
	WorktreePruneExpireNow() error
	// WorktreeRemove removes the worktree at the given path.
	WorktreeRemove(path string) error
	// WorktreeUnlock unlocks a locked worktree.
	WorktreeUnlock(path string) error
}
