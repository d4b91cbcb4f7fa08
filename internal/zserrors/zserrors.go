// Package zserrors defines the sentinel error kinds from spec.md §7. Callers
// compare with errors.Is; wrapped context is added with fmt.Errorf("...: %w").
package zserrors

import "errors"

var (
	// ErrConfigInvalid is returned when a configuration is rejected before
	// any side effect occurs.
	ErrConfigInvalid = errors.New("config invalid")
	// ErrNotAGitRepo is returned when the Isolation Manager is asked to
	// create a worktree outside a git repository.
	ErrNotAGitRepo = errors.New("not a git repository")
	// ErrIsolationFailed covers git/container provisioning failures other
	// than ErrNotAGitRepo.
	ErrIsolationFailed = errors.New("isolation provisioning failed")
	// ErrProviderUnavailable is returned when a configured provider binary
	// cannot be found at cluster start.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrTransientProviderFailure covers a non-zero exit or parse failure
	// during execute_task; it feeds the agent's retry policy.
	ErrTransientProviderFailure = errors.New("transient provider failure")
	// ErrRateLimited is the direct-API analogue of a retryable failure.
	ErrRateLimited = errors.New("rate limited")
	// ErrAgentTimeout is returned when a provider invocation exceeds its
	// configured timeout.
	ErrAgentTimeout = errors.New("agent timeout")
	// ErrNonFatalInstallFailure is logged, never returned to a caller: a
	// container's package-manifest install exhausted its retries but the
	// container is still usable.
	ErrNonFatalInstallFailure = errors.New("non-fatal install failure")
	// ErrCancelled is returned when an in-flight invocation is interrupted
	// by a caller-initiated stop/kill. No onError hook fires for this kind.
	ErrCancelled = errors.New("cancelled")
	// ErrClusterNotFound is returned by Supervisor lookups for unknown
	// cluster ids.
	ErrClusterNotFound = errors.New("cluster not found")
	// ErrValidation covers the direct-API JSON-extraction ladder's terminal
	// failure (spec.md §4.3): strict parse, fenced block, and balanced
	// object all failed.
	ErrValidation = errors.New("response failed json validation")
)
