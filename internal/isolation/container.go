package isolation

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	execpkg "github.com/daresTheDevil/zeroshot/internal/exec"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// installRetryAttempts and the base backoff are fixed by spec.md §4.1: up to
// 3 attempts total, sleeps 2s then 4s, no delay after the last attempt.
const (
	installRetryAttempts = 3
	installBaseBackoff   = 2 * time.Second
)

// manifestFiles are checked, in order, to decide whether workDir needs a
// package install step and which ecosystem command to run.
var manifestFiles = []struct {
	file string
	cmd  []string
}{
	{"package.json", []string{"npm", "install"}},
	{"go.mod", []string{"go", "mod", "download"}},
	{"requirements.txt", []string{"pip", "install", "-r", "requirements.txt"}},
	{"Cargo.toml", []string{"cargo", "fetch"}},
}

// ContainerInfo is the caller-facing result of createContainer.
type ContainerInfo struct {
	ContainerID string
	Image       string
	WorkDir     string
}

// ContainerProvider manages per-cluster containers.
type ContainerProvider interface {
	// Create launches a long-running container bind-mounting workDir, and
	// runs the ecosystem install command if a manifest is present.
	Create(ctx context.Context, clusterID, workDir, image string) (*ContainerInfo, error)
	// Cleanup stops and removes the container. Idempotent.
	Cleanup(ctx context.Context, clusterID string) error
	// Get returns the previously created container for clusterID, if any.
	Get(clusterID string) (*ContainerInfo, bool)
}

// Verify ContainerManager implements ContainerProvider at compile time.
var _ ContainerProvider = (*ContainerManager)(nil)

// ContainerManager drives the container CLI binary it was constructed with
// (docker or podman; there is no automatic fallback from one to the other)
// through internal/exec.CommandRunner. There is no teacher analogue for
// container lifecycle; this is grounded on the teacher's CommandRunner
// abstraction and shaped to spec.md §4.1's install-retry contract.
type ContainerManager struct {
	runner execpkg.CommandRunner
	binary string // "docker" or "podman"

	mu     sync.Mutex
	active map[string]*ContainerInfo

	sleep func(time.Duration) // test seam
}

// NewContainerManager creates a ContainerManager using the given binary
// ("docker" or "podman") and command runner.
func NewContainerManager(runner execpkg.CommandRunner, binary string) *ContainerManager {
	return &ContainerManager{
		runner: runner,
		binary: binary,
		active: make(map[string]*ContainerInfo),
		sleep:  time.Sleep,
	}
}

// Create launches a container for clusterID bind-mounting workDir at
// /workspace, then runs the ecosystem install command if workDir contains a
// recognized manifest file, retrying with bounded exponential backoff.
// Install failure after all retries is logged and non-fatal: the container
// is still returned.
func (c *ContainerManager) Create(ctx context.Context, clusterID, workDir, image string) (*ContainerInfo, error) {
	containerName := fmt.Sprintf("zeroshot-%s-%s", clusterID, uuid.NewString()[:8])

	args := []string{"run", "-d", "--name", containerName,
		"-v", workDir + ":/workspace", "-w", "/workspace", image, "sleep", "infinity"}
	out, err := c.runner.Run(ctx, "", c.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("launch container: %w: %s", err, string(out))
	}

	info := &ContainerInfo{
		ContainerID: containerName,
		Image:       image,
		WorkDir:     workDir,
	}

	c.mu.Lock()
	c.active[clusterID] = info
	c.mu.Unlock()

	installCmd, ok := c.detectManifest(ctx, workDir)
	if ok {
		c.runInstallWithRetry(ctx, containerName, installCmd)
	}

	return info, nil
}

// detectManifest returns the install command for the first recognized
// manifest file found in workDir.
func (c *ContainerManager) detectManifest(ctx context.Context, workDir string) ([]string, bool) {
	for _, m := range manifestFiles {
		if _, err := os.Stat(filepath.Join(workDir, m.file)); err == nil {
			return m.cmd, true
		}
	}
	return nil, false
}

// runInstallWithRetry runs installCmd inside containerName, retrying up to
// installRetryAttempts times with exponential backoff (2s, 4s). A non-zero
// exit or an exec error both count as a failed attempt. Exhausting retries
// is logged as a warning; it is never returned to the caller.
func (c *ContainerManager) runInstallWithRetry(ctx context.Context, containerName string, installCmd []string) {
	execArgs := append([]string{"exec", containerName}, installCmd...)

	var lastErr error
	for attempt := 0; attempt < installRetryAttempts; attempt++ {
		out, err := c.runner.Run(ctx, "", c.binary, execArgs...)
		if err == nil {
			return
		}
		lastErr = fmt.Errorf("%v: %s", err, string(out))
		if attempt < installRetryAttempts-1 {
			c.sleep(installBaseBackoff * time.Duration(1<<attempt))
		}
	}
	log.Printf("warning: %s install failed in container %s after %d attempts: %v",
		strings.Join(installCmd, " "), containerName, installRetryAttempts, lastErr)
}

// Cleanup stops and removes the container for clusterID. Idempotent.
func (c *ContainerManager) Cleanup(ctx context.Context, clusterID string) error {
	c.mu.Lock()
	info, ok := c.active[clusterID]
	if ok {
		delete(c.active, clusterID)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	_, _ = c.runner.Run(ctx, "", c.binary, "rm", "-f", info.ContainerID)
	return nil
}

// Get returns the previously created container for clusterID, if any.
func (c *ContainerManager) Get(clusterID string) (*ContainerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.active[clusterID]
	return info, ok
}

// toModel converts a ContainerInfo into the tagged IsolationRecord variant.
func (i *ContainerInfo) toModel() models.IsolationRecord {
	return models.IsolationRecord{
		Kind:        models.IsolationContainer,
		ContainerID: i.ContainerID,
		Image:       i.Image,
		WorkDir:     i.WorkDir,
	}
}
