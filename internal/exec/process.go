package exec

import (
	"os/exec"
	"syscall"
)

// SetProcessGroup configures cmd to run in its own process group so that
// KillProcessGroup can later signal the whole subprocess tree a provider CLI
// may have spawned, not just the direct child.
func SetProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillProcessGroup sends sig to the process group rooted at pid. Used by the
// Agent Runtime to propagate cancellation (spec.md §4.3: "signaling the
// entire process group") and by timeout/cancel handling.
func KillProcessGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	return syscall.Kill(-pid, sig)
}
