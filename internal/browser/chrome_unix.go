//go:build !windows

package browser

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts Chrome in its own process group so renderers and
// the GPU process share a PGID and die together on shutdown.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup signals the whole group. force=false is SIGTERM,
// force=true is SIGKILL.
func killProcessGroup(cmd *exec.Cmd, force bool) {
	if cmd.Process == nil {
		return
	}
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	_ = syscall.Kill(-cmd.Process.Pid, sig)
}
