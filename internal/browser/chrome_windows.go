//go:build windows

package browser

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op on Windows; there are no Unix process
// groups, Chrome cleans up its own children.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd, force bool) {
	if cmd.Process == nil {
		return
	}
	if force {
		_ = cmd.Process.Kill()
	} else {
		_ = cmd.Process.Signal(os.Interrupt)
	}
}
