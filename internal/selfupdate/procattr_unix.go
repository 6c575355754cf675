//go:build unix

package selfupdate

import (
	"os/exec"
	"syscall"
)

// setDetachedProcAttr configures the process to run in a new session,
// so that it keeps running once the updater exits.
func setDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
