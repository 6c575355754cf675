//go:build !unix && !windows

package selfupdate

import (
	"os/exec"
)

func setDetachedProcAttr(_ *exec.Cmd) {}
