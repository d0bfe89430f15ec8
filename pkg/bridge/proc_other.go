//go:build !unix

package bridge

import "os/exec"

// configureProcess keeps the exec default: cancellation kills the child only.
func configureProcess(cmd *exec.Cmd) {}
