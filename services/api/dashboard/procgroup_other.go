//go:build !unix

package dashboard

import "os/exec"

// Without process groups only the direct child is killed on cancellation.
func configureProcessGroup(cmd *exec.Cmd) {}
