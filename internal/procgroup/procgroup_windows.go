//go:build windows

package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no POSIX process groups; grandchildren may outlive Terminate.

func configureGroup(cmd *exec.Cmd) {}

func groupID(pid int) (int, error) {
	return pid, nil
}

func interruptGroup(cmd *exec.Cmd) error {
	return killGroup(cmd)
}

func killGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
