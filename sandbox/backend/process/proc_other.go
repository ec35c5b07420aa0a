//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func killProcessGroup(*exec.Cmd) {}

func exitCode(state *os.ProcessState) int {
	return state.ExitCode()
}
