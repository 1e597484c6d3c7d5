package main

import (
	"os"
	"os/exec"
	"runtime"
)

// runexe.go runs a just-compiled PE executable, grounded on the
// teacher's run.go Wine-vs-native dispatch: on windows, exec the file
// directly; everywhere else, shell out to `wine` (falling back to a
// clear error if Wine isn't installed, rather than silently failing to
// launch a PE binary as if it were native ELF).

// runExecutable runs exePath with args, wiring the child's stdio to
// this process's, and returns its exit code (0 on success).
func runExecutable(exePath string, args []string) (int, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" && !WineMode {
		cmd = exec.Command(exePath, args...)
	} else {
		wine, err := exec.LookPath("wine")
		if err != nil {
			return 0, ioErrorf("wine is not installed; cannot run a Windows PE executable on %s", runtime.GOOS)
		}
		cmd = exec.Command(wine, append([]string{exePath}, args...)...)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, ioErrorf("failed to run %s: %v", exePath, err)
}
