//go:build windows

package resume

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Windows has no exec(2); run the tool as a child and exit with its code.
func execProcess(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	os.Exit(0)
	return nil
}
