// Package explorer launches files with their default application and
// reveals them in the platform file manager.
package explorer

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/crosseverything/crosseverything/internal/errors"
)

// Open launches path with its default application.
func Open(path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	return launch(openCommand(path))
}

// Reveal shows path in the platform file manager.
func Reveal(path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	return launch(revealCommand(path))
}

// checkPath validates the target before handing it to a platform tool,
// so missing files get a typed error instead of tool-specific output.
func checkPath(path string) error {
	if path == "" {
		return errors.New(errors.ErrCodeInvalidPath, "path is empty", nil)
	}
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		if os.IsPermission(err) {
			return errors.New(errors.ErrCodeInvalidPath,
				fmt.Sprintf("permission denied: %s", path), err)
		}
		return errors.Wrap(errors.ErrCodeInternal, err)
	}
	return nil
}

// launch starts the platform command without waiting for it; the opened
// application outlives the caller.
func launch(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return errors.New(errors.ErrCodeInternal,
			fmt.Sprintf("failed to launch %s", cmd.Path), err)
	}
	// Reap the child; its exit status is irrelevant.
	go func() { _ = cmd.Wait() }()
	return nil
}
