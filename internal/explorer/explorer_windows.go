package explorer

import (
	"os/exec"
	"path/filepath"
)

func openCommand(path string) *exec.Cmd {
	return exec.Command("cmd", "/c", "start", "", filepath.Clean(path))
}

func revealCommand(path string) *exec.Cmd {
	return exec.Command("explorer.exe", "/select,", filepath.Clean(path))
}
