package explorer

import (
	"os/exec"
	"path/filepath"
)

func openCommand(path string) *exec.Cmd {
	return exec.Command("xdg-open", path)
}

// revealCommand falls back to opening the containing directory; Linux
// has no portable select-in-file-manager verb.
func revealCommand(path string) *exec.Cmd {
	return exec.Command("xdg-open", filepath.Dir(path))
}
