package export

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenDir reveals dir in the desktop file manager of the host.
func OpenDir(dir string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", dir)
	case "darwin":
		cmd = exec.Command("open", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open directory: %w", err)
	}
	go cmd.Wait()
	return nil
}
