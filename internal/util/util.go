//go:build !windows

package util

// IsRunFromGUI is always false off Windows; there rawpad is started from a
// shell or a service manager.
func IsRunFromGUI() bool {
	return false
}

func HideConsoleWindow() {}
