//go:build windows

package console

import tea "github.com/charmbracelet/bubbletea"

// watchResize is a no-op on Windows, which has no SIGWINCH.
func watchResize(fd int, resize chan tea.WindowSizeMsg) (stop func()) {
	return func() {}
}
