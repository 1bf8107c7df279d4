//go:build !windows

package console

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// watchResize reports the terminal size on every SIGWINCH until stop is
// called.
func watchResize(fd int, resize chan tea.WindowSizeMsg) (stop func()) {
	sigwinch := make(chan os.Signal, 1)
	signal.Notify(sigwinch, syscall.SIGWINCH)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigwinch:
				sendSize(fd, resize)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigwinch)
		close(done)
	}
}
