// Package console runs a single node on the local terminal, for the
// sysop and for development.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/stlalpha/tecnoter/internal/node"
)

// ErrNotTerminal is returned when stdin is not a terminal.
var ErrNotTerminal = errors.New("console: input is not a terminal")

// Runner serves one node connection.
type Runner interface {
	Run(ctx context.Context, c node.Conn) error
}

// rawReader hides the *os.File so the program leaves terminal modes to us.
type rawReader struct{ io.Reader }

// Run puts the input terminal into raw mode and serves one node on in and
// out until the caller logs out or ctx is cancelled. The terminal state is
// restored on return.
func Run(ctx context.Context, r Runner, in, out *os.File, deepLink string) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotTerminal
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	sizeFd := int(out.Fd())
	if !term.IsTerminal(sizeFd) {
		sizeFd = fd
	}
	width, height, err := term.GetSize(sizeFd)
	if err != nil {
		width, height = 80, 24
	}

	resize := make(chan tea.WindowSizeMsg, 1)
	stop := watchResize(sizeFd, resize)
	defer stop()

	termType := os.Getenv("TERM")
	if termType == "" {
		termType = "xterm-256color"
	}

	return r.Run(ctx, node.Conn{
		In:        rawReader{in},
		Out:       out,
		Remote:    "local",
		Transport: "console",
		Term:      termType,
		Width:     width,
		Height:    height,
		DeepLink:  deepLink,
		Resize:    resize,
		Local:     true,
	})
}

func sendSize(fd int, resize chan tea.WindowSizeMsg) {
	w, h, err := term.GetSize(fd)
	if err != nil {
		return
	}
	msg := tea.WindowSizeMsg{Width: w, Height: h}
	select {
	case resize <- msg:
	default:
		select {
		case <-resize:
		default:
		}
		select {
		case resize <- msg:
		default:
		}
	}
}
