// Package tty reports whether a stream is attached to an interactive
// terminal, and reports its width when it is. Every prompt, spinner and
// colorized render in pkg/console checks this before deciding whether to
// animate or fall back to plain line-oriented output.
package tty

import (
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// IsStdoutTerminal reports whether stdout is attached to a terminal.
func IsStdoutTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// IsStderrTerminal reports whether stderr is attached to a terminal.
func IsStderrTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// IsStdinTerminal reports whether stdin is attached to a terminal. Commands
// that prompt interactively (trust confirmation, tie-break dispatch) use
// this to decide whether to fall back to a non-interactive default.
func IsStdinTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

// Width returns the terminal column width of stderr, falling back to the
// $COLUMNS environment variable and then to 80 when neither is available.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 0 {
			return n
		}
	}
	return 80
}
