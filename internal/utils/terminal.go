package utils

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal returns true if f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// IsInteractive returns true if both stdin and stderr are terminals, which is
// what op signin needs to prompt for the master password.
func IsInteractive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stderr)
}
