package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...any) string {
	return f.decorate(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...any) string {
	return f.decorate(fmt.Sprintf(format, a...))
}

func (f Formatter) decorate(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands, e.g. `op signin my`.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file paths such as the op config file.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Success formats success indicators.
	Success = Formatter{color.New(color.FgGreen), "", ""}

	// Error formats failure indicators.
	Error = Formatter{color.New(color.FgRed), "", ""}

	// Warning formats warning indicators.
	Warning = Formatter{color.New(color.FgYellow), "", ""}

	// Info formats hints and arrows.
	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats user values like the account email or key name.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary text.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)
