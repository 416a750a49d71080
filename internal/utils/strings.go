package utils

import (
	"regexp"
	"strings"
)

// emailRegex checks for local-part@domain.tld format.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail checks if the given string is a valid email address format.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailRegex.MatchString(email)
}

// DropLinesContaining removes every line of text that contains substr.
// Line terminators of the kept lines are preserved.
func DropLinesContaining(text, substr string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" || strings.Contains(line, substr) {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
