// Package utils provides small shared helpers for refreshkeys.
//
//   - IsValidEmail: sanity check for the configured account email
//   - DropLinesContaining: line filter used on keychain --eval output
//   - IsTerminal, IsInteractive: terminal detection via golang.org/x/term
package utils
