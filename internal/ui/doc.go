// Package ui provides semantic text formatting for CLI output.
//
// Formatters colorize when the terminal supports it. With NO_COLOR set, or
// when fatih/color decides the output is not a color terminal, they fall back
// to text decorations instead:
//
//	ui.Code.Sprint("op signin my")        // `op signin my`
//	ui.Highlight.Sprint("id_rsa")         // 'id_rsa'
//	ui.Muted.Sprint("optional")           // (optional)
//	ui.Success.Sprint("✓")                // ✓
package ui
