// Package logger provides leveled logging for the refreshkeys CLI.
//
// All output goes to stderr. Standard output is reserved for the shell code
// printed in --eval mode, so nothing here may ever write to it.
//
// # Verbosity Levels
//
//   - --verbose: Shows info messages
//   - --debug: Shows info, debug and error details
//
// Warnings are always shown.
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Spawning %s", name)
//
// Never pass passphrases or session tokens to the logger.
package logger
