// Package cmd implements the refreshkeys command line.
//
// The root command performs the refresh. Flags:
//
//	--eval        print keychain's shell code, no status messages
//	--if-needed   only contact 1Password when keychain prompts
//	--clear       drop agent keys before refreshing
//	--config      alternate config.toml
//	-v, -d        verbose and debug logging on stderr
//
// Unknown flags and extra arguments are ignored. Every failure prints a
// single line starting with "Failed" on stderr and exits non-zero.
package cmd
