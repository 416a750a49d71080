package errors

import "errors"

// Environment errors indicate the workstation is missing something we need.
var (
	// ErrMissingDependency indicates a required program is not on PATH.
	ErrMissingDependency = errors.New("required program not installed")
)

// Provider errors indicate failures talking to the 1Password CLI.
var (
	// ErrAccountNotFound indicates the configured account is not registered with the op CLI.
	ErrAccountNotFound = errors.New("1password account not found")

	// ErrAuthenticationFailed indicates op signin did not produce a session token.
	ErrAuthenticationFailed = errors.New("1password login unsuccessful")

	// ErrCredentialRetrievalFailed indicates the key passphrases could not be read.
	ErrCredentialRetrievalFailed = errors.New("error retrieving passphrases from 1password")
)

// Agent errors indicate failures while driving keychain.
var (
	// ErrAgentDriverFailure indicates keychain could not be spawned, read or written.
	ErrAgentDriverFailure = errors.New("keychain unsuccessful")

	// ErrInterrupted indicates the invocation was cancelled by a signal.
	ErrInterrupted = errors.New("interrupted")
)

// MissingDependency carries the name of the first program that could not be resolved.
type MissingDependency struct {
	Name string
}

func (e *MissingDependency) Error() string {
	return e.Name + " not installed"
}

// Unwrap lets errors.Is match ErrMissingDependency.
func (e *MissingDependency) Unwrap() error {
	return ErrMissingDependency
}
