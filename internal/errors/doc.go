// Package errors provides typed error values for refreshkeys.
//
// Every failure in refreshkeys is fatal, so these sentinels exist mainly to
// let the CLI layer name the stage that failed without string matching.
//
// # Error Categories
//
//   - Environment errors: ErrMissingDependency (see MissingDependency)
//   - Provider errors: ErrAccountNotFound, ErrAuthenticationFailed,
//     ErrCredentialRetrievalFailed
//   - Agent errors: ErrAgentDriverFailure, ErrInterrupted
//
// # Usage
//
// Wrap errors with the sub-step that failed:
//
//	return fmt.Errorf("listing documents: %w", errors.ErrCredentialRetrievalFailed)
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrInterrupted) {
//	    // print the interrupt message
//	}
package errors
