// Package agent drives keychain through its passphrase prompts.
//
// keychain starts (or reuses) ssh-agent and gpg-agent and asks for each key's
// passphrase on its terminal when the key is not already unlocked. Driver
// spawns keychain on a pseudo-terminal, waits for either prompt with Expect,
// and answers with the matching half of a CredentialPair. Credentials are
// requested at most once per Run.
//
// # Expect
//
// Session.Expect takes an ordered list of patterns and blocks until the
// buffered output matches one of them or the stream ends. When several
// patterns match, the earliest in the list wins. Cancelling the context
// returns errors.ErrInterrupted.
//
// # States
//
//	WaitingSSH --ssh prompt--> WaitingGPG --gpg prompt--> Done
//	    any --stream end--> Done
//	    any --error--> Failed
package agent
