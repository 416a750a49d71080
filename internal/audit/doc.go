// Package audit records a local history of refresh runs.
//
// When history.enabled is set, every invocation appends one JSON object to
// a JSON Lines file, by default:
//
//	$XDG_STATE_HOME/refreshkeys/history.jsonl
//
// Each entry holds the timestamp, the mode flags, whether keys were
// unlocked, how many times 1Password was asked for passphrases and the
// failure message if any. Secrets never reach the file.
//
// History is best-effort: Log returns its error so callers can log it, and
// refreshkeys keeps going.
package audit
