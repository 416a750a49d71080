package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Outcomes recorded for a run.
const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// Entry represents a single refresh run. Passphrases and session tokens are
// never recorded.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Operation string `json:"op"` // "refresh" or "clear+refresh".
	Outcome   string `json:"outcome"`

	Eval      bool   `json:"eval,omitempty"`
	IfNeeded  bool   `json:"if_needed,omitempty"`
	Refreshed bool   `json:"refreshed,omitempty"`
	Fetches   int    `json:"fetches,omitempty"` // Credential fetches, 0 or 1.
	Error     string `json:"error,omitempty"`
}

// DefaultPath returns $XDG_STATE_HOME/refreshkeys/history.jsonl, falling back
// to ~/.local/state when XDG_STATE_HOME is unset.
func DefaultPath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error getting home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "refreshkeys", "history.jsonl"), nil
}

// Log appends an entry to the history file at path.
// A refresh never fails because its history could not be written, so the
// error is only returned for the caller to log.
func Log(path string, entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = f.Write(append(data, '\n'))
	return err
}

// ReadEntries reads all entries from the history file at path.
// Returns an empty slice if the file doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data into entries.
// Malformed lines are silently skipped, they come from interrupted writes.
func ParseEntries(data []byte) []Entry {
	var entries []Entry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

// Last returns at most n entries from the end of entries.
func Last(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}
