package agent

import (
	"context"
	"regexp"
)

// StreamEnd is the Match.Index reported when output ended before any pattern matched.
const StreamEnd = -1

// Match is the result of Session.Expect.
type Match struct {
	// Index of the matched pattern, or StreamEnd.
	Index int
	// Before holds the output preceding the match, or everything left
	// unconsumed when the stream ended.
	Before string
}

// Session is an interactive child process.
type Session interface {
	Expect(ctx context.Context, patterns []*regexp.Regexp) (Match, error)
	SendLine(line string) error
	// Wait blocks until the process exits. Output not yet consumed is discarded.
	Wait() error
	// Close releases the terminal and kills the process if it is still running.
	Close() error
}

// Spawner starts interactive child processes.
type Spawner interface {
	Spawn(ctx context.Context, name string, args ...string) (Session, error)
}

// matchFirst returns the first pattern, in list order, that matches buf, and
// the buffer positions of that match.
func matchFirst(buf []byte, patterns []*regexp.Regexp) (index int, loc []int) {
	for i, p := range patterns {
		if loc := p.FindIndex(buf); loc != nil {
			return i, loc
		}
	}
	return StreamEnd, nil
}
