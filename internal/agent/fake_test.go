package agent

import (
	"context"
	"errors"
	"regexp"
)

// fakeSession replays scripted Expect results.
type fakeSession struct {
	script  []Match
	sent    []string
	expects int
	waited  bool
	closed  bool

	sendErr error
	waitErr error
}

func (f *fakeSession) Expect(ctx context.Context, patterns []*regexp.Regexp) (Match, error) {
	if f.expects >= len(f.script) {
		return Match{}, errors.New("unexpected Expect call")
	}
	m := f.script[f.expects]
	f.expects++
	return m, nil
}

func (f *fakeSession) SendLine(line string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, line)
	return nil
}

func (f *fakeSession) Wait() error {
	f.waited = true
	return f.waitErr
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type fakeSpawner struct {
	session *fakeSession
	err     error
	name    string
	args    []string
	spawns  int
}

func (f *fakeSpawner) Spawn(ctx context.Context, name string, args ...string) (Session, error) {
	f.spawns++
	f.name = name
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// countingSource counts credential fetches.
type countingSource struct {
	pair  CredentialPair
	err   error
	calls int
}

func (c *countingSource) Credentials(ctx context.Context) (CredentialPair, error) {
	c.calls++
	return c.pair, c.err
}
