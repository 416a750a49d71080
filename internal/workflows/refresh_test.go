package workflows

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricheal/refreshkeys/internal/agent"
	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
)

type scriptedSession struct {
	script []agent.Match
	next   int
	sent   []string
}

func (s *scriptedSession) Expect(ctx context.Context, patterns []*regexp.Regexp) (agent.Match, error) {
	if s.next >= len(s.script) {
		return agent.Match{Index: agent.StreamEnd}, nil
	}
	m := s.script[s.next]
	s.next++
	return m, nil
}

func (s *scriptedSession) SendLine(line string) error {
	s.sent = append(s.sent, line)
	return nil
}

func (s *scriptedSession) Wait() error  { return nil }
func (s *scriptedSession) Close() error { return nil }

type scriptedSpawner struct {
	session *scriptedSession
	spawned bool
}

func (s *scriptedSpawner) Spawn(ctx context.Context, name string, args ...string) (agent.Session, error) {
	s.spawned = true
	return s.session, nil
}

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Credentials(ctx context.Context) (agent.CredentialPair, error) {
	c.calls++
	return agent.CredentialPair{SSH: "ssh-pass", GPG: "gpg-pass"}, c.err
}

func installed(names ...string) func(string) (string, error) {
	set := map[string]bool{}
	for _, name := range names {
		set[name] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
}

func refreshOptions(session *scriptedSession, source *countingSource) (RefreshOptions, *scriptedSpawner, *bytes.Buffer) {
	spawner := &scriptedSpawner{session: session}
	stdout := &bytes.Buffer{}
	return RefreshOptions{
		Settings: configs.Default(),
		Source:   source,
		Spawner:  spawner,
		LookPath: installed("op", "keychain"),
		Stdout:   stdout,
		Logger:   logger.Discard,
	}, spawner, stdout
}

func TestRefreshBothPromptsEager(t *testing.T) {
	session := &scriptedSession{script: []agent.Match{
		{Index: 0, Before: "Enter passphrase for"},
		{Index: 1},
	}}
	source := &countingSource{}
	opts, _, stdout := refreshOptions(session, source)

	result, err := Refresh(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, result.Refreshed)
	assert.Equal(t, 1, result.CredentialFetches)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, []string{"ssh-pass", "gpg-pass"}, session.sent)
	assert.Empty(t, stdout.String())
}

func TestRefreshAlreadyUnlockedIfNeeded(t *testing.T) {
	session := &scriptedSession{script: []agent.Match{{Index: agent.StreamEnd}}}
	source := &countingSource{}
	opts, _, _ := refreshOptions(session, source)
	opts.IfNeeded = true

	result, err := Refresh(context.Background(), opts)
	require.NoError(t, err)

	assert.False(t, result.Refreshed)
	assert.Equal(t, 0, source.calls)
}

func TestRefreshMissingDependencySpawnsNothing(t *testing.T) {
	session := &scriptedSession{}
	source := &countingSource{}
	opts, spawner, _ := refreshOptions(session, source)
	opts.LookPath = installed("op")

	_, err := Refresh(context.Background(), opts)
	require.ErrorIs(t, err, kerrors.ErrMissingDependency)

	var missing *kerrors.MissingDependency
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "keychain", missing.Name)
	assert.False(t, spawner.spawned)
	assert.Equal(t, 0, source.calls)
}

func TestRefreshProviderFailure(t *testing.T) {
	session := &scriptedSession{script: []agent.Match{{Index: 0}}}
	source := &countingSource{err: kerrors.ErrAccountNotFound}
	opts, _, _ := refreshOptions(session, source)
	opts.IfNeeded = true

	_, err := Refresh(context.Background(), opts)
	assert.ErrorIs(t, err, kerrors.ErrAccountNotFound)
	assert.False(t, errors.Is(err, kerrors.ErrInterrupted))
}

func TestRefreshCancelledContextReportsInterrupt(t *testing.T) {
	session := &scriptedSession{}
	source := &countingSource{err: kerrors.ErrAuthenticationFailed}
	opts, _, _ := refreshOptions(session, source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Refresh(ctx, opts)
	assert.ErrorIs(t, err, kerrors.ErrInterrupted)
}

func TestRefreshEvalWritesShellCode(t *testing.T) {
	session := &scriptedSession{script: []agent.Match{
		{Index: agent.StreamEnd, Before: "SSH_AGENT_PID=1; export SSH_AGENT_PID;\r\n * Warning: x\r\n"},
	}}
	opts, _, stdout := refreshOptions(session, &countingSource{})
	opts.Eval = true
	opts.IfNeeded = true

	result, err := Refresh(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "SSH_AGENT_PID=1; export SSH_AGENT_PID;\n", stdout.String())
	assert.Equal(t, stdout.String(), result.EvalOutput)
}
