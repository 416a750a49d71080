package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
)

var testPair = CredentialPair{SSH: "ssh-secret", GPG: "gpg-secret"}

func newTestDriver(session *fakeSession, source CredentialSource) (*Driver, *fakeSpawner, *bytes.Buffer) {
	spawner := &fakeSpawner{session: session}
	stdout := &bytes.Buffer{}
	settings := configs.Default().Keychain
	settings.Fingerprint = "2A70B83FD3493624"
	return &Driver{
		Spawner:  spawner,
		Source:   source,
		Settings: settings,
		Logger:   logger.Discard,
		Stdout:   stdout,
	}, spawner, stdout
}

func TestDriverArgs(t *testing.T) {
	d, _, _ := newTestDriver(nil, nil)

	want := []string{"--quiet", "--nogui", "--timeout", "1440", "--agents", "ssh,gpg", "id_rsa", "2A70B83FD3493624"}
	if diff := cmp.Diff(want, d.Args(false)); diff != "" {
		t.Errorf("Args(false) mismatch (-want +got):\n%s", diff)
	}

	wantEval := append([]string{"--eval"}, want...)
	if diff := cmp.Diff(wantEval, d.Args(true)); diff != "" {
		t.Errorf("Args(true) mismatch (-want +got):\n%s", diff)
	}

	d.Settings.Fingerprint = ""
	assert.Equal(t, "id_rsa", d.Args(false)[len(d.Args(false))-1])
}

func TestDriverBothPromptsAnswered(t *testing.T) {
	for _, ifNeeded := range []bool{false, true} {
		t.Run(map[bool]string{false: "Eager", true: "IfNeeded"}[ifNeeded], func(t *testing.T) {
			session := &fakeSession{script: []Match{
				{Index: 0, Before: ""},
				{Index: 1, Before: "Identity added\r\n"},
			}}
			source := &countingSource{pair: testPair}
			d, spawner, stdout := newTestDriver(session, source)

			outcome, err := d.Run(context.Background(), RunOptions{IfNeeded: ifNeeded})
			require.NoError(t, err)

			assert.True(t, outcome.Refreshed)
			assert.Equal(t, Done, outcome.State)
			assert.Equal(t, 1, source.calls, "credentials must be fetched exactly once")
			assert.Equal(t, 1, outcome.Fetches)
			assert.Equal(t, []string{"ssh-secret", "gpg-secret"}, session.sent)
			assert.Equal(t, "keychain", spawner.name)
			assert.True(t, session.waited)
			assert.True(t, session.closed)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestDriverStreamEndsImmediately(t *testing.T) {
	tests := []struct {
		name        string
		ifNeeded    bool
		wantFetches int
	}{
		{"IfNeededSkipsProvider", true, 0},
		{"EagerFetchesOnce", false, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session := &fakeSession{script: []Match{{Index: StreamEnd}}}
			source := &countingSource{pair: testPair}
			d, _, _ := newTestDriver(session, source)

			outcome, err := d.Run(context.Background(), RunOptions{IfNeeded: tc.ifNeeded})
			require.NoError(t, err)

			assert.False(t, outcome.Refreshed)
			assert.Equal(t, tc.wantFetches, source.calls)
			assert.Equal(t, 1, session.expects, "stream end must stop the loop")
			assert.Empty(t, session.sent)
			assert.True(t, session.waited)
		})
	}
}

func TestDriverOnlyGPGPrompt(t *testing.T) {
	session := &fakeSession{script: []Match{
		{Index: 1},
		{Index: StreamEnd},
	}}
	source := &countingSource{pair: testPair}
	d, _, _ := newTestDriver(session, source)

	outcome, err := d.Run(context.Background(), RunOptions{IfNeeded: true})
	require.NoError(t, err)

	assert.True(t, outcome.Refreshed)
	assert.Equal(t, []string{"gpg-secret"}, session.sent)
	assert.Equal(t, 1, source.calls)
}

func TestDriverStopsAfterTwoPrompts(t *testing.T) {
	session := &fakeSession{script: []Match{
		{Index: 0},
		{Index: 0},
		{Index: 1},
	}}
	d, _, _ := newTestDriver(session, &countingSource{pair: testPair})

	_, err := d.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, session.expects)
	assert.Equal(t, []string{"ssh-secret", "ssh-secret"}, session.sent)
}

func TestDriverEvalOutput(t *testing.T) {
	before := "SSH_AUTH_SOCK=/tmp/ssh-abc/agent.1; export SSH_AUTH_SOCK;\r\n" +
		" * Warning: can't find id_dsa; skipping\r\n" +
		"SSH_AGENT_PID=1234; export SSH_AGENT_PID;\r\n"

	session := &fakeSession{script: []Match{
		{Index: 0, Before: before},
		{Index: 1, Before: "Warning: this is not printed either way\r\n"},
	}}
	d, spawner, stdout := newTestDriver(session, &countingSource{pair: testPair})

	outcome, err := d.Run(context.Background(), RunOptions{Eval: true})
	require.NoError(t, err)

	want := "SSH_AUTH_SOCK=/tmp/ssh-abc/agent.1; export SSH_AUTH_SOCK;\n" +
		"SSH_AGENT_PID=1234; export SSH_AGENT_PID;\n"
	assert.Equal(t, want, stdout.String())
	assert.Equal(t, want, outcome.EvalOutput)
	assert.NotContains(t, stdout.String(), "Warning")
	assert.NotContains(t, stdout.String(), "\r")
	assert.Equal(t, "--eval", spawner.args[0])
}

func TestDriverEvalOutputOnStreamEnd(t *testing.T) {
	session := &fakeSession{script: []Match{
		{Index: StreamEnd, Before: "GPG_AGENT_INFO=x; export GPG_AGENT_INFO;\r\nWarning: x\r\n"},
	}}
	d, _, stdout := newTestDriver(session, &countingSource{pair: testPair})

	outcome, err := d.Run(context.Background(), RunOptions{Eval: true, IfNeeded: true})
	require.NoError(t, err)

	assert.False(t, outcome.Refreshed)
	assert.Equal(t, "GPG_AGENT_INFO=x; export GPG_AGENT_INFO;\n", stdout.String())
}

func TestDriverCredentialErrorPassesThrough(t *testing.T) {
	providerErr := fmt.Errorf("signin: %w", kerrors.ErrAuthenticationFailed)

	t.Run("Eager", func(t *testing.T) {
		session := &fakeSession{}
		d, spawner, _ := newTestDriver(session, &countingSource{err: providerErr})

		outcome, err := d.Run(context.Background(), RunOptions{})
		require.ErrorIs(t, err, kerrors.ErrAuthenticationFailed)
		assert.Equal(t, Failed, outcome.State)
		assert.Equal(t, 0, spawner.spawns, "nothing is spawned when the eager fetch fails")
	})

	t.Run("IfNeeded", func(t *testing.T) {
		session := &fakeSession{script: []Match{{Index: 0}}}
		d, _, _ := newTestDriver(session, &countingSource{err: providerErr})

		outcome, err := d.Run(context.Background(), RunOptions{IfNeeded: true})
		require.ErrorIs(t, err, kerrors.ErrAuthenticationFailed)
		assert.False(t, errors.Is(err, kerrors.ErrAgentDriverFailure))
		assert.Equal(t, Failed, outcome.State)
		assert.Equal(t, 1, outcome.Fetches)
		assert.Empty(t, session.sent)
		assert.True(t, session.closed)
	})
}

func TestDriverFailures(t *testing.T) {
	t.Run("SpawnFails", func(t *testing.T) {
		d, _, _ := newTestDriver(nil, &countingSource{pair: testPair})
		d.Spawner = &fakeSpawner{err: errors.New("exec: not found")}

		_, err := d.Run(context.Background(), RunOptions{})
		assert.ErrorIs(t, err, kerrors.ErrAgentDriverFailure)
	})

	t.Run("SendFails", func(t *testing.T) {
		session := &fakeSession{
			script:  []Match{{Index: 0}},
			sendErr: fmt.Errorf("writing response: %w", kerrors.ErrAgentDriverFailure),
		}
		d, _, _ := newTestDriver(session, &countingSource{pair: testPair})

		_, err := d.Run(context.Background(), RunOptions{})
		assert.ErrorIs(t, err, kerrors.ErrAgentDriverFailure)
	})

	t.Run("WaitFails", func(t *testing.T) {
		session := &fakeSession{
			script:  []Match{{Index: StreamEnd}},
			waitErr: fmt.Errorf("waiting for exit: %w", kerrors.ErrAgentDriverFailure),
		}
		d, _, _ := newTestDriver(session, &countingSource{pair: testPair})

		outcome, err := d.Run(context.Background(), RunOptions{})
		assert.ErrorIs(t, err, kerrors.ErrAgentDriverFailure)
		assert.Equal(t, Failed, outcome.State)
	})

	t.Run("BadPattern", func(t *testing.T) {
		d, spawner, _ := newTestDriver(&fakeSession{}, &countingSource{pair: testPair})
		d.Settings.SSHPrompt = "(["

		_, err := d.Run(context.Background(), RunOptions{})
		assert.ErrorIs(t, err, kerrors.ErrAgentDriverFailure)
		assert.Equal(t, 0, spawner.spawns)
	})
}

func TestLazyCredentialsRetriesAfterError(t *testing.T) {
	source := &countingSource{err: errors.New("boom")}
	lazy := &lazyCredentials{source: source}

	_, err := lazy.get(context.Background())
	require.Error(t, err)

	source.err = nil
	source.pair = testPair
	for i := 0; i < 3; i++ {
		pair, err := lazy.get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testPair, pair)
	}
	assert.Equal(t, 2, source.calls)
}

func TestMatchFirstUsesListOrder(t *testing.T) {
	d, _, _ := newTestDriver(nil, nil)
	d.Settings.SSHPrompt = "passphrase"
	d.Settings.GPGPrompt = "Enter"
	patterns, err := d.Patterns()
	require.NoError(t, err)

	index, loc := matchFirst([]byte("Enter passphrase for id_rsa: "), patterns)
	assert.Equal(t, 0, index, "the first pattern in the list wins even if a later one matches earlier in the text")
	assert.Equal(t, []int{6, 16}, loc)

	index, _ = matchFirst([]byte("nothing here"), patterns)
	assert.Equal(t, StreamEnd, index)
}
