package agent

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
)

// newHelperDriver returns a Driver whose keychain is this test binary playing role.
func newHelperDriver(t *testing.T, role string, source CredentialSource) (*Driver, *bytes.Buffer) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pseudo-terminals are not supported on windows")
	}

	stdout := &bytes.Buffer{}
	return &Driver{
		Spawner:  PTYSpawner{Logger: logger.Discard, Env: []string{"TEST_MAIN=" + role}},
		Source:   source,
		Settings: configs.Default().Keychain,
		Logger:   logger.Discard,
		Program:  os.Args[0],
		Stdout:   stdout,
	}, stdout
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPTYDriverAnswersBothPrompts(t *testing.T) {
	source := &countingSource{pair: CredentialPair{SSH: helperSSHPassphrase, GPG: helperGPGPassphrase}}
	d, stdout := newHelperDriver(t, "keychain-locked", source)

	outcome, err := d.Run(testContext(t), RunOptions{IfNeeded: true})
	require.NoError(t, err)

	assert.True(t, outcome.Refreshed)
	assert.Equal(t, Done, outcome.State)
	assert.Equal(t, 1, source.calls)
	assert.Empty(t, stdout.String())
}

func TestPTYDriverEvalOutput(t *testing.T) {
	source := &countingSource{pair: CredentialPair{SSH: helperSSHPassphrase, GPG: helperGPGPassphrase}}
	d, stdout := newHelperDriver(t, "keychain-locked", source)

	outcome, err := d.Run(testContext(t), RunOptions{Eval: true})
	require.NoError(t, err)

	assert.True(t, outcome.Refreshed)
	assert.Equal(t,
		"SSH_AUTH_SOCK=/tmp/ssh-test/agent.1; export SSH_AUTH_SOCK;\nSSH_AGENT_PID=4242; export SSH_AGENT_PID;\n",
		stdout.String())
}

func TestPTYDriverAlreadyUnlocked(t *testing.T) {
	source := &countingSource{}
	d, stdout := newHelperDriver(t, "keychain-unlocked", source)

	outcome, err := d.Run(testContext(t), RunOptions{Eval: true, IfNeeded: true})
	require.NoError(t, err)

	assert.False(t, outcome.Refreshed)
	assert.Equal(t, 0, source.calls)
	assert.Contains(t, stdout.String(), "export SSH_AGENT_PID;")
}

func TestPTYDriverWrongPassphrase(t *testing.T) {
	source := &countingSource{pair: CredentialPair{SSH: "wrong", GPG: "wrong"}}
	d, _ := newHelperDriver(t, "keychain-locked", source)

	outcome, err := d.Run(testContext(t), RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrAgentDriverFailure)
	assert.Equal(t, Failed, outcome.State)
}

func TestPTYDriverNonZeroExit(t *testing.T) {
	d, _ := newHelperDriver(t, "keychain-broken", &countingSource{})

	_, err := d.Run(testContext(t), RunOptions{IfNeeded: true})
	assert.ErrorIs(t, err, kerrors.ErrAgentDriverFailure)
}

func TestPTYDriverInterrupted(t *testing.T) {
	d, _ := newHelperDriver(t, "keychain-hang", &countingSource{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcome, err := d.Run(ctx, RunOptions{IfNeeded: true})
	assert.ErrorIs(t, err, kerrors.ErrInterrupted)
	assert.Equal(t, Failed, outcome.State)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestPTYSpawnMissingProgram(t *testing.T) {
	d, _ := newHelperDriver(t, "", &countingSource{})
	d.Program = "/nonexistent/keychain"

	_, err := d.Run(testContext(t), RunOptions{IfNeeded: true})
	assert.ErrorIs(t, err, kerrors.ErrAgentDriverFailure)
}

func TestDriverClear(t *testing.T) {
	d, _ := newHelperDriver(t, "", &countingSource{})

	t.Setenv("TEST_MAIN", "keychain-clear")
	require.NoError(t, d.Clear(testContext(t)))

	t.Setenv("TEST_MAIN", "keychain-broken")
	assert.ErrorIs(t, d.Clear(testContext(t)), kerrors.ErrAgentDriverFailure)
}
