package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
	"github.com/pricheal/refreshkeys/internal/utils"
)

// DefaultProgram is the agent manager refreshkeys drives.
const DefaultProgram = "keychain"

// managedAgents is passed to keychain's --agents flag.
const managedAgents = "ssh,gpg"

// maxPrompts bounds the prompt loop: one ssh and one gpg prompt at most.
const maxPrompts = 2

// RunOptions are the per-invocation modes.
type RunOptions struct {
	// Eval passes --eval to keychain and copies its shell output to Stdout.
	Eval bool
	// IfNeeded defers the credential fetch until a prompt is seen.
	IfNeeded bool
}

// Outcome describes a completed Run.
type Outcome struct {
	State State
	// Refreshed is true when at least one passphrase was sent.
	Refreshed bool
	// Fetches counts calls made to the CredentialSource.
	Fetches int
	// EvalOutput is the filtered shell code written in eval mode.
	EvalOutput string
}

// Driver spawns keychain and answers its passphrase prompts.
type Driver struct {
	Spawner  Spawner
	Source   CredentialSource
	Settings configs.KeychainSettings
	Logger   logger.Logger

	// Program defaults to DefaultProgram.
	Program string
	// Stdout receives eval output. Nil means os.Stdout.
	Stdout io.Writer
}

func (d *Driver) program() string {
	if d.Program != "" {
		return d.Program
	}
	return DefaultProgram
}

func (d *Driver) stdout() io.Writer {
	if d.Stdout != nil {
		return d.Stdout
	}
	return os.Stdout
}

// Args returns the keychain arguments for one run.
func (d *Driver) Args(eval bool) []string {
	var args []string
	if eval {
		args = append(args, "--eval")
	}
	args = append(args,
		"--quiet",
		"--nogui",
		"--timeout", strconv.Itoa(d.Settings.TimeoutMinutes),
		"--agents", managedAgents,
		d.Settings.KeyFile,
	)
	if d.Settings.Fingerprint != "" {
		args = append(args, d.Settings.Fingerprint)
	}
	return args
}

// Patterns compiles the prompt patterns in match priority order: ssh, then gpg.
func (d *Driver) Patterns() ([]*regexp.Regexp, error) {
	ssh, err := regexp.Compile(d.Settings.SSHPrompt)
	if err != nil {
		return nil, fmt.Errorf("compiling ssh prompt: %w: %w", kerrors.ErrAgentDriverFailure, err)
	}
	gpg, err := regexp.Compile(d.Settings.GPGPrompt)
	if err != nil {
		return nil, fmt.Errorf("compiling gpg prompt: %w: %w", kerrors.ErrAgentDriverFailure, err)
	}
	return []*regexp.Regexp{ssh, gpg}, nil
}

// Run drives one keychain invocation to completion. Errors from the
// CredentialSource are returned unchanged.
func (d *Driver) Run(ctx context.Context, opts RunOptions) (*Outcome, error) {
	outcome := &Outcome{State: WaitingSSH}
	creds := &lazyCredentials{source: d.Source}
	fail := func(err error) (*Outcome, error) {
		outcome.State = Failed
		outcome.Fetches = creds.fetches
		return outcome, err
	}

	patterns, err := d.Patterns()
	if err != nil {
		return fail(err)
	}

	if !opts.IfNeeded {
		d.Logger.Debugf("Fetching credentials before spawning %s", d.program())
		if _, err := creds.get(ctx); err != nil {
			return fail(err)
		}
	}

	args := d.Args(opts.Eval)
	d.Logger.Infof("Running %s %s", d.program(), strings.Join(args, " "))
	session, err := d.Spawner.Spawn(ctx, d.program(), args...)
	if err != nil {
		return fail(fmt.Errorf("spawning %s: %w: %w", d.program(), kerrors.ErrAgentDriverFailure, err))
	}
	defer session.Close()

	for i := 0; i < maxPrompts; i++ {
		match, err := session.Expect(ctx, patterns)
		if err != nil {
			return fail(err)
		}

		if i == 0 && opts.Eval {
			outcome.EvalOutput = cleanEvalOutput(match.Before)
			if _, err := io.WriteString(d.stdout(), outcome.EvalOutput); err != nil {
				return fail(fmt.Errorf("writing eval output: %w: %w", kerrors.ErrAgentDriverFailure, err))
			}
		}

		seen := outcomeOf(match)
		d.Logger.Debugf("Iteration %d: %s (state %s)", i+1, seen, outcome.State)
		if seen == StreamEnded {
			break
		}

		pair, err := creds.get(ctx)
		if err != nil {
			return fail(err)
		}

		switch seen {
		case SSHPromptSeen:
			if err := session.SendLine(pair.SSH); err != nil {
				return fail(err)
			}
			outcome.State = WaitingGPG
		case GPGPromptSeen:
			if err := session.SendLine(pair.GPG); err != nil {
				return fail(err)
			}
			outcome.State = Done
		}
		outcome.Refreshed = true
	}

	if err := session.Wait(); err != nil {
		if ctx.Err() != nil {
			return fail(fmt.Errorf("waiting for %s: %w", d.program(), kerrors.ErrInterrupted))
		}
		return fail(err)
	}

	outcome.State = Done
	outcome.Fetches = creds.fetches
	return outcome, nil
}

// Clear asks keychain to drop every key held by both agents.
func (d *Driver) Clear(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, d.program(), "--clear", "--quiet", "--agents", managedAgents)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	d.Logger.Infof("Clearing %s agents", managedAgents)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clearing agents: %w: %w", kerrors.ErrAgentDriverFailure, err)
	}
	return nil
}

func outcomeOf(m Match) PromptOutcome {
	switch m.Index {
	case 0:
		return SSHPromptSeen
	case 1:
		return GPGPromptSeen
	default:
		return StreamEnded
	}
}

// cleanEvalOutput turns captured terminal output into shell code safe to eval.
func cleanEvalOutput(raw string) string {
	return utils.DropLinesContaining(strings.ReplaceAll(raw, "\r", ""), "Warning")
}
