package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pricheal/refreshkeys/internal/agent"
	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
	"github.com/pricheal/refreshkeys/internal/preflight"
)

// RefreshOptions configures the refresh workflow.
type RefreshOptions struct {
	// Eval prints keychain's shell code to Stdout instead of status text.
	Eval bool
	// IfNeeded only contacts 1Password when keychain prompts.
	IfNeeded bool
	// Clear drops all agent keys before refreshing.
	Clear bool

	Settings *configs.Settings
	Source   agent.CredentialSource
	Spawner  agent.Spawner
	// LookPath defaults to exec.LookPath.
	LookPath preflight.LookPathFunc
	// KeychainProgram overrides the keychain binary, mostly for tests.
	KeychainProgram string
	Stdout          io.Writer
	Logger          logger.Logger
}

// RefreshResult holds the result of the refresh workflow.
type RefreshResult struct {
	// Refreshed is true when at least one agent was sent a passphrase.
	Refreshed bool
	// EvalOutput is the shell code written to Stdout in eval mode.
	EvalOutput string
	// CredentialFetches counts how often 1Password was asked.
	CredentialFetches int
}

// Refresh unlocks the configured SSH and GPG keys through keychain.
func Refresh(ctx context.Context, opts RefreshOptions) (*RefreshResult, error) {
	log := opts.Logger
	settings := opts.Settings
	if settings == nil {
		settings = configs.Default()
	}

	log.Debugf("Checking required tools: %v", settings.Preflight.RequiredTools)
	if err := preflight.Check(opts.LookPath, settings.Preflight.RequiredTools...); err != nil {
		return nil, err
	}

	driver := &agent.Driver{
		Spawner:  opts.Spawner,
		Source:   opts.Source,
		Settings: settings.Keychain,
		Logger:   log,
		Program:  opts.KeychainProgram,
		Stdout:   opts.Stdout,
	}
	if driver.Spawner == nil {
		driver.Spawner = agent.PTYSpawner{Logger: log}
	}

	if opts.Clear {
		if err := driver.Clear(ctx); err != nil {
			return nil, interrupted(ctx, err)
		}
	}

	outcome, err := driver.Run(ctx, agent.RunOptions{Eval: opts.Eval, IfNeeded: opts.IfNeeded})
	if err != nil {
		return nil, interrupted(ctx, err)
	}

	result := &RefreshResult{
		Refreshed:         outcome.Refreshed,
		EvalOutput:        outcome.EvalOutput,
		CredentialFetches: outcome.Fetches,
	}

	if result.Refreshed {
		logAgentIdentities(log)
	} else {
		log.Infof("Keys already unlocked, nothing to refresh")
	}

	return result, nil
}

// interrupted reports err as ErrInterrupted when ctx was cancelled, since a
// killed child usually surfaces as an ordinary failure first.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil && !errors.Is(err, kerrors.ErrInterrupted) {
		return fmt.Errorf("%w: %w", kerrors.ErrInterrupted, err)
	}
	return err
}

func logAgentIdentities(log logger.Logger) {
	if !log.Verbose && !log.Debug {
		return
	}
	identities, err := agent.ListSSHIdentities("")
	if err != nil {
		log.Debugf("Could not query ssh-agent: %v", err)
		return
	}
	log.Infof("ssh-agent now holds %d key(s)", len(identities))
	for _, identity := range identities {
		log.Debugf("  %s %s %s", identity.Type, identity.Fingerprint, identity.Comment)
	}
}
