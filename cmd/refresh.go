package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pricheal/refreshkeys/internal/agent"
	"github.com/pricheal/refreshkeys/internal/audit"
	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	"github.com/pricheal/refreshkeys/internal/onepassword"
	"github.com/pricheal/refreshkeys/internal/ui"
	"github.com/pricheal/refreshkeys/internal/utils"
	"github.com/pricheal/refreshkeys/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	evalMode    bool
	ifNeeded    bool
	clearAgents bool
)

func resetRefreshState() {
	evalMode = false
	ifNeeded = false
	clearAgents = false
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		Logger.Debugf("Ignoring arguments: %v", args)
	}
	Logger.Infof("Starting refresh with eval=%t, if-needed=%t, clear=%t", evalMode, ifNeeded, clearAgents)

	settings, _, err := loadSettings()
	if err != nil {
		return err
	}

	result, err := workflows.Refresh(cmd.Context(), workflows.RefreshOptions{
		Eval:            evalMode,
		IfNeeded:        ifNeeded,
		Clear:           clearAgents,
		Settings:        settings,
		Source:          newCredentialSource(settings, cmd.ErrOrStderr()),
		Spawner:         spawner,
		LookPath:        lookPath,
		KeychainProgram: keychainProgram,
		Stdout:          cmd.OutOrStdout(),
		Logger:          Logger,
	})
	recordHistory(settings, result, err)
	if err != nil {
		return err
	}

	Logger.Debugf("Refresh finished: refreshed=%t, fetches=%d", result.Refreshed, result.CredentialFetches)

	// --eval output must stay machine readable.
	if result.Refreshed && !evalMode {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success.Sprint("✓")+" SSH and GPG keys refreshed")
	}
	return nil
}

// recordHistory appends the run to the history file when history is enabled.
func recordHistory(settings *configs.Settings, result *workflows.RefreshResult, runErr error) {
	if !settings.History.Enabled {
		return
	}

	path, err := historyPath(settings)
	if err != nil {
		Logger.Warnf("Could not locate history file: %v", err)
		return
	}

	entry := audit.Entry{
		Operation: "refresh",
		Outcome:   audit.OutcomeOK,
		Eval:      evalMode,
		IfNeeded:  ifNeeded,
	}
	if clearAgents {
		entry.Operation = "clear+refresh"
	}
	if result != nil {
		entry.Refreshed = result.Refreshed
		entry.Fetches = result.CredentialFetches
	}
	if runErr != nil {
		entry.Outcome = audit.OutcomeFailed
		if errors.Is(runErr, kerrors.ErrInterrupted) {
			entry.Outcome = audit.OutcomeInterrupted
		}
		entry.Error = runErr.Error()
	}

	if err := audit.Log(path, entry); err != nil {
		Logger.Warnf("Could not write history to %s: %v", path, err)
	}
}

func historyPath(settings *configs.Settings) (string, error) {
	if settings.History.Path != "" {
		return settings.History.Path, nil
	}
	return audit.DefaultPath()
}

// defaultCredentialSource signs in to 1Password and fetches the passphrase
// pair, showing a spinner on stderr while documents are read.
func defaultCredentialSource(settings *configs.Settings, stderr io.Writer) agent.CredentialSource {
	client := onepassword.NewClient(settings, Logger)

	return agent.CredentialSourceFunc(func(ctx context.Context) (agent.CredentialPair, error) {
		token, err := client.EnsureAuthenticated(ctx)
		if err != nil {
			return agent.CredentialPair{}, err
		}

		showSpinner := !evalMode && utils.IsTerminal(asFile(stderr))
		s, cleanup := startSpinner("Retrieving passphrases from 1Password...", showSpinner, stderr)
		defer cleanup()

		pair, err := client.FetchCredentialPair(ctx, token)
		if err != nil {
			if !evalMode {
				s.FinalMSG = ui.Error.Sprint("✗") + " Could not retrieve passphrases"
			}
			return agent.CredentialPair{}, err
		}
		if !evalMode {
			s.FinalMSG = ui.Success.Sprint("✓") + " Retrieved passphrases from 1Password"
		}
		return pair, nil
	})
}
