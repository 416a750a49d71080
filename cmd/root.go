package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/pricheal/refreshkeys/internal/agent"
	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
	"github.com/pricheal/refreshkeys/internal/preflight"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

var (
	verbose    bool
	debug      bool
	configPath string
	Logger     logger.Logger

	// lookPath resolves required programs. Can be overridden for testing.
	lookPath preflight.LookPathFunc = exec.LookPath
	// spawner starts keychain. Nil means a pty spawner.
	spawner agent.Spawner
	// keychainProgram overrides the keychain binary for testing.
	keychainProgram string
	// newCredentialSource builds the 1Password source for a run.
	newCredentialSource = defaultCredentialSource
)

// NewRootCommand builds the refreshkeys command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "refreshkeys",
		Short: "Unlock your SSH and GPG keys with passphrases stored in 1Password",
		Long: `refreshkeys reads your SSH and GPG key passphrases from 1Password using
the op CLI and feeds them to keychain, so both agents hold unlocked keys.

Add this to your shell profile to share the agents with every shell:

  eval "$(refreshkeys --eval --if-needed)"`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{
			UnknownFlags: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
		RunE: runRefresh,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default $XDG_CONFIG_HOME/refreshkeys/config.toml)")

	rootCmd.Flags().BoolVar(&evalMode, "eval", false, "print keychain's shell code for eval and suppress status messages")
	rootCmd.Flags().BoolVar(&ifNeeded, "if-needed", false, "only contact 1Password when a key actually needs unlocking")
	rootCmd.Flags().BoolVar(&clearAgents, "clear", false, "drop all keys from both agents before refreshing")

	rootCmd.AddCommand(newDoctorCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// Execute runs refreshkeys with the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, NewRootCommand(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, rootCmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	fmt.Fprintln(stderr, failureMessage(err))
	if errors.Is(err, kerrors.ErrInterrupted) {
		return ExitInterrupted
	}
	return ExitFailure
}

// failureMessage names the stage that failed. Interrupts start on a fresh
// line because ^C leaves the cursor after the echoed characters.
func failureMessage(err error) string {
	var missing *kerrors.MissingDependency
	switch {
	case errors.Is(err, kerrors.ErrInterrupted):
		return "\nFailed: interrupted"
	case errors.As(err, &missing):
		return fmt.Sprintf("Failed preflight check: %s", missing.Error())
	case errors.Is(err, kerrors.ErrAccountNotFound):
		return fmt.Sprintf("Failed 1Password account lookup: %v", err)
	case errors.Is(err, kerrors.ErrAuthenticationFailed):
		return fmt.Sprintf("Failed 1Password sign in: %v", err)
	case errors.Is(err, kerrors.ErrCredentialRetrievalFailed):
		return fmt.Sprintf("Failed passphrase retrieval: %v", err)
	case errors.Is(err, kerrors.ErrAgentDriverFailure):
		return fmt.Sprintf("Failed keychain refresh: %v", err)
	default:
		return fmt.Sprintf("Failed: %v", err)
	}
}

func loadSettings() (*configs.Settings, string, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = configs.DefaultPath()
		if err != nil {
			return nil, "", err
		}
	}
	settings, err := configs.Load(path)
	if err != nil {
		return nil, path, err
	}
	Logger.Debugf("Loaded settings from %s", path)
	return settings, path, nil
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	Logger = logger.Logger{}
	lookPath = exec.LookPath
	spawner = nil
	keychainProgram = ""
	newCredentialSource = defaultCredentialSource
	resetRefreshState()
	resetDoctorCommandState()
	resetConfigCommandState()
	resetHistoryCommandState()
}

// resetCobraFlagState clears Changed on every flag of cmd to prevent test pollution.
func resetCobraFlagState(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
}
