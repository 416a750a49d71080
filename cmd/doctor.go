package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pricheal/refreshkeys/internal/onepassword"
	"github.com/pricheal/refreshkeys/internal/ui"
	"github.com/pricheal/refreshkeys/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	doctorJSONOutput bool
	// doctorSSHAuthSock overrides $SSH_AUTH_SOCK for testing.
	doctorSSHAuthSock string
	// doctorOPConfigPaths overrides the op config file locations for testing.
	doctorOPConfigPaths []string
	// doctorExitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	doctorExitFunc = os.Exit
)

func resetDoctorCommandState() {
	doctorJSONOutput = false
	doctorSSHAuthSock = ""
	doctorOPConfigPaths = nil
	doctorExitFunc = os.Exit
}

// SetDoctorExitFunc sets the exit function for testing purposes.
func SetDoctorExitFunc(f func(int)) {
	doctorExitFunc = f
}

func newDoctorCommand() *cobra.Command {
	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that refreshkeys can run on this machine",
		Long: `Runs a series of health checks and reports issues.

The doctor command checks:
  - op and keychain are installed
  - The refreshkeys config file
  - The 1Password account is registered with op
  - Whether a cached op session is exported
  - The GPG key fingerprint
  - Whether ssh-agent is reachable and holds keys

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
	return doctorCmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	settings, path, err := loadSettings()
	if err != nil {
		return err
	}

	client := onepassword.NewClient(settings, Logger)
	client.OPConfigPaths = doctorOPConfigPaths

	result, err := workflows.Doctor(cmd.Context(), workflows.DoctorOptions{
		Settings:    settings,
		ConfigPath:  path,
		LookPath:    lookPath,
		Client:      client,
		SSHAuthSock: doctorSSHAuthSock,
	})
	if err != nil {
		return err
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	if doctorJSONOutput {
		if err := outputDoctorJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printDoctorResults(cmd.OutOrStdout(), result)
	}

	// Set exit code based on results.
	if result.Summary.Errors > 0 {
		doctorExitFunc(2)
	} else if result.Summary.Warnings > 0 {
		doctorExitFunc(1)
	}
	return nil
}

// outputDoctorJSON outputs the result as JSON.
func outputDoctorJSON(w io.Writer, result *workflows.DoctorResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printDoctorResults prints the doctor results in a human-readable format.
func printDoctorResults(w io.Writer, result *workflows.DoctorResult) {
	fmt.Fprintln(w, "Running health checks...")
	fmt.Fprintln(w)

	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Fprintf(w, "%s %s\n", statusIcon, check.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Fprintf(w, ", %s", ui.Warning.Sprintf("%d warning(s)", result.Summary.Warnings))
	}
	if result.Summary.Errors > 0 {
		fmt.Fprintf(w, ", %s", ui.Error.Sprintf("%d error(s)", result.Summary.Errors))
	}
	fmt.Fprintln(w)

	if len(result.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Fprintf(w, "  %s %s\n", ui.Info.Sprint("→"), suggestion)
		}
	}
}
