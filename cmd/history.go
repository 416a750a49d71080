package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pricheal/refreshkeys/internal/audit"
	"github.com/pricheal/refreshkeys/internal/ui"

	"github.com/spf13/cobra"
)

var (
	historyLast       int
	historyJSONOutput bool
)

func resetHistoryCommandState() {
	historyLast = 0
	historyJSONOutput = false
}

func newHistoryCommand() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show past refresh runs",
		Long: `Shows the runs recorded in the history file.

Runs are only recorded when history is enabled in the config file:

  [history]
  enabled = true`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLast, "last", "n", 10, "number of most recent runs to show, 0 for all")
	historyCmd.Flags().BoolVar(&historyJSONOutput, "json", false, "output in JSON format")
	return historyCmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}

	path, err := historyPath(settings)
	if err != nil {
		return err
	}
	Logger.Infof("Reading history from %s", path)

	entries, err := audit.ReadEntries(path)
	if err != nil {
		return fmt.Errorf("failed to read history %s: %w", path, err)
	}
	entries = audit.Last(entries, historyLast)

	if historyJSONOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if entries == nil {
			entries = []audit.Entry{}
		}
		return encoder.Encode(entries)
	}

	if len(entries) == 0 {
		if !settings.History.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Sprint("History is disabled, set history.enabled = true to record runs"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
		return nil
	}

	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func printHistory(w io.Writer, entries []audit.Entry) {
	for _, entry := range entries {
		var statusIcon string
		switch entry.Outcome {
		case audit.OutcomeOK:
			statusIcon = ui.Success.Sprint("✓")
		case audit.OutcomeInterrupted:
			statusIcon = ui.Warning.Sprint("⚠")
		default:
			statusIcon = ui.Error.Sprint("✗")
		}

		detail := "already unlocked"
		if entry.Refreshed {
			detail = "keys refreshed"
		}
		if entry.Error != "" {
			detail = entry.Error
		}

		fmt.Fprintf(w, "%s %s %s: %s\n", statusIcon, ui.Muted.Sprint(entry.Timestamp), entry.Operation, detail)
	}
}
