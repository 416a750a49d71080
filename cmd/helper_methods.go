package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pricheal/refreshkeys/internal/ui"
)

// startSpinner creates a spinner on w and starts it when enabled is true and
// neither verbose nor debug output is on, since log lines would tear it.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, enabled bool, w io.Writer) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Debugf("Failed to set spinner color: %v", err)
	}

	active := enabled && !verbose && !debug
	if active {
		s.Start()
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if active {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(w, finalMsg)
		}
	}

	return s, cleanup
}

// asFile returns w as an *os.File when it is one, for terminal detection.
func asFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
