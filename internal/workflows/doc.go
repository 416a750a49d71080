// Package workflows provides the high-level operations behind each
// refreshkeys command.
//
// The cmd package stays a thin layer: it parses flags, builds the
// collaborators (op client, pty spawner, spinner), calls a workflow and maps
// the result or error to output and an exit code.
//
// # Available Workflows
//
//   - Refresh: preflight, optional clear, then drive keychain
//   - Doctor: health checks for tools, config, account and ssh-agent
//
// Workflows return typed errors from internal/errors. Use errors.Is to find
// the failing stage:
//
//	result, err := workflows.Refresh(ctx, opts)
//	if errors.Is(err, kerrors.ErrMissingDependency) {
//	    // nothing was spawned
//	}
package workflows
