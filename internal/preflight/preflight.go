// Package preflight verifies that the external programs refreshkeys drives
// are installed before any other work happens.
package preflight

import (
	"os/exec"

	kerrors "github.com/pricheal/refreshkeys/internal/errors"
)

// LookPathFunc resolves a program name to a path, like exec.LookPath.
type LookPathFunc func(name string) (string, error)

// ToolStatus is the resolution result for a single program.
type ToolStatus struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Found bool   `json:"found"`
}

// Check fails with *errors.MissingDependency for the first name that lookup
// cannot resolve. A nil lookup means exec.LookPath.
func Check(lookup LookPathFunc, names ...string) error {
	if lookup == nil {
		lookup = exec.LookPath
	}
	for _, name := range names {
		if _, err := lookup(name); err != nil {
			return &kerrors.MissingDependency{Name: name}
		}
	}
	return nil
}

// Report resolves every name and returns one status per name, in order.
func Report(lookup LookPathFunc, names ...string) []ToolStatus {
	if lookup == nil {
		lookup = exec.LookPath
	}
	statuses := make([]ToolStatus, 0, len(names))
	for _, name := range names {
		path, err := lookup(name)
		statuses = append(statuses, ToolStatus{
			Name:  name,
			Path:  path,
			Found: err == nil,
		})
	}
	return statuses
}
