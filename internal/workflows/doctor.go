package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pricheal/refreshkeys/internal/agent"
	"github.com/pricheal/refreshkeys/internal/configs"
	"github.com/pricheal/refreshkeys/internal/onepassword"
	"github.com/pricheal/refreshkeys/internal/preflight"
	"github.com/pricheal/refreshkeys/internal/utils"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means refreshkeys cannot work until this is fixed.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	Settings *configs.Settings
	// ConfigPath is the refreshkeys config file that was loaded, if any.
	ConfigPath string
	LookPath   preflight.LookPathFunc
	// Client is used for the account check. It never signs in.
	Client *onepassword.Client
	// SSHAuthSock overrides $SSH_AUTH_SOCK for the agent check.
	SSHAuthSock string
}

// Doctor runs health checks on the local refreshkeys setup.
//
// The doctor workflow checks:
//   - Required programs are on PATH
//   - The refreshkeys config file
//   - The account email and its registration with op
//   - Whether a cached op session is exported
//   - The GPG key fingerprint
//   - Whether ssh-agent is reachable and holds keys
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	settings := opts.Settings
	if settings == nil {
		settings = configs.Default()
	}

	var results []CheckResult
	results = append(results, checkTools(opts.LookPath, settings.Preflight.RequiredTools)...)
	results = append(results,
		checkConfigFile(opts.ConfigPath),
		checkAccount(settings, opts.Client),
		checkCachedSession(settings, opts.Client),
		checkFingerprint(settings),
		checkSSHAgent(opts.SSHAuthSock),
	)

	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

func checkTools(lookup preflight.LookPathFunc, names []string) []CheckResult {
	var results []CheckResult
	for _, tool := range preflight.Report(lookup, names...) {
		if tool.Found {
			results = append(results, CheckResult{
				Name:    "Tool " + tool.Name,
				Status:  CheckPass,
				Message: fmt.Sprintf("%s found at %s", tool.Name, tool.Path),
			})
			continue
		}
		results = append(results, CheckResult{
			Name:       "Tool " + tool.Name,
			Status:     CheckError,
			Message:    fmt.Sprintf("%s is not installed", tool.Name),
			Suggestion: fmt.Sprintf("Install %s and make sure it is on your PATH", tool.Name),
		})
	}
	return results
}

func checkConfigFile(path string) CheckResult {
	if path == "" {
		return CheckResult{
			Name:       "Configuration",
			Status:     CheckWarning,
			Message:    "Could not determine the config file location",
			Suggestion: "Pass --config with the path to your config.toml",
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return CheckResult{
			Name:       "Configuration",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("No config file at %s, using defaults", path),
			Suggestion: "Run 'refreshkeys config init --email <you@example.com>' to create one",
		}
	}
	return CheckResult{
		Name:    "Configuration",
		Status:  CheckPass,
		Message: fmt.Sprintf("Config loaded from %s", path),
	}
}

func checkAccount(settings *configs.Settings, client *onepassword.Client) CheckResult {
	email := settings.Account.Email
	if !utils.IsValidEmail(email) {
		return CheckResult{
			Name:       "1Password account",
			Status:     CheckError,
			Message:    fmt.Sprintf("Account email %q is not a valid email address", email),
			Suggestion: "Set account.email in your config file",
		}
	}
	if client == nil {
		return CheckResult{
			Name:    "1Password account",
			Status:  CheckWarning,
			Message: "Account registration was not checked",
		}
	}
	account, err := client.LookupAccount()
	if err != nil {
		return CheckResult{
			Name:       "1Password account",
			Status:     CheckError,
			Message:    fmt.Sprintf("Account lookup failed: %v", err),
			Suggestion: fmt.Sprintf("Run 'op signin %s %s' once to register the account", settings.Account.Address, email),
		}
	}
	return CheckResult{
		Name:    "1Password account",
		Status:  CheckPass,
		Message: fmt.Sprintf("Account %s registered as %q", email, account.Shorthand),
	}
}

func checkCachedSession(settings *configs.Settings, client *onepassword.Client) CheckResult {
	env := onepassword.SessionEnv(settings.Account.Shorthand)
	getenv := os.Getenv
	if client != nil && client.Getenv != nil {
		getenv = client.Getenv
	}
	if strings.TrimSpace(getenv(env)) == "" {
		return CheckResult{
			Name:    "1Password session",
			Status:  CheckWarning,
			Message: fmt.Sprintf("%s is not set, refreshkeys will prompt for your master password", env),
		}
	}
	return CheckResult{
		Name:    "1Password session",
		Status:  CheckPass,
		Message: fmt.Sprintf("%s is set", env),
	}
}

func checkFingerprint(settings *configs.Settings) CheckResult {
	if settings.Keychain.Fingerprint == "" {
		return CheckResult{
			Name:       "GPG key",
			Status:     CheckWarning,
			Message:    "No GPG key fingerprint configured, keychain will only load " + settings.Keychain.KeyFile,
			Suggestion: "Set keychain.fingerprint in your config file",
		}
	}
	return CheckResult{
		Name:    "GPG key",
		Status:  CheckPass,
		Message: fmt.Sprintf("GPG key %s, SSH key %s", settings.Keychain.Fingerprint, settings.Keychain.KeyFile),
	}
}

func checkSSHAgent(socket string) CheckResult {
	identities, err := agent.ListSSHIdentities(socket)
	if err != nil {
		return CheckResult{
			Name:       "ssh-agent",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("ssh-agent is not reachable: %v", err),
			Suggestion: "Run 'eval \"$(refreshkeys --eval)\"' in your shell profile",
		}
	}
	if len(identities) == 0 {
		return CheckResult{
			Name:       "ssh-agent",
			Status:     CheckWarning,
			Message:    "ssh-agent is running but holds no keys",
			Suggestion: "Run 'refreshkeys' to unlock your keys",
		}
	}
	return CheckResult{
		Name:    "ssh-agent",
		Status:  CheckPass,
		Message: fmt.Sprintf("ssh-agent holds %d key(s)", len(identities)),
	}
}

func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
