package configs

import (
	"fmt"
	"regexp"
	"strings"
)

// Settings describes the single account and key pair refreshkeys manages.
type Settings struct {
	Account   AccountSettings   `toml:"account"`
	Documents DocumentSettings  `toml:"documents"`
	Keychain  KeychainSettings  `toml:"keychain"`
	Preflight PreflightSettings `toml:"preflight"`
	History   HistorySettings   `toml:"history"`
}

// AccountSettings identifies the 1Password account in the op CLI config.
type AccountSettings struct {
	Address   string `toml:"address"`
	Email     string `toml:"email"`
	Shorthand string `toml:"shorthand"`
}

// DocumentSettings names the 1Password documents holding the passphrases.
type DocumentSettings struct {
	SSHTitle        string `toml:"ssh_title"`
	GPGTitle        string `toml:"gpg_title"`
	PassphraseLabel string `toml:"passphrase_label"`
}

// KeychainSettings configures the keychain invocation and the prompts it emits.
type KeychainSettings struct {
	KeyFile        string `toml:"key_file"`
	Fingerprint    string `toml:"fingerprint"`
	TimeoutMinutes int    `toml:"timeout_minutes"`
	SSHPrompt      string `toml:"ssh_prompt"`
	GPGPrompt      string `toml:"gpg_prompt"`
}

type PreflightSettings struct {
	RequiredTools []string `toml:"required_tools"`
}

// HistorySettings controls the local record of refresh runs. An empty Path
// means $XDG_STATE_HOME/refreshkeys/history.jsonl.
type HistorySettings struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the settings used when no config file overrides them.
func Default() *Settings {
	return &Settings{
		Account: AccountSettings{
			Address:   "https://my.1password.com",
			Shorthand: "my",
		},
		Documents: DocumentSettings{
			SSHTitle:        "SSH private key",
			GPGTitle:        "GPG private key",
			PassphraseLabel: "passphrase",
		},
		Keychain: KeychainSettings{
			KeyFile:        "id_rsa",
			TimeoutMinutes: 1440,
			SSHPrompt:      "Enter passphrase for",
			GPGPrompt:      "Please enter the passphrase",
		},
		Preflight: PreflightSettings{
			RequiredTools: []string{"op", "keychain"},
		},
	}
}

// Validate reports the first setting that cannot work.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Account.Address) == "" {
		return fmt.Errorf("account.address must be set")
	}
	if strings.TrimSpace(s.Account.Shorthand) == "" {
		return fmt.Errorf("account.shorthand must be set")
	}
	if s.Documents.SSHTitle == "" || s.Documents.GPGTitle == "" {
		return fmt.Errorf("documents.ssh_title and documents.gpg_title must be set")
	}
	if s.Documents.PassphraseLabel == "" {
		return fmt.Errorf("documents.passphrase_label must be set")
	}
	if strings.TrimSpace(s.Keychain.KeyFile) == "" {
		return fmt.Errorf("keychain.key_file must be set")
	}
	if s.Keychain.TimeoutMinutes <= 0 {
		return fmt.Errorf("keychain.timeout_minutes must be positive, got %d", s.Keychain.TimeoutMinutes)
	}
	for name, pattern := range map[string]string{
		"keychain.ssh_prompt": s.Keychain.SSHPrompt,
		"keychain.gpg_prompt": s.Keychain.GPGPrompt,
	} {
		if pattern == "" {
			return fmt.Errorf("%s must be set", name)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%s is not a valid pattern: %w", name, err)
		}
	}
	return nil
}
