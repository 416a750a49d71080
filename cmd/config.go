package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pricheal/refreshkeys/internal/configs"
	"github.com/pricheal/refreshkeys/internal/ui"
	"github.com/pricheal/refreshkeys/internal/utils"

	"github.com/spf13/cobra"
)

var (
	initEmail       string
	initKeyFile     string
	initFingerprint string
	initTimeout     int
	initForce       bool
)

func resetConfigCommandState() {
	initEmail = ""
	initKeyFile = ""
	initFingerprint = ""
	initTimeout = 0
	initForce = false
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the refreshkeys configuration file",
		Long: `Creates and shows the refreshkeys configuration.

Examples:
  # Create a config for your account
  refreshkeys config init --email me@example.com --fingerprint 2A70B83FD3493624

  # Show the effective settings
  refreshkeys config show`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with your account and key details",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().StringVar(&initEmail, "email", "", "1Password account email (required)")
	initCmd.Flags().StringVar(&initKeyFile, "key-file", "", "SSH key file name passed to keychain")
	initCmd.Flags().StringVar(&initFingerprint, "fingerprint", "", "GPG key fingerprint passed to keychain")
	initCmd.Flags().IntVar(&initTimeout, "timeout", 0, "agent key lifetime in minutes")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as TOML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if !utils.IsValidEmail(initEmail) {
		return fmt.Errorf("--email must be a valid email address, got %q", initEmail)
	}

	path := configPath
	if path == "" {
		var err error
		if path, err = configs.DefaultPath(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists, use --force to overwrite it", path)
	}

	settings := configs.Default()
	settings.Account.Email = initEmail
	if initKeyFile != "" {
		settings.Keychain.KeyFile = initKeyFile
	}
	if initFingerprint != "" {
		settings.Keychain.Fingerprint = initFingerprint
	}
	if initTimeout != 0 {
		settings.Keychain.TimeoutMinutes = initTimeout
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	Logger.Infof("Writing config to %s", path)
	if err := configs.Save(path, settings); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", ui.Success.Sprint("✓"), ui.Path.Sprint(path))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(settings)
}
