package onepassword

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/pricheal/refreshkeys/internal/errors"
)

// Account is one entry of the op CLI config file.
type Account struct {
	Shorthand string `json:"shorthand"`
	URL       string `json:"url"`
	Email     string `json:"email"`
	UserUUID  string `json:"userUUID"`
}

type opConfig struct {
	LatestSignin string    `json:"latest_signin"`
	Accounts     []Account `json:"accounts"`
}

// ConfigPaths lists the op config file locations in lookup order.
func (c *Client) ConfigPaths() []string {
	if c.OPConfigPaths != nil {
		return c.OPConfigPaths
	}

	var paths []string
	if dir := c.getenv("OP_CONFIG_DIR"); dir != "" {
		paths = append(paths, filepath.Join(dir, "config"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".op", "config"))
		xdg := c.getenv("XDG_CONFIG_HOME")
		if xdg == "" {
			xdg = filepath.Join(home, ".config")
		}
		paths = append(paths, filepath.Join(xdg, "op", "config"))
	}
	return paths
}

// LookupAccount finds the configured account in the first op config file
// that exists, matching on sign-in address and email.
func (c *Client) LookupAccount() (Account, error) {
	want := c.Settings.Account
	if want.Email == "" {
		return Account{}, fmt.Errorf("account.email is not configured: %w", kerrors.ErrAccountNotFound)
	}

	for _, path := range c.ConfigPaths() {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Account{}, fmt.Errorf("reading %s: %w: %w", path, kerrors.ErrAccountNotFound, err)
		}

		var config opConfig
		if err := json.Unmarshal(data, &config); err != nil {
			return Account{}, fmt.Errorf("parsing %s: %w: %w", path, kerrors.ErrAccountNotFound, err)
		}

		for _, account := range config.Accounts {
			if account.URL == want.Address && account.Email == want.Email {
				c.Logger.Debugf("Found account %s in %s", account.Shorthand, path)
				if account.Shorthand == "" {
					account.Shorthand = want.Shorthand
				}
				return account, nil
			}
		}
		return Account{}, fmt.Errorf("%s at %s is not registered in %s: %w", want.Email, want.Address, path, kerrors.ErrAccountNotFound)
	}

	return Account{}, fmt.Errorf("no op config file found: %w", kerrors.ErrAccountNotFound)
}
