package onepassword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pricheal/refreshkeys/internal/agent"
	"github.com/pricheal/refreshkeys/internal/configs"
	kerrors "github.com/pricheal/refreshkeys/internal/errors"
	logger "github.com/pricheal/refreshkeys/internal/logging"
	"github.com/pricheal/refreshkeys/internal/utils"
)

// DefaultProgram is the 1Password CLI binary.
const DefaultProgram = "op"

// Client talks to 1Password through op.
type Client struct {
	Runner   Runner
	Settings *configs.Settings
	Logger   logger.Logger

	// Program defaults to DefaultProgram.
	Program string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Interactive reports whether a terminal is available for op signin.
	// Defaults to utils.IsInteractive.
	Interactive func() bool
	// OPConfigPaths overrides ConfigPaths.
	OPConfigPaths []string
}

// NewClient returns a Client that runs the real op binary.
func NewClient(settings *configs.Settings, log logger.Logger) *Client {
	return &Client{
		Runner:   ExecRunner{},
		Settings: settings,
		Logger:   log,
	}
}

func (c *Client) program() string {
	if c.Program != "" {
		return c.Program
	}
	return DefaultProgram
}

func (c *Client) getenv(key string) string {
	if c.Getenv != nil {
		return c.Getenv(key)
	}
	return os.Getenv(key)
}

func (c *Client) interactive() bool {
	if c.Interactive != nil {
		return c.Interactive()
	}
	return utils.IsInteractive()
}

// SessionEnv is the variable op reads a session token from for shorthand.
func SessionEnv(shorthand string) string {
	return "OP_SESSION_" + shorthand
}

// TryCachedSession returns the token in OP_SESSION_<shorthand> if op still
// accepts it. Any failure means there is no usable cached session.
func (c *Client) TryCachedSession(ctx context.Context, account Account) (string, bool) {
	token := strings.TrimSpace(c.getenv(SessionEnv(account.Shorthand)))
	if token == "" {
		c.Logger.Debugf("No cached session in %s", SessionEnv(account.Shorthand))
		return "", false
	}
	if _, err := c.Runner.Output(ctx, c.program(), "get", "account", "--session", token); err != nil {
		c.Logger.Debugf("Cached session rejected: %v", err)
		return "", false
	}
	return token, true
}

// InteractiveSignIn runs op signin with the user's terminal and returns the
// raw session token it prints.
func (c *Client) InteractiveSignIn(ctx context.Context, account Account) (string, error) {
	if !c.interactive() {
		return "", fmt.Errorf("op signin needs a terminal: %w", kerrors.ErrAuthenticationFailed)
	}

	c.Logger.Infof("Signing in to %s as %s", account.URL, account.Email)
	out, err := c.Runner.Interactive(ctx, c.program(), "signin", account.Shorthand, "--raw")
	if err != nil {
		return "", fmt.Errorf("op signin: %w: %w", kerrors.ErrAuthenticationFailed, err)
	}

	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("op signin returned no session token: %w", kerrors.ErrAuthenticationFailed)
	}
	return token, nil
}

// EnsureAuthenticated returns a session token for the configured account,
// signing in interactively when no cached session works.
func (c *Client) EnsureAuthenticated(ctx context.Context) (string, error) {
	account, err := c.LookupAccount()
	if err != nil {
		return "", err
	}

	if token, ok := c.TryCachedSession(ctx, account); ok {
		c.Logger.Infof("Reusing cached 1Password session")
		return token, nil
	}

	return c.InteractiveSignIn(ctx, account)
}

// Credentials authenticates and fetches the passphrase pair. It satisfies
// agent.CredentialSource.
func (c *Client) Credentials(ctx context.Context) (agent.CredentialPair, error) {
	token, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return agent.CredentialPair{}, err
	}
	return c.FetchCredentialPair(ctx, token)
}
