package agent

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	sshagent "golang.org/x/crypto/ssh/agent"
)

// Identity is a key currently held by ssh-agent.
type Identity struct {
	Type        string `json:"type"`
	Fingerprint string `json:"fingerprint"`
	Comment     string `json:"comment"`
}

// ListSSHIdentities asks the ssh-agent listening on socket for its keys. An
// empty socket means $SSH_AUTH_SOCK.
func ListSSHIdentities(socket string) ([]Identity, error) {
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("connecting to ssh-agent: %w", err)
	}
	defer conn.Close()

	keys, err := sshagent.NewClient(conn).List()
	if err != nil {
		return nil, fmt.Errorf("listing ssh-agent keys: %w", err)
	}

	identities := make([]Identity, 0, len(keys))
	for _, key := range keys {
		identities = append(identities, Identity{
			Type:        key.Type(),
			Fingerprint: ssh.FingerprintSHA256(key),
			Comment:     key.Comment,
		})
	}
	return identities, nil
}
