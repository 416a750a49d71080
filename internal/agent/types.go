package agent

import "context"

// CredentialPair holds the two key passphrases. It is never persisted.
type CredentialPair struct {
	SSH string
	GPG string
}

// CredentialSource produces the passphrases on demand.
type CredentialSource interface {
	Credentials(ctx context.Context) (CredentialPair, error)
}

// CredentialSourceFunc adapts a function to CredentialSource.
type CredentialSourceFunc func(ctx context.Context) (CredentialPair, error)

func (f CredentialSourceFunc) Credentials(ctx context.Context) (CredentialPair, error) {
	return f(ctx)
}

// PromptOutcome is what a single wait on keychain's output produced.
type PromptOutcome int

const (
	SSHPromptSeen PromptOutcome = iota
	GPGPromptSeen
	StreamEnded
)

func (o PromptOutcome) String() string {
	switch o {
	case SSHPromptSeen:
		return "ssh prompt"
	case GPGPromptSeen:
		return "gpg prompt"
	case StreamEnded:
		return "end of stream"
	default:
		return "unknown"
	}
}

// State is the driver's position in the prompt sequence.
type State int

const (
	WaitingSSH State = iota
	WaitingGPG
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case WaitingSSH:
		return "waiting-ssh"
	case WaitingGPG:
		return "waiting-gpg"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// lazyCredentials memoizes the first successful fetch from source.
type lazyCredentials struct {
	source  CredentialSource
	pair    *CredentialPair
	fetches int
}

func (l *lazyCredentials) get(ctx context.Context) (CredentialPair, error) {
	if l.pair != nil {
		return *l.pair, nil
	}
	l.fetches++
	pair, err := l.source.Credentials(ctx)
	if err != nil {
		return CredentialPair{}, err
	}
	l.pair = &pair
	return pair, nil
}
