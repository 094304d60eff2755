package gitsource

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"mercator-hq/exceller/pkg/config"
)

// Auth resolves the transport credentials for clone and pull.
type Auth interface {
	// Method returns the credentials, or nil for anonymous access.
	Method() (transport.AuthMethod, error)

	// Type names the auth scheme for logs.
	Type() string
}

type tokenAuth struct {
	token string
}

func (a tokenAuth) Method() (transport.AuthMethod, error) {
	// Hosts ignore the user name for token auth.
	return &http.BasicAuth{Username: "git", Password: a.token}, nil
}

func (tokenAuth) Type() string { return "token" }

type sshAuth struct {
	keyPath    string
	passphrase string
}

func (a sshAuth) Method() (transport.AuthMethod, error) {
	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh key: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, fmt.Errorf("ssh key %s has permissions %o, want 0600", a.keyPath, perm)
	}
	keys, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("load ssh key: %w", err)
	}
	return keys, nil
}

func (sshAuth) Type() string { return "ssh" }

type anonymous struct{}

func (anonymous) Method() (transport.AuthMethod, error) { return nil, nil }

func (anonymous) Type() string { return "none" }

// NewAuth returns the Auth described by cfg.
func NewAuth(cfg config.GitAuthConfig) (Auth, error) {
	switch cfg.Type {
	case "", "none":
		return anonymous{}, nil
	case "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires a token")
		}
		return tokenAuth{token: cfg.Token}, nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		return sshAuth{keyPath: cfg.SSHKeyPath, passphrase: cfg.SSHKeyPassphrase}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}
