package state

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/edvin/deploykit/internal/shell"
)

// CommandRunner runs a shell command line and returns its combined output.
// Satisfied by *shell.Runner.
type CommandRunner interface {
	Run(ctx context.Context, command string, opts ...shell.RunOption) ([]byte, error)
}

// WriteKeyFile writes key material to path, readable by the owner only.
func (s *Store) WriteKeyFile(path string, contents []byte) error {
	if err := os.WriteFile(path, contents, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	// WriteFile only applies the mode on create; tighten pre-existing files too.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("chmod key file: %w", err)
	}
	return nil
}

// GenerateRSAKey generates a fresh RSA keypair for the deployment by shelling
// out to ssh-keygen, replacing any stale pair under the same keyname. The
// private key is additionally copied to the .key path used for ssh
// invocations. Returns the public and private key paths.
func (s *Store) GenerateRSAKey(ctx context.Context, runner CommandRunner, keyname string) (pubPath, privPath string, err error) {
	privPath = s.PrivateKeyPath(keyname)
	pubPath = s.PublicKeyPath(keyname)

	for _, path := range []string{pubPath, privPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", "", fmt.Errorf("remove stale key %s: %w", path, err)
		}
	}

	command := fmt.Sprintf("ssh-keygen -t rsa -N '' -f %s", privPath)
	if _, err := runner.Run(ctx, command); err != nil {
		return "", "", err
	}

	// ssh-keygen creates the public key world-readable.
	for _, path := range []string{pubPath, privPath} {
		if err := os.Chmod(path, 0600); err != nil {
			return "", "", fmt.Errorf("chmod %s: %w", path, err)
		}
	}

	privData, err := os.ReadFile(privPath)
	if err != nil {
		return "", "", fmt.Errorf("read private key: %w", err)
	}
	if err := s.WriteKeyFile(s.SSHKeyPath(keyname), privData); err != nil {
		return "", "", err
	}

	if pubData, err := os.ReadFile(pubPath); err == nil {
		if key, _, _, _, err := ssh.ParseAuthorizedKey(pubData); err == nil {
			s.logger.Debug().
				Str("keyname", keyname).
				Str("fingerprint", ssh.FingerprintSHA256(key)).
				Msg("generated RSA keypair")
		}
	}

	return pubPath, privPath, nil
}
