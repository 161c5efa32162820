package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/deploykit/internal/shell"
)

// stubRunner records the command lines it receives and fakes ssh-keygen by
// dropping key files where the real tool would.
type stubRunner struct {
	store    *Store
	keyname  string
	commands []string
	err      error
}

func (r *stubRunner) Run(_ context.Context, command string, _ ...shell.RunOption) ([]byte, error) {
	r.commands = append(r.commands, command)
	if r.err != nil {
		return nil, r.err
	}
	if err := os.WriteFile(r.store.PrivateKeyPath(r.keyname), []byte("private key material"), 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(r.store.PublicKeyPath(r.keyname), []byte("ssh-rsa AAAA fake"), 0644); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestGenerateRSAKey(t *testing.T) {
	s := newTestStore(t)
	runner := &stubRunner{store: s, keyname: "boo"}

	pub, priv, err := s.GenerateRSAKey(context.Background(), runner, "boo")
	require.NoError(t, err)
	assert.Equal(t, s.PublicKeyPath("boo"), pub)
	assert.Equal(t, s.PrivateKeyPath("boo"), priv)

	require.Len(t, runner.commands, 1)
	assert.Contains(t, runner.commands[0], "ssh-keygen -t rsa")
	assert.Contains(t, runner.commands[0], priv)

	for _, path := range []string{pub, priv, s.SSHKeyPath("boo")} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), path)
	}

	sshCopy, err := os.ReadFile(s.SSHKeyPath("boo"))
	require.NoError(t, err)
	assert.Equal(t, "private key material", string(sshCopy))
}

func TestGenerateRSAKey_ReplacesStalePair(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.PrivateKeyPath("boo"), []byte("stale"), 0600))
	require.NoError(t, os.WriteFile(s.PublicKeyPath("boo"), []byte("stale"), 0600))

	runner := &stubRunner{store: s, keyname: "boo"}
	_, priv, err := s.GenerateRSAKey(context.Background(), runner, "boo")
	require.NoError(t, err)

	data, err := os.ReadFile(priv)
	require.NoError(t, err)
	assert.Equal(t, "private key material", string(data))
}

func TestGenerateRSAKey_CommandFailure(t *testing.T) {
	s := newTestStore(t)
	cmdErr := &shell.CommandError{Command: "ssh-keygen", Output: []byte("boom")}
	runner := &stubRunner{store: s, keyname: "boo", err: cmdErr}

	_, _, err := s.GenerateRSAKey(context.Background(), runner, "boo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cmdErr))
}

func TestWriteKeyFile(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "boo.key")

	require.NoError(t, s.WriteKeyFile(path, []byte("key material")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "key material", string(data))
}

func TestWriteKeyFile_TightensExistingPermissions(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "boo.key")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	require.NoError(t, s.WriteKeyFile(path, []byte("new")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
