package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultDirName = ".deploykit"

// Store resolves and reads per-deployment state kept in a single config
// directory. Every file belonging to a deployment is derived from its
// keyname, the opaque identifier that names one deployment instance.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(logger zerolog.Logger, dir string) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "state-store").Logger(),
	}
}

// DefaultDir returns the default config directory (~/.deploykit).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// Dir returns the config directory this store reads from.
func (s *Store) Dir() string { return s.dir }

// EnsureDir creates the config directory if needed.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return nil
}

// PrivateKeyPath returns where the deployment's RSA private key lives.
func (s *Store) PrivateKeyPath(keyname string) string {
	return filepath.Join(s.dir, keyname)
}

// PublicKeyPath returns where the deployment's RSA public key lives.
func (s *Store) PublicKeyPath(keyname string) string {
	return s.PrivateKeyPath(keyname) + ".pub"
}

// SSHKeyPath returns the copy of the private key handed to ssh invocations.
func (s *Store) SSHKeyPath(keyname string) string {
	return filepath.Join(s.dir, keyname+".key")
}

// ClientSecretsPath returns where the GCE client secrets JSON file lives.
func (s *Store) ClientSecretsPath(keyname string) string {
	return filepath.Join(s.dir, keyname+"-secrets.json")
}

// OAuth2StoragePath returns where cached OAuth2 credentials live.
func (s *Store) OAuth2StoragePath(keyname string) string {
	return filepath.Join(s.dir, keyname+"-oauth2.dat")
}

// LocationsJSONPath returns where the deployment's locations document lives.
func (s *Store) LocationsJSONPath(keyname string) string {
	return filepath.Join(s.dir, fmt.Sprintf("locations-%s.json", keyname))
}

// LocationsYAMLPath returns where the legacy infrastructure-info YAML file
// lives. Only present on deployments that have not been migrated yet.
func (s *Store) LocationsYAMLPath(keyname string) string {
	return filepath.Join(s.dir, fmt.Sprintf("locations-%s.yaml", keyname))
}

// RandomKeyname generates a fresh deployment identifier for callers that do
// not supply one.
func RandomKeyname() string {
	return "deploykit-" + uuid.NewString()
}
