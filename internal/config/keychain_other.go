//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// secretStore stands in for the macOS Keychain: a 0600 JSON file mapping
// service -> account -> secret under the fuse data directory.
type secretStore struct {
	path string
}

func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

func platformSecrets() secretStore {
	return secretStore{path: secretsFilePath()}
}

func (s secretStore) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	secrets := map[string]map[string]string{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", s.path, err)
	}
	return secrets, nil
}

// write replaces the file through a rename so a crash never leaves a
// truncated secrets file behind.
func (s secretStore) write(secrets map[string]map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding secrets: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing secrets file: %w", err)
	}
	return nil
}

func keychainGet(service, account string) ([]byte, error) {
	secrets, err := platformSecrets().read()
	if err != nil {
		return nil, err
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", errSecretNotFound, service, account)
	}
	return []byte(val), nil
}

// keychainSet refuses to touch an unreadable secrets file rather than
// replacing the secrets it could not parse.
func keychainSet(service, account, value string) error {
	store := platformSecrets()
	secrets, err := store.read()
	if err != nil {
		return err
	}
	if secrets[service] == nil {
		secrets[service] = map[string]string{}
	}
	secrets[service][account] = value
	return store.write(secrets)
}
