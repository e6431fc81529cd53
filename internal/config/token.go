package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	keychainService    = "fuse"
	apiTokenAccount    = "api_token"
	databaseURLAccount = "database_url"
)

// errSecretNotFound reports that the secret store has no item for the
// requested service and account.
var errSecretNotFound = errors.New("secret not found")

// Keychain reads and writes secrets in the platform secret store.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

type platformKeychain struct {
	keychainReader
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// NewKeychain returns the platform secret store: macOS Keychain on darwin,
// a 0600 JSON file under the XDG data directory elsewhere.
func NewKeychain() Keychain {
	return platformKeychain{}
}

// GetAPIToken returns the bearer token guarding the HTTP API, generating
// and storing one on first use. A secret store that exists but cannot be
// read is an error; minting a new token then would lock out every client
// holding the old one.
func GetAPIToken(kc Keychain) (string, error) {
	tok, err := kc.Get(keychainService, apiTokenAccount)
	switch {
	case err == nil && tok != "":
		return tok, nil
	case err != nil && !errors.Is(err, errSecretNotFound):
		return "", fmt.Errorf("reading API token: %w", err)
	}
	return RotateAPIToken(kc)
}

// RotateAPIToken replaces the stored bearer token with a fresh random one.
// A running server keeps the token it started with until restarted.
func RotateAPIToken(kc Keychain) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := kc.Set(keychainService, apiTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
