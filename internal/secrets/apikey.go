// Package secrets reads and stores the classifier API key in the OS keyring.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups jobsieve's secrets in the OS keychain.
const KeyringService = "jobsieve"

// ErrNoAPIKey is returned when neither config nor the keyring provide a key.
var ErrNoAPIKey = errors.New("AI API key not found (set ai.api_key or store it with `jobsieve secret set`)")

// ResolveAPIKey prefers an explicitly configured key, then the keyring entry
// for account.
func ResolveAPIKey(configured, account string) (string, error) {
	if k := strings.TrimSpace(configured); k != "" {
		return k, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", ErrNoAPIKey
	}
	key, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", fmt.Errorf("read keyring: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// SetAPIKey stores key under account.
func SetAPIKey(account, key string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("api key is empty")
	}
	return keyring.Set(KeyringService, account, key)
}

// DeleteAPIKey removes the key stored under account.
func DeleteAPIKey(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// DefaultAccount is the keyring account used when the config names none.
func DefaultAccount(baseURL string) string {
	return "jobsieve:ai:" + baseURL
}
