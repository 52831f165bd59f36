package secrets

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the token pair in the operating system credential store.
type KeyringStore struct {
	service string
	account string
	logger  *slog.Logger
}

// NewKeyringStore creates a store keyed by ServiceName / AccountName.
func NewKeyringStore(logger *slog.Logger) *KeyringStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyringStore{
		service: ServiceName,
		account: AccountName,
		logger:  logger,
	}
}

// Name implements Store.
func (s *KeyringStore) Name() string {
	return "keyring"
}

// IsAvailable probes the keyring with a throwaway secret.
func (s *KeyringStore) IsAvailable() bool {
	probe := s.account + "::probe"
	if err := keyring.Set(s.service, probe, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(s.service, probe)
	return true
}

// Save replaces the stored pair. A failure to remove the previous secret is
// logged and ignored; the subsequent write is authoritative.
func (s *KeyringStore) Save(pair *TokenPair) error {
	data, err := encodePair(pair)
	if err != nil {
		return err
	}

	if err := keyring.Delete(s.service, s.account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.logger.Debug("ignoring failure to delete previous secret", "backend", s.Name(), "error", err)
	}

	if err := keyring.Set(s.service, s.account, data); err != nil {
		return fmt.Errorf("failed to write token to keyring: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *KeyringStore) Load() (*TokenPair, error) {
	data, err := keyring.Get(s.service, s.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return decodePair(data)
}

// Delete implements Store.
func (s *KeyringStore) Delete() error {
	err := keyring.Delete(s.service, s.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}
