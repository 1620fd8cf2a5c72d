package memory

import (
	"sync"

	"github.com/custodia-labs/authflow/internal/core/ports/driven"
)

// Ensure SecretStore implements the interface.
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore is an in-memory implementation of driven.SecretStore.
// It backs tests and sessions where no OS keyring is available.
type SecretStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewSecretStore creates a new in-memory secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{
		secrets: make(map[string]string),
	}
}

// Get returns the secret, or an empty string if it is not set.
func (s *SecretStore) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secrets[name], nil
}

// Set stores the secret.
func (s *SecretStore) Set(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
	return nil
}

// Delete removes the secret.
func (s *SecretStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, name)
	return nil
}
