// Package keyring stores management API secrets in the OS keyring.
package keyring

import (
	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"

	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.SecretStore = (*Store)(nil)

// DefaultService is the keyring service name secrets are filed under.
const DefaultService = "authflow"

// Store is a driven.SecretStore backed by the OS keyring.
// Each secret is one keyring entry: service = the store's service, user = secret name.
type Store struct {
	service string
}

// NewStore creates a keyring store. An empty service uses DefaultService.
func NewStore(service string) *Store {
	if service == "" {
		service = DefaultService
	}
	return &Store{service: service}
}

// Available reports whether the OS keyring can be reached.
func (s *Store) Available() bool {
	_, err := keyring.Get(s.service, driven.SecretManagementKey)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	logger.Warn("keyring is not accessible: %v", err)
	return false
}

// Get returns the secret, or an empty string if it is not set.
func (s *Store) Get(name string) (string, error) {
	value, err := keyring.Get(s.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to load %s from system keyring", name)
	}
	return value, nil
}

// Set stores the secret.
func (s *Store) Set(name, value string) error {
	if err := keyring.Set(s.service, name, value); err != nil {
		return errors.Wrapf(err, "failed to save %s to system keyring", name)
	}
	logger.Debug("saved %s to system keyring (service %s)", name, s.service)
	return nil
}

// Delete removes the secret. Deleting a missing secret is not an error.
func (s *Store) Delete(name string) error {
	if err := keyring.Delete(s.service, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return errors.Wrapf(err, "failed to delete %s from system keyring", name)
	}
	return nil
}
