package driven

// Secret names held by a SecretStore.
const (
	// SecretManagementKey is the local management key.
	SecretManagementKey = "local-management-key"
	// SecretRemotePassword is the remote management password.
	SecretRemotePassword = "password"
)

// SecretStore holds management API secrets outside the config file.
type SecretStore interface {
	// Get returns the secret, or an empty string if it is not set.
	Get(name string) (string, error)

	// Set stores the secret.
	Set(name, value string) error

	// Delete removes the secret. Deleting a missing secret is not an error.
	Delete(name string) error
}
