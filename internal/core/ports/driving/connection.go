package driving

import (
	"context"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

// ConnectionService reads and edits how the management API is reached.
type ConnectionService interface {
	// Connection returns the current connection, secrets included.
	Connection(ctx context.Context) (domain.Connection, error)

	// SetMode switches between local and remote mode.
	SetMode(mode domain.ConnectionMode) error

	// SetBaseURL sets the remote management base URL.
	SetBaseURL(baseURL string) error

	// SetLocalPort sets the local management API port.
	SetLocalPort(port int) error

	// SetSecret stores the local management key or remote password.
	// An empty value removes the secret.
	SetSecret(name, value string) error

	// ListAuthFiles lists credential files through the current connection.
	ListAuthFiles(ctx context.Context) ([]domain.AuthFile, error)
}
