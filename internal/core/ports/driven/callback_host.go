package driven

import (
	"context"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

// CallbackHost binds the local endpoint a provider redirects the browser to.
// A port is held by at most one binding at a time across the process.
type CallbackHost interface {
	// Start binds the listener described by binding.
	// Returns an error marked domain.ErrResourceBusy if the port is taken and
	// domain.ErrConfiguration if the redirect target cannot be computed.
	Start(ctx context.Context, binding domain.CallbackBinding) error

	// Stop releases the listener on port. Stopping an unbound port is a no-op.
	Stop(port int) error
}
