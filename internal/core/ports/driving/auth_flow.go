package driving

import (
	"context"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

// AuthFlowService runs browser consent flows that acquire provider credentials.
type AuthFlowService interface {
	// Start binds the callback listener, resolves the consent URL and starts
	// polling. It returns once the flow is awaiting the user; the outcome is
	// delivered through the FlowNotifier. Returns an error marked
	// domain.ErrResourceBusy if a flow for the provider is already active.
	Start(ctx context.Context, provider domain.ProviderType) (*domain.FlowSession, error)

	// Cancel cancels every active flow. Always safe to call.
	Cancel()

	// CancelProvider cancels the active flow for provider, if any.
	CancelProvider(provider domain.ProviderType)

	// Active returns a snapshot of the provider's live session, or nil.
	Active(provider domain.ProviderType) *domain.FlowSession
	// Done returns a channel closed once the provider's flow has been torn
	// down and notified. It returns nil when no flow is live.
	Done(provider domain.ProviderType) <-chan struct{}
}
