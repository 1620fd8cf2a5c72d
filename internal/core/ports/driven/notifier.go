package driven

import "github.com/custodia-labs/authflow/internal/core/domain"

// FlowNotifier receives exactly one terminal notification per flow.
// Implementations must not block for long; they are called from the flow's
// teardown path after all resources are released.
type FlowNotifier interface {
	// OnSuccess reports that the credential was acquired.
	OnSuccess(provider domain.ProviderType)

	// OnError reports a failure with a human-readable reason.
	OnError(provider domain.ProviderType, reason string)

	// OnCanceled reports a user cancellation. It is never reported as an error.
	OnCanceled(provider domain.ProviderType)
}
