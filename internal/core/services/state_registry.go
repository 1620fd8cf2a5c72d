package services

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

// StateRegistry tracks correlation states issued to this process.
// A state is live while its flow runs and consumed once the flow ends;
// a consumed state is never accepted again.
type StateRegistry struct {
	mu       sync.Mutex
	live     map[string]domain.ProviderType
	consumed map[string]struct{}
}

// NewStateRegistry creates an empty registry.
func NewStateRegistry() *StateRegistry {
	return &StateRegistry{
		live:     make(map[string]domain.ProviderType),
		consumed: make(map[string]struct{}),
	}
}

// Claim registers state for provider. It fails with domain.ErrProtocol if the
// state is empty, already live for another flow, or already consumed.
func (r *StateRegistry) Claim(provider domain.ProviderType, state string) error {
	if state == "" {
		return errors.Mark(errors.New("no valid authentication state received"), domain.ErrProtocol)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, used := r.consumed[state]; used {
		return errors.Mark(errors.Newf("authentication state %q was already used", state), domain.ErrProtocol)
	}
	if owner, ok := r.live[state]; ok {
		return errors.Mark(errors.Newf("authentication state %q is in use by %s", state, owner), domain.ErrProtocol)
	}
	r.live[state] = provider
	return nil
}

// Consume retires state. Consuming an unknown or empty state is a no-op.
func (r *StateRegistry) Consume(state string) {
	if state == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.live, state)
	r.consumed[state] = struct{}{}
}

// IsLive reports whether state belongs to a running flow.
func (r *StateRegistry) IsLive(state string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.live[state]
	return ok
}
