package services

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/logger"
)

// AuthURLResolver obtains the consent URL and correlation state for a provider.
type AuthURLResolver struct {
	api driven.ManagementAPI
}

// NewAuthURLResolver creates a resolver over the management API.
func NewAuthURLResolver(api driven.ManagementAPI) *AuthURLResolver {
	return &AuthURLResolver{api: api}
}

// Resolve performs one auth-url exchange. Both URL and state must be non-empty.
func (r *AuthURLResolver) Resolve(
	ctx context.Context,
	conn domain.Connection,
	provider domain.Provider,
) (domain.AuthURL, error) {
	if _, err := conn.ManagementBase(); err != nil {
		return domain.AuthURL{}, err
	}
	if _, err := conn.Credential(); err != nil {
		return domain.AuthURL{}, err
	}

	result, err := r.api.GetAuthURL(ctx, conn, provider)
	if err != nil {
		return domain.AuthURL{}, err
	}

	result.URL = strings.TrimSpace(result.URL)
	result.State = strings.TrimSpace(result.State)
	if result.URL == "" {
		return domain.AuthURL{}, errors.Mark(errors.New("no valid authentication URL received"), domain.ErrProtocol)
	}
	if result.State == "" {
		return domain.AuthURL{}, errors.Mark(errors.New("no valid authentication state received"), domain.ErrProtocol)
	}

	logger.Debug("got %s auth url %s (state %s)", provider.Type, result.URL, result.State)
	return result, nil
}
