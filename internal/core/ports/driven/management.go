package driven

import (
	"context"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

// ManagementAPI is the backend that runs the provider exchange and stores the
// resulting credential. Every call authenticates with the connection's
// mode-dependent credential.
type ManagementAPI interface {
	// GetAuthURL asks for a consent URL and its correlation state.
	// Returns an error marked domain.ErrUpstream on a non-success status and
	// domain.ErrProtocol on an undecodable body.
	GetAuthURL(ctx context.Context, conn domain.Connection, provider domain.Provider) (domain.AuthURL, error)

	// GetAuthStatus reports the status of the flow bound to state.
	// The request is aborted when ctx is canceled.
	GetAuthStatus(ctx context.Context, conn domain.Connection, state string) (domain.AuthStatus, error)

	// ListAuthFiles returns the credential files known to the management API.
	ListAuthFiles(ctx context.Context, conn domain.Connection) ([]domain.AuthFile, error)

	// SaveIFlowCookie stores an iFlow credential derived from a browser cookie.
	SaveIFlowCookie(ctx context.Context, conn domain.Connection, cookie domain.IFlowCookie) (domain.ImportResult, error)

	// SaveGeminiWebTokens stores Gemini web session tokens.
	SaveGeminiWebTokens(ctx context.Context, conn domain.Connection, tokens domain.GeminiWebTokens) (domain.ImportResult, error)

	// ImportVertexCredential uploads a service account key for Vertex.
	ImportVertexCredential(ctx context.Context, conn domain.Connection, cred domain.VertexCredential) (domain.ImportResult, error)
}
