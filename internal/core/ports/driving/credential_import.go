package driving

import (
	"context"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

// CredentialImportService stores credentials the user already holds, without
// a browser consent flow. Inputs are validated before any request is sent;
// invalid ones are marked domain.ErrInvalidCredential.
type CredentialImportService interface {
	// ImportIFlowCookie saves an iFlow credential from a browser cookie.
	ImportIFlowCookie(ctx context.Context, cookie domain.IFlowCookie) (domain.ImportResult, error)

	// ImportGeminiWebTokens saves Gemini web session tokens.
	ImportGeminiWebTokens(ctx context.Context, tokens domain.GeminiWebTokens) (domain.ImportResult, error)

	// ImportVertexCredential uploads a service account key for Vertex.
	// An empty location means domain.DefaultVertexLocation.
	ImportVertexCredential(ctx context.Context, cred domain.VertexCredential) (domain.ImportResult, error)
}
