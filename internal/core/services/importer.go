package services

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/core/ports/driving"
	"github.com/custodia-labs/authflow/internal/logger"
)

// Ensure CredentialImporter implements the interface.
var _ driving.CredentialImportService = (*CredentialImporter)(nil)

// CredentialImporter sends pasted or uploaded credentials to the management API.
type CredentialImporter struct {
	connections ConnectionSource
	api         driven.ManagementAPI
}

// NewCredentialImporter creates a new credential importer.
func NewCredentialImporter(connections ConnectionSource, api driven.ManagementAPI) *CredentialImporter {
	return &CredentialImporter{
		connections: connections,
		api:         api,
	}
}

// ImportIFlowCookie saves an iFlow credential from a browser cookie.
func (s *CredentialImporter) ImportIFlowCookie(
	ctx context.Context,
	cookie domain.IFlowCookie,
) (domain.ImportResult, error) {
	cookie, err := cookie.Normalize()
	if err != nil {
		return domain.ImportResult{}, err
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return domain.ImportResult{}, err
	}
	result, err := s.api.SaveIFlowCookie(ctx, conn, cookie)
	if err != nil {
		return domain.ImportResult{}, errors.Wrap(err, "import iFlow cookie")
	}
	logger.Debug("imported iFlow cookie for %q", result.Email)
	return result, nil
}

// ImportGeminiWebTokens saves Gemini web session tokens.
func (s *CredentialImporter) ImportGeminiWebTokens(
	ctx context.Context,
	tokens domain.GeminiWebTokens,
) (domain.ImportResult, error) {
	tokens, err := tokens.Normalize()
	if err != nil {
		return domain.ImportResult{}, err
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return domain.ImportResult{}, err
	}
	result, err := s.api.SaveGeminiWebTokens(ctx, conn, tokens)
	if err != nil {
		return domain.ImportResult{}, errors.Wrap(err, "import Gemini Web tokens")
	}
	logger.Debug("imported Gemini Web tokens for %q", tokens.Email)
	return result, nil
}

// ImportVertexCredential uploads a service account key for Vertex.
func (s *CredentialImporter) ImportVertexCredential(
	ctx context.Context,
	cred domain.VertexCredential,
) (domain.ImportResult, error) {
	cred, err := cred.Normalize()
	if err != nil {
		return domain.ImportResult{}, err
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return domain.ImportResult{}, err
	}
	result, err := s.api.ImportVertexCredential(ctx, conn, cred)
	if err != nil {
		return domain.ImportResult{}, errors.Wrap(err, "import Vertex credential")
	}
	if result.Location == "" {
		result.Location = cred.Location
	}
	logger.Debug("imported Vertex credential %s (%s)", cred.FileName, result.Location)
	return result, nil
}

// connection returns the current connection, rejecting one without the
// credential its mode requires.
func (s *CredentialImporter) connection(ctx context.Context) (domain.Connection, error) {
	conn, err := s.connections.Connection(ctx)
	if err != nil {
		return domain.Connection{}, err
	}
	if _, err := conn.Credential(); err != nil {
		return domain.Connection{}, err
	}
	return conn, nil
}
