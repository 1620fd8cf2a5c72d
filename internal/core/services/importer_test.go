package services

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

func TestCredentialImporter_IFlowCookie(t *testing.T) {
	api := &mockManagementAPI{importResult: domain.ImportResult{Status: "ok", Email: "me@example.com"}}
	s := NewCredentialImporter(localConnections(), api)

	got, err := s.ImportIFlowCookie(context.Background(), domain.IFlowCookie{Cookie: "  BXAuth=abc \n"})

	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)
	assert.Equal(t, []any{domain.IFlowCookie{Cookie: "BXAuth=abc"}}, api.imports())
	assert.Equal(t, "key", api.lastConn.ManagementKey)
}

func TestCredentialImporter_EmptyCookieSendsNothing(t *testing.T) {
	api := &mockManagementAPI{}
	conns := localConnections()
	s := NewCredentialImporter(conns, api)

	_, err := s.ImportIFlowCookie(context.Background(), domain.IFlowCookie{Cookie: "   "})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	assert.Empty(t, api.imports())
	assert.Zero(t, conns.calls)
}

func TestCredentialImporter_GeminiWebTokens(t *testing.T) {
	api := &mockManagementAPI{importResult: domain.ImportResult{Status: "ok"}}
	s := NewCredentialImporter(localConnections(), api)

	_, err := s.ImportGeminiWebTokens(context.Background(), domain.GeminiWebTokens{
		Secure1PSID: " psid ", Secure1PSIDTS: "psidts", Email: "me@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, []any{domain.GeminiWebTokens{
		Secure1PSID: "psid", Secure1PSIDTS: "psidts", Email: "me@example.com",
	}}, api.imports())
}

func TestCredentialImporter_GeminiWebTokensMissingField(t *testing.T) {
	api := &mockManagementAPI{}
	s := NewCredentialImporter(localConnections(), api)

	_, err := s.ImportGeminiWebTokens(context.Background(), domain.GeminiWebTokens{Secure1PSID: "psid"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	assert.Empty(t, api.imports())
}

func TestCredentialImporter_VertexDefaultsLocation(t *testing.T) {
	api := &mockManagementAPI{importResult: domain.ImportResult{Status: "ok", ProjectID: "p1"}}
	s := NewCredentialImporter(localConnections(), api)

	got, err := s.ImportVertexCredential(context.Background(), domain.VertexCredential{
		FileName:       "sa.json",
		ServiceAccount: []byte(`{"project_id":"p1"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, domain.DefaultVertexLocation, got.Location)
	imports := api.imports()
	require.Len(t, imports, 1)
	sent, ok := imports[0].(domain.VertexCredential)
	require.True(t, ok)
	assert.Equal(t, domain.DefaultVertexLocation, sent.Location)
}

func TestCredentialImporter_VertexRejectsNonJSONFile(t *testing.T) {
	api := &mockManagementAPI{}
	s := NewCredentialImporter(localConnections(), api)

	_, err := s.ImportVertexCredential(context.Background(), domain.VertexCredential{
		FileName:       "sa.yaml",
		ServiceAccount: []byte(`{}`),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	assert.Empty(t, api.imports())
}

func TestCredentialImporter_RemoteWithoutPassword(t *testing.T) {
	api := &mockManagementAPI{}
	conns := &staticConnections{conn: domain.Connection{Mode: domain.ModeRemote, BaseURL: "https://m.example.com"}}
	s := NewCredentialImporter(conns, api)

	_, err := s.ImportIFlowCookie(context.Background(), domain.IFlowCookie{Cookie: "c"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Empty(t, api.imports())
}

func TestCredentialImporter_UpstreamFailure(t *testing.T) {
	upstream := errors.Mark(errors.New("failed to save iFlow cookie: 400: cookie expired"), domain.ErrUpstream)
	api := &mockManagementAPI{importErr: upstream}
	s := NewCredentialImporter(localConnections(), api)

	_, err := s.ImportIFlowCookie(context.Background(), domain.IFlowCookie{Cookie: "c"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Contains(t, err.Error(), "cookie expired")
}
