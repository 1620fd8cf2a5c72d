// Package management provides the HTTP client for the management API.
package management

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ManagementAPI = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// managementPrefix is the path prefix of every management endpoint.
	managementPrefix = "/v0/management/"
	// headerManagementKey carries the local management key.
	headerManagementKey = "X-Management-Key"
	// maxErrorBody bounds how much of an error body is read for its message.
	maxErrorBody = 64 << 10
)

// Config holds configuration for the management client.
type Config struct {
	// Timeout bounds a single request (default: 30s).
	Timeout time.Duration

	// Transport is the base round tripper (default: http.DefaultTransport).
	Transport http.RoundTripper
}

// Client talks to the management API over HTTP+JSON.
// The connection is passed per call, so mode changes apply immediately.
type Client struct {
	timeout time.Duration
	base    http.RoundTripper
}

// authFilesResponse is the auth-files listing format.
type authFilesResponse struct {
	Files []domain.AuthFile `json:"files"`
}

// NewClient creates a new management client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	return &Client{
		timeout: cfg.Timeout,
		base:    cfg.Transport,
	}
}

// GetAuthURL requests the consent URL and correlation state for provider.
func (c *Client) GetAuthURL(
	ctx context.Context,
	conn domain.Connection,
	provider domain.Provider,
) (domain.AuthURL, error) {
	var result domain.AuthURL
	what := fmt.Sprintf("%s authentication URL", provider.DisplayName)
	if err := c.get(ctx, conn, provider.AuthURLEndpoint(), nil, what, &result); err != nil {
		return domain.AuthURL{}, err
	}
	return result, nil
}

// GetAuthStatus requests the status of the flow identified by state.
func (c *Client) GetAuthStatus(
	ctx context.Context,
	conn domain.Connection,
	state string,
) (domain.AuthStatus, error) {
	var result domain.AuthStatus
	query := url.Values{"state": {state}}
	if err := c.get(ctx, conn, "get-auth-status", query, "authentication status", &result); err != nil {
		return domain.AuthStatus{}, err
	}
	return result, nil
}

// ListAuthFiles lists the credential files held by the management API.
func (c *Client) ListAuthFiles(ctx context.Context, conn domain.Connection) ([]domain.AuthFile, error) {
	var result authFilesResponse
	if err := c.get(ctx, conn, "auth-files", nil, "auth files", &result); err != nil {
		return nil, err
	}
	return result.Files, nil
}

// SaveIFlowCookie exchanges a pasted iFlow browser cookie for a credential.
func (c *Client) SaveIFlowCookie(
	ctx context.Context,
	conn domain.Connection,
	cookie domain.IFlowCookie,
) (domain.ImportResult, error) {
	var result domain.ImportResult
	if err := c.postJSON(ctx, conn, "iflow-auth-url", cookie, "iFlow cookie", &result); err != nil {
		return domain.ImportResult{}, err
	}
	return result, nil
}

// SaveGeminiWebTokens stores Gemini web session tokens as a credential.
func (c *Client) SaveGeminiWebTokens(
	ctx context.Context,
	conn domain.Connection,
	tokens domain.GeminiWebTokens,
) (domain.ImportResult, error) {
	var result domain.ImportResult
	if err := c.postJSON(ctx, conn, "gemini-web-token", tokens, "Gemini Web tokens", &result); err != nil {
		return domain.ImportResult{}, err
	}
	return result, nil
}

// ImportVertexCredential uploads a service account key as a multipart form
// with the fields "file" and "location".
func (c *Client) ImportVertexCredential(
	ctx context.Context,
	conn domain.Connection,
	cred domain.VertexCredential,
) (domain.ImportResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", cred.FileName)
	if err != nil {
		return domain.ImportResult{}, errors.Wrap(err, "create vertex form")
	}
	if _, err := part.Write(cred.ServiceAccount); err != nil {
		return domain.ImportResult{}, errors.Wrap(err, "write vertex form")
	}
	if err := form.WriteField("location", cred.Location); err != nil {
		return domain.ImportResult{}, errors.Wrap(err, "write vertex form")
	}
	if err := form.Close(); err != nil {
		return domain.ImportResult{}, errors.Wrap(err, "close vertex form")
	}

	req, err := c.newRequest(ctx, conn, http.MethodPost, "vertex/import", nil, &body)
	if err != nil {
		return domain.ImportResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var result domain.ImportResult
	if err := c.send(conn, req, "save", "Vertex credential", &result); err != nil {
		return domain.ImportResult{}, err
	}
	return result, nil
}

// get issues a GET to a management endpoint and decodes the JSON body into out.
func (c *Client) get(
	ctx context.Context,
	conn domain.Connection,
	endpoint string,
	query url.Values,
	what string,
	out any,
) error {
	req, err := c.newRequest(ctx, conn, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(conn, req, "get", what, out)
}

// postJSON posts payload as JSON to a management endpoint.
func (c *Client) postJSON(
	ctx context.Context,
	conn domain.Connection,
	endpoint string,
	payload any,
	what string,
	out any,
) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encode %s", what)
	}
	req, err := c.newRequest(ctx, conn, http.MethodPost, endpoint, nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(conn, req, "save", what, out)
}

// newRequest builds a request against the connection's management base.
func (c *Client) newRequest(
	ctx context.Context,
	conn domain.Connection,
	method string,
	endpoint string,
	query url.Values,
	body io.Reader,
) (*http.Request, error) {
	base, err := conn.ManagementBase()
	if err != nil {
		return nil, err
	}

	target := base + managementPrefix + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req, nil
}

// send performs req with the mode credential and decodes the JSON body into
// out. verb and what only shape error messages.
func (c *Client) send(conn domain.Connection, req *http.Request, verb, what string, out any) error {
	client, err := c.httpClient(conn)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to %s %s", verb, what)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Newf("failed to %s %s: %d", verb, what, resp.StatusCode)
		if msg := upstreamMessage(resp.Body); msg != "" {
			err = errors.Newf("failed to %s %s: %d: %s", verb, what, resp.StatusCode, msg)
		}
		return errors.Mark(err, domain.ErrUpstream)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(
			errors.Wrapf(err, "decode %s response", what),
			domain.ErrProtocol,
		)
	}
	return nil
}

// upstreamMessage extracts the "error" field of a JSON error body and drains
// the rest. Bodies that are not JSON yield "".
func upstreamMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	_, _ = io.Copy(io.Discard, body)
	if json.Unmarshal(data, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}

// httpClient builds a client that authenticates with the mode credential:
// X-Management-Key in local mode, a bearer token in remote mode.
func (c *Client) httpClient(conn domain.Connection) (*http.Client, error) {
	secret, err := conn.Credential()
	if err != nil {
		return nil, err
	}

	var transport http.RoundTripper
	if conn.IsLocal() {
		transport = &headerTransport{base: c.base, header: headerManagementKey, value: secret}
	} else {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secret, TokenType: "Bearer"}),
			Base:   c.base,
		}
	}

	return &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
	}, nil
}

// headerTransport sets a fixed header on every request.
type headerTransport struct {
	base   http.RoundTripper
	header string
	value  string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set(t.header, t.value)
	return t.base.RoundTrip(clone)
}
