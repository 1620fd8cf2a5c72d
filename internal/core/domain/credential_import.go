package domain

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultVertexLocation is the Vertex region used when none is given.
const DefaultVertexLocation = "us-central1"

// IFlowCookie is a pasted iFlow browser session cookie.
type IFlowCookie struct {
	Cookie string `json:"cookie"`
}

// Normalize trims the cookie and rejects an empty one.
func (c IFlowCookie) Normalize() (IFlowCookie, error) {
	c.Cookie = strings.TrimSpace(c.Cookie)
	if c.Cookie == "" {
		return IFlowCookie{}, fmt.Errorf("%w: iFlow cookie is empty", ErrInvalidCredential)
	}
	return c, nil
}

// GeminiWebTokens are the Gemini web session cookies of one account.
type GeminiWebTokens struct {
	Secure1PSID   string `json:"secure_1psid"`
	Secure1PSIDTS string `json:"secure_1psidts"`
	Email         string `json:"email"`
}

// Normalize trims every field; all three are required.
func (t GeminiWebTokens) Normalize() (GeminiWebTokens, error) {
	t.Secure1PSID = strings.TrimSpace(t.Secure1PSID)
	t.Secure1PSIDTS = strings.TrimSpace(t.Secure1PSIDTS)
	t.Email = strings.TrimSpace(t.Email)
	if t.Email == "" || t.Secure1PSID == "" || t.Secure1PSIDTS == "" {
		return GeminiWebTokens{}, fmt.Errorf(
			"%w: email, Secure-1PSID and Secure-1PSIDTS are required", ErrInvalidCredential)
	}
	return t, nil
}

// VertexCredential is a Google service account key imported for Vertex.
type VertexCredential struct {
	// FileName is the uploaded file name; it must end in .json.
	FileName string
	// ServiceAccount is the raw key file content.
	ServiceAccount []byte
	// Location is the Vertex region. Empty means DefaultVertexLocation.
	Location string
}

// Normalize checks the file and fills in the default location.
func (v VertexCredential) Normalize() (VertexCredential, error) {
	v.FileName = filepath.Base(strings.TrimSpace(v.FileName))
	if !strings.HasSuffix(strings.ToLower(v.FileName), ".json") {
		return VertexCredential{}, fmt.Errorf(
			"%w: service account file %q must be a .json file", ErrInvalidCredential, v.FileName)
	}
	if len(v.ServiceAccount) == 0 || !json.Valid(v.ServiceAccount) {
		return VertexCredential{}, fmt.Errorf(
			"%w: service account file %q is not valid JSON", ErrInvalidCredential, v.FileName)
	}
	v.Location = strings.TrimSpace(v.Location)
	if v.Location == "" {
		v.Location = DefaultVertexLocation
	}
	return v, nil
}

// ImportResult is the management API's answer to a credential import.
type ImportResult struct {
	Status    string `json:"status,omitempty"`
	File      string `json:"file,omitempty"`
	Email     string `json:"email,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Location  string `json:"location,omitempty"`
}
