package domain

import (
	"sort"
	"strings"
)

// ProviderType identifies an external credential provider.
type ProviderType string

const (
	// ProviderIFlow is the iFlow cookie/OAuth provider.
	ProviderIFlow ProviderType = "iflow"
	// ProviderAnthropic is the Claude Code OAuth provider.
	ProviderAnthropic ProviderType = "anthropic"
	// ProviderCodex is the OpenAI Codex OAuth provider.
	ProviderCodex ProviderType = "codex"
	// ProviderGemini is the Gemini CLI OAuth provider.
	ProviderGemini ProviderType = "gemini-cli"
	// ProviderAntigravity is the Antigravity OAuth provider.
	ProviderAntigravity ProviderType = "antigravity"
)

// Provider describes how a consent flow is run for one provider.
type Provider struct {
	// Type is the provider identifier used in management API paths.
	Type ProviderType
	// DisplayName is the human-readable provider name.
	DisplayName string
	// CallbackPort is the fixed local port the provider redirects to.
	// The provider's registered redirect URI points at this port, so it
	// cannot be chosen dynamically.
	CallbackPort int
	// Aliases are alternative names accepted on input (e.g. "claude").
	Aliases []string
}

// AuthURLEndpoint returns the management endpoint segment that issues the
// consent URL, e.g. "iflow-auth-url".
func (p Provider) AuthURLEndpoint() string {
	return string(p.Type) + "-auth-url"
}

// CallbackPath returns the management API path that finalises the redirect,
// e.g. "iflow/callback".
func (p Provider) CallbackPath() string {
	return string(p.Type) + "/callback"
}

var providers = map[ProviderType]Provider{
	ProviderIFlow: {
		Type:         ProviderIFlow,
		DisplayName:  "iFlow",
		CallbackPort: 11451,
	},
	ProviderAnthropic: {
		Type:         ProviderAnthropic,
		DisplayName:  "Claude Code",
		CallbackPort: 54545,
		Aliases:      []string{"claude"},
	},
	ProviderCodex: {
		Type:         ProviderCodex,
		DisplayName:  "Codex",
		CallbackPort: 1455,
	},
	ProviderGemini: {
		Type:         ProviderGemini,
		DisplayName:  "Gemini CLI",
		CallbackPort: 8085,
		Aliases:      []string{"gemini"},
	},
	ProviderAntigravity: {
		Type:         ProviderAntigravity,
		DisplayName:  "Antigravity",
		CallbackPort: 51121,
	},
}

// LookupProvider resolves a provider by type or alias (case-insensitive).
func LookupProvider(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if p, ok := providers[ProviderType(name)]; ok {
		return p, nil
	}
	for _, p := range providers {
		for _, alias := range p.Aliases {
			if alias == name {
				return p, nil
			}
		}
	}
	return Provider{}, ErrUnsupportedProvider
}

// Providers returns all known providers sorted by type.
func Providers() []Provider {
	result := make([]Provider, 0, len(providers))
	for _, p := range providers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}
