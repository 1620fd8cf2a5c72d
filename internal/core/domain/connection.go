package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ConnectionMode selects how the management API is reached.
type ConnectionMode string

const (
	// ModeLocal talks to a management API on the loopback interface.
	ModeLocal ConnectionMode = "local"
	// ModeRemote talks to a management API at a configured base URL.
	ModeRemote ConnectionMode = "remote"
)

// DefaultLocalPort is the management API port used in local mode when none is configured.
const DefaultLocalPort = 8317

// ParseConnectionMode parses a mode name. Empty input means local.
func ParseConnectionMode(s string) (ConnectionMode, error) {
	switch ConnectionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeRemote:
		return ModeRemote, nil
	default:
		return "", fmt.Errorf("%w: unknown connection mode %q", ErrConfiguration, s)
	}
}

// Connection holds everything needed to reach the management API.
type Connection struct {
	// Mode is local or remote.
	Mode ConnectionMode
	// BaseURL is the remote management base URL. Ignored in local mode.
	BaseURL string
	// LocalPort is the local management API port. Ignored in remote mode.
	LocalPort int
	// ManagementKey is sent as X-Management-Key in local mode. May be empty.
	ManagementKey string
	// Password is sent as a bearer token in remote mode.
	Password string
}

// IsLocal reports whether the connection targets the local management API.
func (c Connection) IsLocal() bool {
	return c.Mode != ModeRemote
}

// Port returns the local management port, falling back to DefaultLocalPort.
func (c Connection) Port() int {
	if c.LocalPort <= 0 {
		return DefaultLocalPort
	}
	return c.LocalPort
}

// ManagementBase returns the management API base URL without a trailing slash.
// Remote mode requires a configured base URL.
func (c Connection) ManagementBase() (string, error) {
	if c.IsLocal() {
		return "http://127.0.0.1:" + strconv.Itoa(c.Port()), nil
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return "", fmt.Errorf("%w: missing base-url configuration", ErrConfiguration)
	}
	return strings.TrimRight(base, "/"), nil
}

// Credential returns the secret for the current mode.
// Remote mode requires both a base URL and a password; local mode accepts an
// empty management key.
func (c Connection) Credential() (string, error) {
	if c.IsLocal() {
		return c.ManagementKey, nil
	}
	if strings.TrimSpace(c.BaseURL) == "" || c.Password == "" {
		return "", fmt.Errorf("%w: missing connection information", ErrConfiguration)
	}
	return c.Password, nil
}
