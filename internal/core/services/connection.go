package services

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/core/ports/driving"
)

// Ensure ConnectionService implements the interface.
var (
	_ driving.ConnectionService = (*ConnectionService)(nil)
	_ ConnectionSource          = (*ConnectionService)(nil)
)

// Config keys for connection and flow settings.
const (
	keyConnMode       = "connection.mode"
	keyConnBaseURL    = "connection.base_url"
	keyConnLocalPort  = "connection.local_port"
	keyPollIntervalMS = "flow.poll_interval_ms"
	keyTimeoutSeconds = "flow.timeout_seconds"
)

// ConnectionService manages how the management API is reached.
// Plain settings live in the config store, secrets in the secret store.
type ConnectionService struct {
	configStore driven.ConfigStore
	secrets     driven.SecretStore
	api         driven.ManagementAPI
}

// NewConnectionService creates a new connection service.
func NewConnectionService(
	configStore driven.ConfigStore,
	secrets driven.SecretStore,
	api driven.ManagementAPI,
) *ConnectionService {
	return &ConnectionService{
		configStore: configStore,
		secrets:     secrets,
		api:         api,
	}
}

// Connection assembles the current connection. It is read fresh on every call.
func (s *ConnectionService) Connection(ctx context.Context) (domain.Connection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Connection{}, err
	}

	mode, err := domain.ParseConnectionMode(s.configStore.GetString(keyConnMode))
	if err != nil {
		return domain.Connection{}, err
	}

	conn := domain.Connection{
		Mode:      mode,
		BaseURL:   s.configStore.GetString(keyConnBaseURL),
		LocalPort: s.configStore.GetInt(keyConnLocalPort),
	}

	if conn.IsLocal() {
		conn.ManagementKey, err = s.secrets.Get(driven.SecretManagementKey)
	} else {
		conn.Password, err = s.secrets.Get(driven.SecretRemotePassword)
	}
	if err != nil {
		return domain.Connection{}, errors.Wrap(err, "read management secret")
	}
	return conn, nil
}

// SetMode switches between local and remote mode.
func (s *ConnectionService) SetMode(mode domain.ConnectionMode) error {
	parsed, err := domain.ParseConnectionMode(string(mode))
	if err != nil {
		return err
	}
	if err := s.configStore.Set(keyConnMode, string(parsed)); err != nil {
		return errors.Wrap(err, "save connection mode")
	}
	return nil
}

// SetBaseURL sets the remote management base URL. A trailing slash is dropped.
func (s *ConnectionService) SetBaseURL(baseURL string) error {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return errors.Mark(
			errors.Newf("base-url %q must start with http:// or https://", baseURL),
			domain.ErrConfiguration,
		)
	}
	if err := s.configStore.Set(keyConnBaseURL, baseURL); err != nil {
		return errors.Wrap(err, "save connection base_url")
	}
	return nil
}

// SetLocalPort sets the local management API port.
func (s *ConnectionService) SetLocalPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.Mark(errors.Newf("invalid port %d", port), domain.ErrConfiguration)
	}
	if err := s.configStore.Set(keyConnLocalPort, port); err != nil {
		return errors.Wrap(err, "save connection local_port")
	}
	return nil
}

// SetSecret stores the local management key or remote password.
// An empty value removes the secret.
func (s *ConnectionService) SetSecret(name, value string) error {
	switch name {
	case driven.SecretManagementKey, driven.SecretRemotePassword:
	default:
		return errors.Mark(errors.Newf("unknown secret %q", name), domain.ErrConfiguration)
	}

	if value == "" {
		if err := s.secrets.Delete(name); err != nil {
			return errors.Wrapf(err, "delete %s", name)
		}
		return nil
	}
	if err := s.secrets.Set(name, value); err != nil {
		return errors.Wrapf(err, "save %s", name)
	}
	return nil
}

// ListAuthFiles lists credential files through the current connection.
func (s *ConnectionService) ListAuthFiles(ctx context.Context) ([]domain.AuthFile, error) {
	conn, err := s.Connection(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Credential(); err != nil {
		return nil, err
	}
	return s.api.ListAuthFiles(ctx, conn)
}

// FlowConfig reads the flow timing from the config store.
// Missing or non-positive values fall back to the defaults.
func (s *ConnectionService) FlowConfig() FlowConfig {
	cfg := FlowConfig{
		PollInterval: domain.DefaultPollInterval,
		Timeout:      domain.DefaultFlowTimeout,
	}
	if ms := s.configStore.GetInt(keyPollIntervalMS); ms > 0 {
		cfg.PollInterval = time.Duration(ms) * time.Millisecond
	}
	if secs := s.configStore.GetInt(keyTimeoutSeconds); secs > 0 {
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	return cfg
}
