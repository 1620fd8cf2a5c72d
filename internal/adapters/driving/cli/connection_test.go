package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
)

func TestConnectionCmd_HasSubcommands(t *testing.T) {
	commands := connectionCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"show", "mode", "base-url", "port", "key", "password"}, commandNames)
}

func TestConnectionShow_ServiceNotConfigured(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"connection", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection service not configured")
}

func TestConnectionShow_Local(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.conn.conn = domain.Connection{Mode: domain.ModeLocal, LocalPort: 9000, ManagementKey: "abcd1234efgh5678"}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"connection", "show"})

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Mode: local")
	assert.Contains(t, out, "Port: 9000")
	assert.Contains(t, out, "Management key: abcd...5678")
	assert.NotContains(t, out, "abcd1234efgh5678")
	assert.Contains(t, out, "Management API: http://127.0.0.1:9000/v0/management")
	assert.Contains(t, out, "Status: ready")
}

func TestConnectionShow_RemoteIncomplete(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.conn.conn = domain.Connection{Mode: domain.ModeRemote}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"connection"})

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Mode: remote")
	assert.Contains(t, out, "Base URL: (not set)")
	assert.Contains(t, out, "Password: (not set)")
	assert.Contains(t, out, "Status: incomplete")
	assert.NotContains(t, out, "Management API:")
}

func TestConnectionMode(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"connection", "mode", "Remote"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, domain.ModeRemote, ts.conn.conn.Mode)
	assert.Contains(t, buf.String(), "Connection mode set to remote")
}

func TestConnectionMode_Invalid(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"connection", "mode", "cloud"})

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestConnectionBaseURL(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"connection", "base-url", "https://mgmt.example.com/"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "https://mgmt.example.com/", ts.conn.conn.BaseURL)
	assert.Contains(t, buf.String(), "Base URL set to https://mgmt.example.com\n")
}

func TestConnectionBaseURL_Clear(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"connection", "base-url", ""})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Base URL cleared")
}

func TestConnectionPort(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"connection", "port", "9001"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 9001, ts.conn.conn.LocalPort)
}

func TestConnectionPort_NotANumber(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"connection", "port", "abc"})

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port: abc")
}

func TestConnectionPort_ServiceRejects(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.conn.err = errors.Mark(errors.New("port out of range"), domain.ErrConfiguration)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"connection", "port", "70000"})

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestConnectionKey_FromArgument(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"connection", "key", "mgmt-key"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "mgmt-key", ts.conn.secrets[driven.SecretManagementKey])
	assert.Contains(t, buf.String(), "Local management key saved")
}

func TestConnectionPassword_FromStdin(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("s3cret\n"))
	rootCmd.SetArgs([]string{"connection", "password"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "s3cret", ts.conn.secrets[driven.SecretRemotePassword])
	assert.Contains(t, buf.String(), "Remote password: ")
	assert.NotContains(t, buf.String(), "s3cret")
}

func TestConnectionPassword_EmptyRemoves(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.conn.secrets[driven.SecretRemotePassword] = "old"

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("\n"))
	rootCmd.SetArgs([]string{"connection", "password"})

	require.NoError(t, rootCmd.Execute())
	_, ok := ts.conn.secrets[driven.SecretRemotePassword]
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Remote password removed")
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "(not set)"},
		{"short", "****"},
		{"12345678", "****"},
		{"123456789", "1234...6789"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, maskSecret(tt.input), tt.input)
	}
}

func TestReadPassword_NonTerminal(t *testing.T) {
	assert.Equal(t, "value", readPassword(strings.NewReader("  value  \nrest")))
	assert.Equal(t, "", readPassword(strings.NewReader("")))
}
