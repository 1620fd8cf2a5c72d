package cli

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
)

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Manage the management API connection",
	Long: `View and configure how authflow reaches the management API.

In local mode the management API runs on 127.0.0.1 and requests carry the
local management key. In remote mode requests go to the configured base URL
with the remote password as a bearer token.`,
	RunE: runConnectionShow,
}

var connectionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current connection",
	Args:  cobra.NoArgs,
	RunE:  runConnectionShow,
}

var connectionModeCmd = &cobra.Command{
	Use:   "mode <local|remote>",
	Short: "Set the connection mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionMode,
}

var connectionBaseURLCmd = &cobra.Command{
	Use:   "base-url <url>",
	Short: "Set the remote management base URL",
	Long:  `Set the remote management base URL. Pass an empty string to clear it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionBaseURL,
}

var connectionPortCmd = &cobra.Command{
	Use:   "port <port>",
	Short: "Set the local management API port",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionPort,
}

var connectionKeyCmd = &cobra.Command{
	Use:   "key [value]",
	Short: "Set the local management key",
	Long: `Set the local management key. Without an argument the key is read from
the terminal without echo. An empty key removes it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSecret(cmd, args, driven.SecretManagementKey, "Local management key")
	},
}

var connectionPasswordCmd = &cobra.Command{
	Use:   "password [value]",
	Short: "Set the remote management password",
	Long: `Set the remote management password. Without an argument the password is
read from the terminal without echo. An empty password removes it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSecret(cmd, args, driven.SecretRemotePassword, "Remote password")
	},
}

func init() {
	connectionCmd.AddCommand(connectionShowCmd)
	connectionCmd.AddCommand(connectionModeCmd)
	connectionCmd.AddCommand(connectionBaseURLCmd)
	connectionCmd.AddCommand(connectionPortCmd)
	connectionCmd.AddCommand(connectionKeyCmd)
	connectionCmd.AddCommand(connectionPasswordCmd)
	rootCmd.AddCommand(connectionCmd)
}

func runConnectionShow(cmd *cobra.Command, _ []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	conn, err := connectionService.Connection(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "failed to read connection")
	}

	cmd.Println("Connection")
	cmd.Println("==========")
	cmd.Println()
	cmd.Printf("  Mode: %s\n", conn.Mode)
	if conn.IsLocal() {
		cmd.Printf("  Port: %d\n", conn.Port())
		cmd.Printf("  Management key: %s\n", maskSecret(conn.ManagementKey))
	} else {
		baseURL := conn.BaseURL
		if baseURL == "" {
			baseURL = "(not set)"
		}
		cmd.Printf("  Base URL: %s\n", baseURL)
		cmd.Printf("  Password: %s\n", maskSecret(conn.Password))
	}

	if base, err := conn.ManagementBase(); err == nil {
		cmd.Printf("  Management API: %s/v0/management\n", base)
	}
	status := "ready"
	if _, err := conn.Credential(); err != nil {
		status = "incomplete"
	}
	cmd.Printf("  Status: %s\n", status)
	return nil
}

func runConnectionMode(cmd *cobra.Command, args []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	mode, err := domain.ParseConnectionMode(args[0])
	if err != nil {
		return err
	}
	if err := connectionService.SetMode(mode); err != nil {
		return errors.Wrap(err, "failed to set mode")
	}
	cmd.Printf("Connection mode set to %s\n", mode)
	return nil
}

func runConnectionBaseURL(cmd *cobra.Command, args []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	if err := connectionService.SetBaseURL(args[0]); err != nil {
		return errors.Wrap(err, "failed to set base URL")
	}
	if strings.TrimSpace(args[0]) == "" {
		cmd.Println("Base URL cleared")
		return nil
	}
	cmd.Printf("Base URL set to %s\n", strings.TrimRight(strings.TrimSpace(args[0]), "/"))
	return nil
}

func runConnectionPort(cmd *cobra.Command, args []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Newf("invalid port: %s", args[0])
	}
	if err := connectionService.SetLocalPort(port); err != nil {
		return errors.Wrap(err, "failed to set port")
	}
	cmd.Printf("Local management port set to %d\n", port)
	return nil
}

func setSecret(cmd *cobra.Command, args []string, name, label string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	var value string
	if len(args) == 1 {
		value = args[0]
	} else {
		cmd.Printf("%s: ", label)
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
	}

	if err := connectionService.SetSecret(name, value); err != nil {
		return errors.Wrapf(err, "failed to save %s", strings.ToLower(label))
	}
	if value == "" {
		cmd.Printf("%s removed\n", label)
		return nil
	}
	cmd.Printf("%s saved\n", label)
	return nil
}

// readPassword reads a line without echo when in is a terminal.
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
