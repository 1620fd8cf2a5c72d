// Package cli implements the authflow command line on top of cobra.
package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/authflow/internal/core/ports/driving"
	"github.com/custodia-labs/authflow/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services holds the core services the commands run against.
type Services struct {
	Flow       driving.AuthFlowService
	Connection driving.ConnectionService
	Import     driving.CredentialImportService
	Notifier   *Notifier
}

// Bootstrap builds the services once flags are parsed. configDir is the
// value of --config-dir and may be empty.
type Bootstrap func(configDir string) (Services, error)

var (
	flowService       driving.AuthFlowService
	connectionService driving.ConnectionService
	importService     driving.CredentialImportService
	notifier          *Notifier
	bootstrap         Bootstrap
)

// Root flags.
var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "authflow",
	Short: "Acquire provider credentials through a management API",
	Long: `authflow runs browser consent flows for AI providers (iFlow, Claude Code,
Codex, Gemini CLI, Antigravity) against a local or remote management API.

It hosts the local redirect receiver the provider sends the browser back to,
forwards the redirect to the management API and polls until the credential
has been stored.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.authflow)")
}

// SetServices sets the services used by the commands.
func SetServices(s Services) {
	flowService = s.Flow
	connectionService = s.Connection
	importService = s.Import
	notifier = s.Notifier
}

// SetBootstrap registers the function that builds the services after flag
// parsing. It is skipped when services were set directly.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		return err
	}
	return nil
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if flowService != nil || bootstrap == nil {
		return nil
	}
	s, err := bootstrap(configDir)
	if err != nil {
		return errors.Wrap(err, "failed to initialise")
	}
	SetServices(s)
	return nil
}
