package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/authflow/internal/adapters/driving/oauth"
	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/logger"
)

// errAuthFailed is returned when a flow ends in failure or timeout.
var errAuthFailed = errors.New("authentication failed")

// openBrowser is replaced in tests.
var openBrowser = oauth.OpenBrowser

var loginNoBrowser bool

var loginCmd = &cobra.Command{
	Use:   "login <provider>",
	Short: "Acquire a credential through a browser consent flow",
	Long: `Start a consent flow for a provider and wait for it to complete.

The consent URL is opened in the default browser. After approving access the
provider redirects back to a local receiver, which forwards the result to the
management API. The command polls the management API until the credential is
stored, the flow fails, or it times out. Press Ctrl-C to cancel.

Run "authflow providers" to see the supported providers.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the consent URL without opening a browser")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if flowService == nil || notifier == nil {
		return errors.New("auth flow service not configured")
	}

	p, err := domain.LookupProvider(args[0])
	if err != nil {
		return errors.Wrapf(err, "unknown provider %q", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := flowService.Start(ctx, p.Type)
	if err != nil {
		if errors.Is(err, domain.ErrCanceled) {
			notifier.Take(p.Type)
			return nil
		}
		return errors.Wrapf(err, "failed to start %s authentication", p.DisplayName)
	}
	done := flowService.Done(p.Type)

	cmd.Printf("Open this URL to authorise %s:\n\n  %s\n\n", p.DisplayName, notifier.link(session.AuthURL))
	if !loginNoBrowser {
		if err := openBrowser(session.AuthURL); err != nil {
			logger.Warn("failed to open browser: %v", err)
			cmd.Println(notifier.hint("Could not open a browser; open the URL manually."))
		}
	}
	cmd.Println(notifier.hint("Waiting for authorisation (Ctrl-C to cancel)..."))

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			flowService.CancelProvider(p.Type)
		}
	}

	outcome, ok := notifier.Take(p.Type)
	if !ok {
		return errors.Newf("%s flow ended without a result", p.DisplayName)
	}

	switch outcome.State {
	case domain.FlowSucceeded:
		printAuthFiles(context.WithoutCancel(ctx), cmd)
		return nil
	case domain.FlowCanceled:
		return nil
	default:
		return errAuthFailed
	}
}

// printAuthFiles lists credential files after a successful flow.
// A listing failure does not fail the login.
func printAuthFiles(ctx context.Context, cmd *cobra.Command) {
	if connectionService == nil {
		return
	}
	files, err := connectionService.ListAuthFiles(ctx)
	if err != nil {
		logger.Warn("failed to list auth files: %v", err)
		cmd.Println(notifier.hint("Could not refresh the auth file list: " + err.Error()))
		return
	}
	cmd.Println()
	writeAuthFiles(cmd, files)
}
