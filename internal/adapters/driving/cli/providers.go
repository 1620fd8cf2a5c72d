package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers",
	Args:  cobra.NoArgs,
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, _ []string) error {
	cmd.Println("Supported providers:")
	cmd.Println()
	for _, p := range domain.Providers() {
		cmd.Printf("  %s\n", p.Type)
		cmd.Printf("    Name: %s\n", p.DisplayName)
		cmd.Printf("    Callback port: %d\n", p.CallbackPort)
		if len(p.Aliases) > 0 {
			cmd.Printf("    Aliases: %s\n", strings.Join(p.Aliases, ", "))
		}
		cmd.Println()
	}
	return nil
}
