package cli

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List credential files stored by the management API",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, _ []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	files, err := connectionService.ListAuthFiles(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "failed to list auth files")
	}
	writeAuthFiles(cmd, files)
	return nil
}

func writeAuthFiles(cmd *cobra.Command, files []domain.AuthFile) {
	if len(files) == 0 {
		cmd.Println("No auth files.")
		cmd.Println("Add one with: authflow login <provider>")
		return
	}

	cmd.Println("Auth files:")
	cmd.Println()
	for _, f := range files {
		cmd.Printf("  %s\n", f.Name)
		if f.Type != "" {
			cmd.Printf("    Type: %s\n", f.Type)
		}
		if f.Size > 0 {
			cmd.Printf("    Size: %d bytes\n", f.Size)
		}
		if !f.ModTime.IsZero() {
			cmd.Printf("    Modified: %s\n", f.ModTime.Format(time.RFC3339))
		}
		cmd.Println()
	}
}
