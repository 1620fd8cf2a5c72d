package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/authflow/internal/core/domain"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Store a credential you already have",
	Long: `Store a credential without a browser consent flow: an iFlow browser
cookie, Gemini web session tokens or a Vertex service account key.`,
}

var importIFlowCookieCmd = &cobra.Command{
	Use:   "iflow-cookie",
	Short: "Import an iFlow browser cookie",
	Long: `Import an iFlow credential from the cookie of a signed-in iFlow browser
session. The cookie is prompted for without echo when --cookie is omitted.`,
	Args: cobra.NoArgs,
	RunE: runImportIFlowCookie,
}

var importGeminiWebCmd = &cobra.Command{
	Use:   "gemini-web",
	Short: "Import Gemini web session tokens",
	Long: `Import the __Secure-1PSID and __Secure-1PSIDTS cookies of a Gemini web
session. Values not given as flags are prompted for.`,
	Args: cobra.NoArgs,
	RunE: runImportGeminiWeb,
}

var importVertexCmd = &cobra.Command{
	Use:   "vertex <service-account.json>",
	Short: "Import a Vertex service account key",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportVertex,
}

// Import flags.
var (
	importCookie         string
	importEmail          string
	importSecure1PSID    string
	importSecure1PSIDTS  string
	importVertexLocation string
)

func init() {
	importIFlowCookieCmd.Flags().StringVar(&importCookie, "cookie", "", "iFlow cookie (prompted when omitted)")

	importGeminiWebCmd.Flags().StringVar(&importEmail, "email", "", "Google account email")
	importGeminiWebCmd.Flags().StringVar(&importSecure1PSID, "secure-1psid", "", "Value of the __Secure-1PSID cookie")
	importGeminiWebCmd.Flags().StringVar(&importSecure1PSIDTS, "secure-1psidts", "", "Value of the __Secure-1PSIDTS cookie")

	importVertexCmd.Flags().StringVar(&importVertexLocation, "location", domain.DefaultVertexLocation, "Vertex region")

	importCmd.AddCommand(importIFlowCookieCmd)
	importCmd.AddCommand(importGeminiWebCmd)
	importCmd.AddCommand(importVertexCmd)
	rootCmd.AddCommand(importCmd)
}

func runImportIFlowCookie(cmd *cobra.Command, _ []string) error {
	if importService == nil {
		return errors.New("import service not configured")
	}

	cookie := importCookie
	if cookie == "" {
		cookie = newPrompter(cmd).secret("iFlow cookie")
	}

	result, err := importService.ImportIFlowCookie(cmd.Context(), domain.IFlowCookie{Cookie: cookie})
	if err != nil {
		return errors.Wrap(err, "failed to import iFlow cookie")
	}
	writeImportResult(cmd, "iFlow", result)
	printAuthFiles(cmd.Context(), cmd)
	return nil
}

func runImportGeminiWeb(cmd *cobra.Command, _ []string) error {
	if importService == nil {
		return errors.New("import service not configured")
	}

	p := newPrompter(cmd)
	tokens := domain.GeminiWebTokens{
		Email:         importEmail,
		Secure1PSID:   importSecure1PSID,
		Secure1PSIDTS: importSecure1PSIDTS,
	}
	if tokens.Email == "" {
		tokens.Email = p.line("Email")
	}
	if tokens.Secure1PSID == "" {
		tokens.Secure1PSID = p.secret("__Secure-1PSID")
	}
	if tokens.Secure1PSIDTS == "" {
		tokens.Secure1PSIDTS = p.secret("__Secure-1PSIDTS")
	}

	result, err := importService.ImportGeminiWebTokens(cmd.Context(), tokens)
	if err != nil {
		return errors.Wrap(err, "failed to import Gemini Web tokens")
	}
	if result.Email == "" {
		result.Email = strings.TrimSpace(tokens.Email)
	}
	writeImportResult(cmd, "Gemini Web", result)
	printAuthFiles(cmd.Context(), cmd)
	return nil
}

func runImportVertex(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errors.New("import service not configured")
	}

	path := args[0]
	if !strings.HasSuffix(strings.ToLower(path), ".json") {
		return errors.Mark(
			errors.Newf("service account file %q must be a .json file", path),
			domain.ErrInvalidCredential,
		)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read service account file")
	}

	result, err := importService.ImportVertexCredential(cmd.Context(), domain.VertexCredential{
		FileName:       path,
		ServiceAccount: data,
		Location:       importVertexLocation,
	})
	if err != nil {
		return errors.Wrap(err, "failed to import Vertex credential")
	}
	writeImportResult(cmd, "Vertex", result)
	printAuthFiles(cmd.Context(), cmd)
	return nil
}

func writeImportResult(cmd *cobra.Command, name string, result domain.ImportResult) {
	cmd.Println(notifier.success(name + " credential imported"))
	if result.Email != "" {
		cmd.Printf("  Account: %s\n", result.Email)
	}
	if result.ProjectID != "" {
		cmd.Printf("  Project: %s\n", result.ProjectID)
	}
	if result.Location != "" {
		cmd.Printf("  Location: %s\n", result.Location)
	}
	if result.File != "" {
		cmd.Printf("  File: %s\n", result.File)
	}
}

// prompter reads answers from the command input. One buffered reader is
// shared across prompts so piped input is not lost between them.
type prompter struct {
	cmd    *cobra.Command
	in     io.Reader
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{cmd: cmd, in: in, reader: bufio.NewReader(in)}
}

// line reads a visible answer.
func (p *prompter) line(label string) string {
	p.cmd.Printf("%s: ", label)
	input, _ := p.reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// secret reads an answer without echo when the input is a terminal.
func (p *prompter) secret(label string) string {
	p.cmd.Printf("%s: ", label)
	defer p.cmd.Println()
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		value, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(value))
		}
	}
	input, _ := p.reader.ReadString('\n')
	return strings.TrimSpace(input)
}
