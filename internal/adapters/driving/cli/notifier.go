package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
)

// Ensure Notifier implements the interface.
var _ driven.FlowNotifier = (*Notifier)(nil)

// Outcome is the terminal result recorded for a provider.
type Outcome struct {
	State  domain.FlowState
	Reason string
}

// styles holds the terminal styles. All styles are unset when output is not a TTY.
type styles struct {
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	accent  lipgloss.Style
}

func newStyles(colour bool) styles {
	if !colour {
		plain := lipgloss.NewStyle()
		return styles{success: plain, failure: plain, muted: plain, accent: plain}
	}
	return styles{
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Bold(true), // Green
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true), // Red
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),            // Medium gray
		accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Underline(true),
	}
}

// Notifier prints flow outcomes to the terminal and records them so the
// command that started the flow can pick them up.
type Notifier struct {
	mu       sync.Mutex
	out      io.Writer
	styles   styles
	outcomes map[domain.ProviderType]Outcome
}

// NewNotifier creates a notifier writing to out. Output is styled only when
// out is a terminal.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{
		out:      out,
		styles:   newStyles(isTerminal(out)),
		outcomes: make(map[domain.ProviderType]Outcome),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// OnSuccess reports that the credential was acquired.
func (n *Notifier) OnSuccess(provider domain.ProviderType) {
	n.record(provider, Outcome{State: domain.FlowSucceeded},
		n.styles.success.Render("✓ "+displayName(provider)+" authentication succeeded"))
}

// OnError reports a failure. The timeout reason is recorded as a timeout.
func (n *Notifier) OnError(provider domain.ProviderType, reason string) {
	state := domain.FlowFailed
	if reason == domain.ReasonTimeout {
		state = domain.FlowTimedOut
	}
	n.record(provider, Outcome{State: state, Reason: reason},
		n.styles.failure.Render("✗ "+displayName(provider)+" authentication failed: ")+reason)
}

// OnCanceled reports a user cancellation.
func (n *Notifier) OnCanceled(provider domain.ProviderType) {
	n.record(provider, Outcome{State: domain.FlowCanceled},
		n.styles.muted.Render(displayName(provider)+" authentication canceled"))
}

// Take returns and forgets the recorded outcome for provider.
func (n *Notifier) Take(provider domain.ProviderType) (Outcome, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	o, ok := n.outcomes[provider]
	delete(n.outcomes, provider)
	return o, ok
}

func (n *Notifier) record(provider domain.ProviderType, o Outcome, line string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.outcomes[provider] = o
	fmt.Fprintln(n.out, line)
}

// link styles a URL for display.
func (n *Notifier) link(url string) string {
	return n.styles.accent.Render(url)
}

// success styles a confirmation line.
func (n *Notifier) success(text string) string {
	return n.styles.success.Render("✓ " + text)
}

// hint styles secondary text.
func (n *Notifier) hint(text string) string {
	return n.styles.muted.Render(text)
}

func displayName(provider domain.ProviderType) string {
	if p, err := domain.LookupProvider(string(provider)); err == nil {
		return p.DisplayName
	}
	return string(provider)
}
