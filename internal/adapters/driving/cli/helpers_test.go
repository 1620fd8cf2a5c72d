package cli

import (
	"bytes"
	"context"
	"sync"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driving"
)

// fakeFlowService ends every flow with outcome, or waits for a cancel when
// outcome is empty.
type fakeFlowService struct {
	mu       sync.Mutex
	notifier *Notifier
	outcome  domain.FlowState
	reason   string
	startErr error
	started  chan domain.ProviderType
	done     map[domain.ProviderType]chan struct{}
	canceled []domain.ProviderType
}

var _ driving.AuthFlowService = (*fakeFlowService)(nil)

func newFakeFlowService(n *Notifier) *fakeFlowService {
	return &fakeFlowService{
		notifier: n,
		started:  make(chan domain.ProviderType, 4),
		done:     make(map[domain.ProviderType]chan struct{}),
	}
}

func (f *fakeFlowService) Start(_ context.Context, provider domain.ProviderType) (*domain.FlowSession, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}

	done := make(chan struct{})
	f.mu.Lock()
	f.done[provider] = done
	outcome, reason := f.outcome, f.reason
	f.mu.Unlock()

	f.started <- provider
	if outcome != "" {
		go f.end(provider, outcome, reason)
	}
	return &domain.FlowSession{
		ID:               "flow-1",
		Provider:         provider,
		CorrelationState: "s1",
		AuthURL:          "https://consent.example.com/authorize?state=s1",
		State:            domain.FlowPolling,
	}, nil
}

func (f *fakeFlowService) end(provider domain.ProviderType, state domain.FlowState, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	done := f.done[provider]
	if done == nil {
		return
	}
	select {
	case <-done:
		return
	default:
	}

	switch state {
	case domain.FlowSucceeded:
		f.notifier.OnSuccess(provider)
	case domain.FlowCanceled:
		f.notifier.OnCanceled(provider)
	default:
		f.notifier.OnError(provider, reason)
	}
	close(done)
}

func (f *fakeFlowService) Cancel() {}

func (f *fakeFlowService) CancelProvider(provider domain.ProviderType) {
	f.mu.Lock()
	f.canceled = append(f.canceled, provider)
	f.mu.Unlock()
	f.end(provider, domain.FlowCanceled, "")
}

func (f *fakeFlowService) Active(domain.ProviderType) *domain.FlowSession { return nil }

func (f *fakeFlowService) Done(provider domain.ProviderType) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if done, ok := f.done[provider]; ok {
		return done
	}
	return nil
}

type fakeConnectionService struct {
	conn     domain.Connection
	files    []domain.AuthFile
	filesErr error
	secrets  map[string]string
	err      error
}

var _ driving.ConnectionService = (*fakeConnectionService)(nil)

func newFakeConnectionService() *fakeConnectionService {
	return &fakeConnectionService{
		conn:    domain.Connection{Mode: domain.ModeLocal},
		secrets: make(map[string]string),
	}
}

func (f *fakeConnectionService) Connection(context.Context) (domain.Connection, error) {
	return f.conn, f.err
}

func (f *fakeConnectionService) SetMode(mode domain.ConnectionMode) error {
	f.conn.Mode = mode
	return f.err
}

func (f *fakeConnectionService) SetBaseURL(baseURL string) error {
	f.conn.BaseURL = baseURL
	return f.err
}

func (f *fakeConnectionService) SetLocalPort(port int) error {
	if f.err != nil {
		return f.err
	}
	f.conn.LocalPort = port
	return nil
}

func (f *fakeConnectionService) SetSecret(name, value string) error {
	if value == "" {
		delete(f.secrets, name)
	} else {
		f.secrets[name] = value
	}
	return f.err
}

func (f *fakeConnectionService) ListAuthFiles(context.Context) ([]domain.AuthFile, error) {
	return f.files, f.filesErr
}

// fakeImportService records what it was asked to import.
type fakeImportService struct {
	result  domain.ImportResult
	err     error
	cookies []domain.IFlowCookie
	tokens  []domain.GeminiWebTokens
	vertex  []domain.VertexCredential
}

var _ driving.CredentialImportService = (*fakeImportService)(nil)

func (f *fakeImportService) ImportIFlowCookie(
	_ context.Context,
	cookie domain.IFlowCookie,
) (domain.ImportResult, error) {
	f.cookies = append(f.cookies, cookie)
	return f.result, f.err
}

func (f *fakeImportService) ImportGeminiWebTokens(
	_ context.Context,
	tokens domain.GeminiWebTokens,
) (domain.ImportResult, error) {
	f.tokens = append(f.tokens, tokens)
	return f.result, f.err
}

func (f *fakeImportService) ImportVertexCredential(
	_ context.Context,
	cred domain.VertexCredential,
) (domain.ImportResult, error) {
	f.vertex = append(f.vertex, cred)
	return f.result, f.err
}

// testServices holds the fakes installed by setupTestServices.
type testServices struct {
	flow    *fakeFlowService
	conn    *fakeConnectionService
	imports *fakeImportService
	// notices receives the notifier output.
	notices *bytes.Buffer
}

// setupTestServices installs fakes and returns a cleanup function.
func setupTestServices() (*testServices, func()) {
	notices := new(bytes.Buffer)
	n := NewNotifier(notices)
	ts := &testServices{
		flow:    newFakeFlowService(n),
		conn:    newFakeConnectionService(),
		imports: &fakeImportService{},
		notices: notices,
	}
	SetServices(Services{Flow: ts.flow, Connection: ts.conn, Import: ts.imports, Notifier: n})

	originalOpen := openBrowser
	openBrowser = func(string) error { return nil }

	return ts, func() {
		SetServices(Services{})
		openBrowser = originalOpen
		loginNoBrowser = false
		importCookie = ""
		importEmail = ""
		importSecure1PSID = ""
		importSecure1PSIDTS = ""
		importVertexLocation = domain.DefaultVertexLocation
		loginCmd.SetContext(context.Background())
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}
