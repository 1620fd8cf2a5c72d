package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
)

// mockManagementAPI is a scripted driven.ManagementAPI.
// Statuses are returned in order; the last one repeats.
type mockManagementAPI struct {
	mu sync.Mutex

	authURL    domain.AuthURL
	authURLErr error
	authURLFn  func(ctx context.Context) (domain.AuthURL, error)

	statuses  []domain.AuthStatus
	statusErr error
	statusFn  func(ctx context.Context, state string) (domain.AuthStatus, error)

	files    []domain.AuthFile
	filesErr error

	importResult domain.ImportResult
	importErr    error
	imported     []any

	authURLCalls int
	statusCalls  int
	fileCalls    int
	polledStates []string
	lastConn     domain.Connection
}

var _ driven.ManagementAPI = (*mockManagementAPI)(nil)

func (m *mockManagementAPI) GetAuthURL(
	ctx context.Context,
	conn domain.Connection,
	_ domain.Provider,
) (domain.AuthURL, error) {
	m.mu.Lock()
	m.authURLCalls++
	m.lastConn = conn
	fn := m.authURLFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return m.authURL, m.authURLErr
}

func (m *mockManagementAPI) GetAuthStatus(
	ctx context.Context,
	conn domain.Connection,
	state string,
) (domain.AuthStatus, error) {
	m.mu.Lock()
	m.statusCalls++
	m.lastConn = conn
	m.polledStates = append(m.polledStates, state)
	fn := m.statusFn
	if fn == nil && m.statusErr == nil && len(m.statuses) == 0 {
		m.mu.Unlock()
		return domain.AuthStatus{Status: domain.AuthStatusWait}, nil
	}
	var next domain.AuthStatus
	if fn == nil && m.statusErr == nil {
		next = m.statuses[0]
		if len(m.statuses) > 1 {
			m.statuses = m.statuses[1:]
		}
	}
	err := m.statusErr
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, state)
	}
	return next, err
}

func (m *mockManagementAPI) ListAuthFiles(_ context.Context, conn domain.Connection) ([]domain.AuthFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileCalls++
	m.lastConn = conn
	return m.files, m.filesErr
}

func (m *mockManagementAPI) recordImport(conn domain.Connection, payload any) (domain.ImportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastConn = conn
	m.imported = append(m.imported, payload)
	return m.importResult, m.importErr
}

func (m *mockManagementAPI) SaveIFlowCookie(
	_ context.Context,
	conn domain.Connection,
	cookie domain.IFlowCookie,
) (domain.ImportResult, error) {
	return m.recordImport(conn, cookie)
}

func (m *mockManagementAPI) SaveGeminiWebTokens(
	_ context.Context,
	conn domain.Connection,
	tokens domain.GeminiWebTokens,
) (domain.ImportResult, error) {
	return m.recordImport(conn, tokens)
}

func (m *mockManagementAPI) ImportVertexCredential(
	_ context.Context,
	conn domain.Connection,
	cred domain.VertexCredential,
) (domain.ImportResult, error) {
	return m.recordImport(conn, cred)
}

func (m *mockManagementAPI) imports() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.imported...)
}

func (m *mockManagementAPI) calls() (authURL, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authURLCalls, m.statusCalls
}

// blockingStatus blocks every status request until its context ends.
func blockingStatus(started chan<- struct{}) func(ctx context.Context, _ string) (domain.AuthStatus, error) {
	return func(ctx context.Context, _ string) (domain.AuthStatus, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return domain.AuthStatus{}, errors.Wrap(ctx.Err(), "get auth status")
	}
}

// mockCallbackHost records bindings by port.
type mockCallbackHost struct {
	mu       sync.Mutex
	startErr error
	bound    map[int]domain.CallbackBinding
	starts   int
	stops    int
}

var _ driven.CallbackHost = (*mockCallbackHost)(nil)

func newMockCallbackHost() *mockCallbackHost {
	return &mockCallbackHost{bound: make(map[int]domain.CallbackBinding)}
}

func (h *mockCallbackHost) Start(_ context.Context, binding domain.CallbackBinding) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.startErr != nil {
		return h.startErr
	}
	if _, ok := h.bound[binding.ListenPort]; ok {
		return errors.Mark(errors.Newf("port %d already bound", binding.ListenPort), domain.ErrResourceBusy)
	}
	h.starts++
	h.bound[binding.ListenPort] = binding
	return nil
}

func (h *mockCallbackHost) Stop(port int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	delete(h.bound, port)
	return nil
}

func (h *mockCallbackHost) snapshot() (bound map[int]domain.CallbackBinding, starts, stops int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bound = make(map[int]domain.CallbackBinding, len(h.bound))
	for k, v := range h.bound {
		bound[k] = v
	}
	return bound, h.starts, h.stops
}

type notification struct {
	kind     string
	provider domain.ProviderType
	reason   string
}

// recordingNotifier records terminal notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
	ch     chan notification
}

var _ driven.FlowNotifier = (*recordingNotifier)(nil)

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan notification, 16)}
}

func (n *recordingNotifier) record(ev notification) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
	n.ch <- ev
}

func (n *recordingNotifier) OnSuccess(provider domain.ProviderType) {
	n.record(notification{kind: "success", provider: provider})
}

func (n *recordingNotifier) OnError(provider domain.ProviderType, reason string) {
	n.record(notification{kind: "error", provider: provider, reason: reason})
}

func (n *recordingNotifier) OnCanceled(provider domain.ProviderType) {
	n.record(notification{kind: "canceled", provider: provider})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.events...)
}

func (n *recordingNotifier) wait(t *testing.T) notification {
	t.Helper()
	select {
	case ev := <-n.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no terminal notification received")
		return notification{}
	}
}

// staticConnections serves a fixed connection.
type staticConnections struct {
	mu    sync.Mutex
	conn  domain.Connection
	err   error
	calls int
}

func (s *staticConnections) Connection(ctx context.Context) (domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := ctx.Err(); err != nil {
		return domain.Connection{}, err
	}
	return s.conn, s.err
}

func localConnections() *staticConnections {
	return &staticConnections{conn: domain.Connection{Mode: domain.ModeLocal, ManagementKey: "key"}}
}
