package services

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/core/ports/driving"
	"github.com/custodia-labs/authflow/internal/logger"
)

// Verify interface compliance.
var _ driving.AuthFlowService = (*FlowOrchestrator)(nil)

// FlowConfig holds the timing of a flow. Zero values use the defaults.
type FlowConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// FlowOrchestrator runs consent flows: it binds the callback listener,
// resolves the auth URL, polls for completion and tears everything down
// on the first terminal outcome. At most one flow per provider is live.
type FlowOrchestrator struct {
	connections ConnectionSource
	resolver    *AuthURLResolver
	poller      *StatusPoller
	host        driven.CallbackHost
	notifier    driven.FlowNotifier
	states      *StateRegistry

	mu   sync.Mutex
	runs map[domain.ProviderType]*flowRun
}

// flowRun is the owned state of one live flow.
type flowRun struct {
	provider domain.Provider
	machine  *flowMachine
	ctx      context.Context
	cancel   context.CancelCauseFunc

	mu       sync.Mutex
	session  domain.FlowSession
	finished bool
	bound    bool
	pollDone chan struct{}

	once sync.Once
	done chan struct{}
}

// NewFlowOrchestrator creates an orchestrator.
func NewFlowOrchestrator(
	api driven.ManagementAPI,
	connections ConnectionSource,
	host driven.CallbackHost,
	notifier driven.FlowNotifier,
	cfg FlowConfig,
) *FlowOrchestrator {
	return &FlowOrchestrator{
		connections: connections,
		resolver:    NewAuthURLResolver(api),
		poller:      NewStatusPoller(api, connections, cfg.PollInterval, cfg.Timeout),
		host:        host,
		notifier:    notifier,
		states:      NewStateRegistry(),
		runs:        make(map[domain.ProviderType]*flowRun),
	}
}

// Start begins a flow for provider and returns once polling has started.
// ctx bounds the setup phase only; the flow itself runs until it completes,
// times out or is canceled.
func (o *FlowOrchestrator) Start(ctx context.Context, provider domain.ProviderType) (*domain.FlowSession, error) {
	p, err := domain.LookupProvider(string(provider))
	if err != nil {
		return nil, err
	}

	run, err := o.reserve(p)
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { run.cancel(domain.ErrCanceled) })
	defer stop()

	logger.Section("Authentication: " + p.DisplayName)

	conn, err := o.connections.Connection(run.ctx)
	if err != nil {
		return nil, o.abortStart(run, err)
	}

	binding, err := domain.NewCallbackBinding(p, conn)
	if err != nil {
		return nil, o.abortStart(run, err)
	}
	if err := o.bind(run, binding); err != nil {
		return nil, o.abortStart(run, err)
	}

	authURL, err := o.resolver.Resolve(run.ctx, conn, p)
	if err != nil {
		return nil, o.abortStart(run, err)
	}

	session, err := o.await(run, authURL)
	if err != nil {
		return nil, o.abortStart(run, err)
	}

	if err := o.startPolling(run); err != nil {
		return nil, o.abortStart(run, err)
	}

	logger.Info("%s flow %s polling for state %s", p.Type, session.ID, session.CorrelationState)
	session.State = domain.FlowPolling
	return &session, nil
}

// reserve claims the provider slot before any I/O happens.
func (o *FlowOrchestrator) reserve(p domain.Provider) (*flowRun, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, busy := o.runs[p.Type]; busy {
		return nil, errors.Mark(
			errors.Newf("%s authentication is already in progress", p.DisplayName),
			domain.ErrResourceBusy,
		)
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancelCause(context.Background())
	run := &flowRun{
		provider: p,
		machine:  newFlowMachine(id),
		ctx:      ctx,
		cancel:   cancel,
		session: domain.FlowSession{
			ID:        id,
			Provider:  p.Type,
			CreatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	if err := run.machine.fire(eventBegin); err != nil {
		cancel(nil)
		return nil, err
	}
	o.runs[p.Type] = run
	return run, nil
}

// bind starts the callback listener. A listener that comes up after the
// flow was already torn down is stopped again immediately.
func (o *FlowOrchestrator) bind(run *flowRun, binding domain.CallbackBinding) error {
	if err := run.ctx.Err(); err != nil {
		return err
	}
	if err := o.host.Start(run.ctx, binding); err != nil {
		return errors.Wrapf(err, "failed to start %s callback server on port %d",
			run.provider.DisplayName, binding.ListenPort)
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	if run.finished {
		if err := o.host.Stop(binding.ListenPort); err != nil {
			logger.Warn("failed to stop callback server on port %d: %v", binding.ListenPort, err)
		}
		return context.Cause(run.ctx)
	}
	run.bound = true
	return nil
}

// await records the resolved auth URL and moves the flow to awaiting_user.
func (o *FlowOrchestrator) await(run *flowRun, authURL domain.AuthURL) (domain.FlowSession, error) {
	run.mu.Lock()
	defer run.mu.Unlock()

	if run.finished || run.ctx.Err() != nil {
		return domain.FlowSession{}, context.Cause(run.ctx)
	}
	if err := o.states.Claim(run.provider.Type, authURL.State); err != nil {
		return domain.FlowSession{}, err
	}
	run.session.CorrelationState = authURL.State
	run.session.AuthURL = authURL.URL
	if err := run.machine.fire(eventReady); err != nil {
		return domain.FlowSession{}, err
	}
	return run.session, nil
}

// startPolling launches the poller goroutine. The goroutine owns the
// terminal transition for every outcome it observes.
func (o *FlowOrchestrator) startPolling(run *flowRun) error {
	run.mu.Lock()
	defer run.mu.Unlock()

	if run.finished || run.ctx.Err() != nil {
		return context.Cause(run.ctx)
	}
	if err := run.machine.fire(eventPoll); err != nil {
		return err
	}

	handle := o.poller.NewHandle()
	state := run.session.CorrelationState
	pollDone := make(chan struct{})
	run.pollDone = pollDone

	go func() {
		result := o.poller.Run(run.ctx, handle, state)
		close(pollDone)
		logger.Debug("poll %s finished after %d ticks: %s", handle.ID, result.Ticks, result.State)
		o.finish(run, result)
	}()
	return nil
}

// abortStart ends a flow whose setup failed and returns the error for the caller.
func (o *FlowOrchestrator) abortStart(run *flowRun, err error) error {
	if run.ctx.Err() != nil {
		o.finish(run, PollResult{State: domain.FlowCanceled})
		return errors.Mark(
			errors.Newf("%s authentication canceled", run.provider.DisplayName),
			domain.ErrCanceled,
		)
	}

	logger.Warn("%s authentication setup failed: %v", run.provider.DisplayName, err)
	o.finish(run, PollResult{State: domain.FlowFailed, Reason: err.Error()})
	return errors.Mark(err, domain.ErrSetup)
}

// finish is the single terminal transition of a run. It runs once; concurrent
// callers block until teardown has completed.
func (o *FlowOrchestrator) finish(run *flowRun, result PollResult) {
	run.once.Do(func() {
		run.mu.Lock()
		run.finished = true
		bound := run.bound
		pollDone := run.pollDone
		state := run.session.CorrelationState
		run.mu.Unlock()

		// Aborts the in-flight request; the poller clears its tick and deadline timers on exit.
		if result.State == domain.FlowCanceled {
			run.cancel(domain.ErrCanceled)
		} else {
			run.cancel(nil)
		}
		if pollDone != nil {
			<-pollDone
		}

		if err := run.machine.fire(terminalEvent(result.State)); err != nil {
			logger.Debug("flow %s: %v", run.session.ID, err)
		}

		if bound {
			if err := o.host.Stop(run.provider.CallbackPort); err != nil {
				logger.Warn("failed to stop callback server on port %d: %v", run.provider.CallbackPort, err)
			}
		}

		o.mu.Lock()
		if o.runs[run.provider.Type] == run {
			delete(o.runs, run.provider.Type)
		}
		o.mu.Unlock()

		run.mu.Lock()
		run.session.CorrelationState = ""
		run.session.AuthURL = ""
		run.mu.Unlock()
		o.states.Consume(state)

		o.notify(run.provider.Type, result)
		close(run.done)
	})
}

func (o *FlowOrchestrator) notify(provider domain.ProviderType, result PollResult) {
	switch result.State {
	case domain.FlowSucceeded:
		logger.Info("%s authentication succeeded", provider)
		o.notifier.OnSuccess(provider)
	case domain.FlowCanceled:
		logger.Info("%s authentication canceled", provider)
		o.notifier.OnCanceled(provider)
	default:
		logger.Warn("%s authentication ended (%s): %s", provider, result.State, result.Reason)
		o.notifier.OnError(provider, result.Reason)
	}
}

func terminalEvent(state domain.FlowState) flowEvent {
	switch state {
	case domain.FlowSucceeded:
		return eventSucceed
	case domain.FlowTimedOut:
		return eventExpire
	case domain.FlowCanceled:
		return eventCancel
	default:
		return eventFail
	}
}

// Cancel cancels every live flow. It returns after teardown has completed
// and is a no-op when nothing is running.
func (o *FlowOrchestrator) Cancel() {
	o.mu.Lock()
	runs := make([]*flowRun, 0, len(o.runs))
	for _, run := range o.runs {
		runs = append(runs, run)
	}
	o.mu.Unlock()

	for _, run := range runs {
		o.cancelRun(run)
	}
}

// CancelProvider cancels the live flow for provider, if any.
func (o *FlowOrchestrator) CancelProvider(provider domain.ProviderType) {
	o.mu.Lock()
	run := o.runs[provider]
	o.mu.Unlock()

	if run != nil {
		o.cancelRun(run)
	}
}

func (o *FlowOrchestrator) cancelRun(run *flowRun) {
	run.mu.Lock()
	setup := run.pollDone == nil && !run.finished
	run.mu.Unlock()

	if setup {
		// Start is still running; it observes the cause and finishes the run itself.
		run.cancel(domain.ErrCanceled)
		<-run.done
		return
	}
	o.finish(run, PollResult{State: domain.FlowCanceled})
}

// Active returns a snapshot of the live flow for provider, or nil.
func (o *FlowOrchestrator) Active(provider domain.ProviderType) *domain.FlowSession {
	o.mu.Lock()
	run := o.runs[provider]
	o.mu.Unlock()

	if run == nil {
		return nil
	}

	run.mu.Lock()
	session := run.session
	run.mu.Unlock()
	session.State = run.machine.current()
	return &session
}

// Done returns a channel closed when the flow for provider has ended.
// It returns nil when no flow is live.
func (o *FlowOrchestrator) Done(provider domain.ProviderType) <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	if run := o.runs[provider]; run != nil {
		return run.done
	}
	return nil
}
