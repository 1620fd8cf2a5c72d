package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/logger"
)

// ConnectionSource yields the current management connection.
// It is consulted on every poll tick so connection edits take effect mid-flow.
type ConnectionSource interface {
	Connection(ctx context.Context) (domain.Connection, error)
}

// PollResult is the terminal outcome of a poll run.
type PollResult struct {
	// State is one of FlowSucceeded, FlowFailed, FlowTimedOut or FlowCanceled.
	State domain.FlowState
	// Reason is the human-readable failure reason. Empty on success and cancel.
	Reason string
	// Ticks is the number of status requests issued.
	Ticks int
}

// StatusPoller polls the management API for the status of one correlation state.
type StatusPoller struct {
	api         driven.ManagementAPI
	connections ConnectionSource
	interval    time.Duration
	timeout     time.Duration
}

// NewStatusPoller creates a poller. Zero durations fall back to the defaults.
func NewStatusPoller(
	api driven.ManagementAPI,
	connections ConnectionSource,
	interval, timeout time.Duration,
) *StatusPoller {
	if interval <= 0 {
		interval = domain.DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = domain.DefaultFlowTimeout
	}
	return &StatusPoller{
		api:         api,
		connections: connections,
		interval:    interval,
		timeout:     timeout,
	}
}

// NewHandle creates the poll handle for a run starting now.
func (p *StatusPoller) NewHandle() domain.PollHandle {
	return domain.PollHandle{
		ID:       uuid.New().String(),
		Interval: p.interval,
		Deadline: time.Now().Add(p.timeout),
	}
}

// Run polls on handle.Interval until a terminal status, an error, the handle's
// deadline or cancellation of ctx. The deadline aborts an in-flight request.
// An aborted request is never reported as a failure.
func (p *StatusPoller) Run(ctx context.Context, handle domain.PollHandle, state string) PollResult {
	pollCtx, cancel := context.WithDeadlineCause(ctx, handle.Deadline, domain.ErrTimeout)
	defer cancel()

	ticker := time.NewTicker(handle.Interval)
	defer ticker.Stop()

	logger.Debug("poll %s started for state %s, deadline %s",
		handle.ID, state, handle.Deadline.Format(time.RFC3339))

	ticks := 0
	for {
		select {
		case <-pollCtx.Done():
			return stopped(pollCtx, ticks)
		case <-ticker.C:
			if pollCtx.Err() != nil {
				return stopped(pollCtx, ticks)
			}
			ticks++
			if result, done := p.tick(pollCtx, state); done {
				result.Ticks = ticks
				return result
			}
		}
	}
}

// tick issues one status request. done is false while the flow should keep polling.
func (p *StatusPoller) tick(ctx context.Context, state string) (PollResult, bool) {
	conn, err := p.connections.Connection(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return stopped(ctx, 0), true
		}
		return PollResult{State: domain.FlowFailed, Reason: err.Error()}, true
	}

	status, err := p.api.GetAuthStatus(ctx, conn, state)
	if err != nil {
		if ctx.Err() != nil {
			return stopped(ctx, 0), true
		}
		logger.Warn("polling authentication status failed: %v", err)
		return PollResult{State: domain.FlowFailed, Reason: err.Error()}, true
	}

	logger.Debug("authentication status for %s: %s", state, status.Status)

	switch status.Status {
	case domain.AuthStatusOK:
		return PollResult{State: domain.FlowSucceeded}, true
	case domain.AuthStatusError:
		reason := status.Error
		if reason == "" {
			reason = domain.ReasonAuthFailed
		}
		return PollResult{State: domain.FlowFailed, Reason: reason}, true
	default:
		return PollResult{}, false
	}
}

// stopped classifies a finished poll context as timed out or canceled.
func stopped(ctx context.Context, ticks int) PollResult {
	if errors.Is(context.Cause(ctx), domain.ErrTimeout) {
		return PollResult{State: domain.FlowTimedOut, Reason: domain.ReasonTimeout, Ticks: ticks}
	}
	return PollResult{State: domain.FlowCanceled, Ticks: ticks}
}
