package services

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/looplab/fsm"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/logger"
)

// flowEvent triggers a transition of the flow state machine.
type flowEvent string

const (
	eventBegin   flowEvent = "begin"
	eventReady   flowEvent = "ready"
	eventPoll    flowEvent = "poll"
	eventSucceed flowEvent = "succeed"
	eventFail    flowEvent = "fail"
	eventExpire  flowEvent = "expire"
	eventCancel  flowEvent = "cancel"
)

var liveStates = []string{
	string(domain.FlowStarting),
	string(domain.FlowAwaitingUser),
	string(domain.FlowPolling),
}

var flowEvents = fsm.Events{
	{Name: string(eventBegin), Src: []string{string(domain.FlowIdle)}, Dst: string(domain.FlowStarting)},
	{Name: string(eventReady), Src: []string{string(domain.FlowStarting)}, Dst: string(domain.FlowAwaitingUser)},
	{Name: string(eventPoll), Src: []string{string(domain.FlowAwaitingUser)}, Dst: string(domain.FlowPolling)},
	{Name: string(eventSucceed), Src: []string{string(domain.FlowPolling)}, Dst: string(domain.FlowSucceeded)},
	{Name: string(eventFail), Src: liveStates, Dst: string(domain.FlowFailed)},
	{Name: string(eventExpire), Src: []string{string(domain.FlowPolling)}, Dst: string(domain.FlowTimedOut)},
	{Name: string(eventCancel), Src: liveStates, Dst: string(domain.FlowCanceled)},
}

// flowMachine is the single transition function for one flow.
// Terminal states have no outgoing events, so any event fired after a
// terminal transition is rejected.
type flowMachine struct {
	mu sync.Mutex
	m  *fsm.FSM
}

func newFlowMachine(flowID string) *flowMachine {
	return &flowMachine{
		m: fsm.NewFSM(string(domain.FlowIdle), flowEvents, fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("flow %s: %s -> %s (%s)", flowID, e.Src, e.Dst, e.Event)
			},
		}),
	}
}

// fire applies ev. It returns an error if ev is not allowed from the current state.
// Transitions run on a background context: looplab/fsm drops a transition whose
// context is already canceled, and cancel/expire are fired exactly then.
func (f *flowMachine) fire(ev flowEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.m.Event(context.Background(), string(ev)); err != nil {
		return errors.Wrapf(err, "flow event %s from %s", ev, f.m.Current())
	}
	return nil
}

// can reports whether ev is allowed from the current state.
func (f *flowMachine) can(ev flowEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m.Can(string(ev))
}

func (f *flowMachine) current() domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.FlowState(f.m.Current())
}
