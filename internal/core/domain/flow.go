package domain

import (
	"fmt"
	"strings"
	"time"
)

// FlowState is a state of the acquisition flow state machine.
type FlowState string

const (
	// FlowIdle means no flow is running.
	FlowIdle FlowState = "idle"
	// FlowStarting means the listener is being bound and the auth URL resolved.
	FlowStarting FlowState = "starting"
	// FlowAwaitingUser means the auth URL is ready to be opened.
	FlowAwaitingUser FlowState = "awaiting_user"
	// FlowPolling means the management API is being polled for completion.
	FlowPolling FlowState = "polling"
	// FlowSucceeded is terminal: the credential was acquired.
	FlowSucceeded FlowState = "succeeded"
	// FlowFailed is terminal: the flow reported or hit an error.
	FlowFailed FlowState = "failed"
	// FlowTimedOut is terminal: the deadline elapsed.
	FlowTimedOut FlowState = "timed_out"
	// FlowCanceled is terminal: the user canceled.
	FlowCanceled FlowState = "canceled"
)

// IsTerminal reports whether no further transition can happen from s.
func (s FlowState) IsTerminal() bool {
	switch s {
	case FlowSucceeded, FlowFailed, FlowTimedOut, FlowCanceled:
		return true
	default:
		return false
	}
}

// Flow timing defaults.
const (
	// DefaultPollInterval is the delay between status requests.
	DefaultPollInterval = 2000 * time.Millisecond
	// DefaultFlowTimeout is the hard deadline measured from polling start.
	DefaultFlowTimeout = 300000 * time.Millisecond
	// DefaultCallbackShutdownDelay lets the browser follow the redirect
	// before the callback listener goes away.
	DefaultCallbackShutdownDelay = time.Second
)

// FlowSession is one in-progress consent flow.
type FlowSession struct {
	// ID uniquely identifies this flow for logging.
	ID string
	// Provider is the provider the credential is acquired for.
	Provider ProviderType
	// CorrelationState binds this flow to the provider's asynchronous result.
	CorrelationState string
	// AuthURL is the consent URL the user opens.
	AuthURL string
	// CreatedAt is when the flow was started.
	CreatedAt time.Time
	// State is the state at the time the session value was taken.
	State FlowState
}

// PollHandle describes the polling schedule of one FlowSession.
type PollHandle struct {
	// ID identifies the poll run.
	ID string
	// Interval is the delay between status requests.
	Interval time.Duration
	// Deadline is the wall-clock instant after which the flow times out.
	Deadline time.Time
}

// CallbackBinding is the local redirect receiver owned by a FlowSession.
type CallbackBinding struct {
	// ListenPort is the fixed loopback port the provider redirects to.
	ListenPort int
	// Provider selects the management callback path.
	Provider ProviderType
	// Mode is the management connection mode the redirect targets.
	Mode ConnectionMode
	// TargetBaseURL is the management base URL the redirect is forwarded to.
	TargetBaseURL string
}

// NewCallbackBinding builds the binding for provider p over connection c.
func NewCallbackBinding(p Provider, c Connection) (CallbackBinding, error) {
	base, err := c.ManagementBase()
	if err != nil {
		return CallbackBinding{}, err
	}
	mode := ModeLocal
	if !c.IsLocal() {
		mode = ModeRemote
	}
	return CallbackBinding{
		ListenPort:    p.CallbackPort,
		Provider:      p.Type,
		Mode:          mode,
		TargetBaseURL: base,
	}, nil
}

// RedirectTarget computes where a provider redirect is forwarded.
// rawQuery is passed through unchanged; an empty query adds no "?".
func (b CallbackBinding) RedirectTarget(rawQuery string) (string, error) {
	base := strings.TrimSpace(b.TargetBaseURL)
	if base == "" {
		return "", fmt.Errorf("%w: missing base-url configuration", ErrConfiguration)
	}
	target := strings.TrimRight(base, "/") + "/" + string(b.Provider) + "/callback"
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target, nil
}

// AuthURL is the consent URL and correlation state issued by the management API.
type AuthURL struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// AuthStatusValue is the status reported for a correlation state.
type AuthStatusValue string

const (
	// AuthStatusOK means the credential was stored.
	AuthStatusOK AuthStatusValue = "ok"
	// AuthStatusError means the provider or server reported a failure.
	AuthStatusError AuthStatusValue = "error"
	// AuthStatusWait means the user has not finished yet.
	AuthStatusWait AuthStatusValue = "wait"
)

// AuthStatus is the management API's view of a flow.
type AuthStatus struct {
	Status AuthStatusValue `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// AuthFile is a credential file known to the management API.
type AuthFile struct {
	Name    string    `json:"name"`
	Type    string    `json:"type,omitempty"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"modtime,omitempty"`
}
