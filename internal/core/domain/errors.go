package domain

import "errors"

// Flow errors classify why a credential acquisition flow could not proceed.
// Adapters and services mark concrete errors with these sentinels so callers
// can match them with errors.Is while keeping the original message.
var (
	// ErrResourceBusy indicates a flow for the provider is already active,
	// or its callback port is already bound.
	ErrResourceBusy = errors.New("resource busy")

	// ErrConfiguration indicates a missing base URL or credential.
	ErrConfiguration = errors.New("configuration error")

	// ErrSetup indicates the flow could not reach the awaiting-user state.
	ErrSetup = errors.New("setup error")

	// ErrUpstream indicates the management API answered with a non-success status.
	ErrUpstream = errors.New("upstream error")

	// ErrProtocol indicates a malformed or incomplete management API response.
	ErrProtocol = errors.New("protocol error")

	// ErrTimeout indicates the flow deadline elapsed without a terminal status.
	ErrTimeout = errors.New("authentication timed out")

	// ErrCanceled indicates the user canceled the flow.
	// It is never reported through the error notification channel.
	ErrCanceled = errors.New("authentication canceled")

	// ErrUnsupportedProvider indicates an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrInvalidCredential indicates a pasted or uploaded credential that is
	// rejected before it is sent to the management API.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Reasons reported to the user when a flow fails without a server message.
const (
	// ReasonTimeout is reported when the flow deadline elapses.
	ReasonTimeout = "认证超时"

	// ReasonAuthFailed is reported when the management API reports an error
	// status without a message.
	ReasonAuthFailed = "Error occurred during authentication"
)
