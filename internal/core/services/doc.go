// Package services implements the driving port interfaces.
// Services contain the core flow logic and orchestrate
// calls to driven ports (adapters).
//
// The flow is built from small parts: StateRegistry tracks correlation
// states, flowMachine owns state transitions, AuthURLResolver and
// StatusPoller talk to the management API, and FlowOrchestrator ties them
// to the callback listener and the notifier.
package services
