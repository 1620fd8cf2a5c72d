// Package domain defines the core entities of the credential acquisition flow.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Provider: An external credential provider with a fixed callback port
//   - Connection: How the management API is reached (local or remote)
//   - FlowSession: One in-progress consent flow and its correlation state
//   - PollHandle: The polling schedule attached to a FlowSession
//   - CallbackBinding: The local redirect receiver owned by a FlowSession
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
