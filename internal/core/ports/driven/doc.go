// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ManagementAPI: Issues auth URLs and reports flow status
//   - CallbackHost: Binds and releases the local redirect receiver
//   - ConfigStore: Application configuration
//   - SecretStore: Management key and remote password storage
//   - FlowNotifier: Terminal flow notifications to the user interface
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
