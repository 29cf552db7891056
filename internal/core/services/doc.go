// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion and query pipelines live here. Both resolve a collection's
// provider through the provider directory on every call, so there is no
// process-wide default provider.
package services
