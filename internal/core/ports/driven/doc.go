// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Provider: Embeds text and completes prompts for one vendor
//   - ProviderFactory: Builds a Provider from resolved settings
//   - ProviderDirectory: Resolves a provider name to connection settings
//   - VectorIndexStore: Per-collection flat vector indexes on disk
//   - CollectionStore, DocumentStore, QueryLogStore: Relational persistence
//   - Chunker, ChunkerRegistry: Word-window chunking by strategy tag
//   - Normaliser, NormaliserRegistry: Text extraction by file extension
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
