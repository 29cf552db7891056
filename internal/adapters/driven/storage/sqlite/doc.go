// Package sqlite provides a unified SQLite-based implementation of the
// relational store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. It implements three store interfaces through a single
// database connection:
//
//   - CollectionStore: collection configuration
//   - DocumentStore: documents, chunks and embedding audit rows
//   - QueryLogStore: answered queries and their feedback
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// Deleting a collection cascades to its documents, chunks, embeddings and
// query logs.
//
// # Data Location
//
// By default, the database is stored at ~/.kbase/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
