// Package memory provides in-memory implementations of the relational store
// ports. They hold no state across processes and are used by service tests
// and anywhere a throwaway store is enough.
//
// Unlike the SQLite store, the memory stores are independent: deleting a
// collection does not cascade to documents or query logs held by another
// store instance.
package memory
