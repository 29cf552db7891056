// Package flat provides a pure Go exhaustive nearest-neighbour index.
//
// Each collection owns two co-located files: an index blob holding the dense
// float32 vector array, and a JSON sidecar mapping vector slots to chunk IDs.
// Slots are assigned sequentially from the current count and never reused.
//
// # File Layout
//
// The blob starts with a 20-byte header (magic "KBVI", format version,
// dimension, vector count) followed by little-endian float32 data.
//
// # Atomicity
//
// Saves write both files to temporaries in the same directory, fsync them,
// then rename the sidecar followed by the blob. On load, sidecar entries
// beyond the blob's count are dropped, which restores the previous snapshot
// if a crash lands between the two renames.
//
// # Thread Safety
//
// Index is not safe for concurrent use. Manager serialises appends per
// collection and lets searches reload snapshots under a shared lock.
package flat
