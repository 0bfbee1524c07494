// Package repositories implements SQLite persistence for deduplication run history.
//
// Key Implementations:
//   - [RunRepository] : Stores each pass with the playlist entries or songs it removed
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
