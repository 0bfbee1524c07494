// Package tasks implements the two duplicate removal passes with real-time progress reporting.
//
// # Core Operations
//
// The [Deduplicator] interface defines two operations:
//
//  1. [Deduplicator.Playlists] : Playlist pass
//     - Fetches every playlist with its entries
//     - Scans playlists on a small worker pool
//     - Removes entries whose track already appeared earlier in the same playlist
//
//  2. [Deduplicator.Library] : Library pass
//     - Fetches every song in the library
//     - Groups songs by [models.Song.Key]
//     - Deletes all but the most recently played song per key in one call
//
// # Progress Reporting
//
// Both passes send every update on the caller's channel, in order, blocking until it is
// received or the context is done. The CLI prints each playlist scan as it arrives.
//
// # Run History
//
// The optional [Recorder] interface persists each pass as a [models.Run].
// Recording errors are logged and ignored.
//
// # Implementation
//
// [DedupeEngine] implements [Deduplicator] with dependencies on:
//   - [services.Client] : music service client, already logged in
//   - [Recorder] : optional persistence layer (repositories.RunRepository)
package tasks
