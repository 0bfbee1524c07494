// Package models defines the entities gmx reads from the music service and the run history it keeps.
//
// The package contains two categories of types:
//
// 1. Service records: values fetched fresh from the account on every run
//   - [TrackRef] : one entry (slot) of a playlist, pointing at a song
//   - [PlaylistContents] : a playlist with its ordered entries
//   - [Song] : a song stored in the library, with the metadata used to derive its [Song.Key]
//
// 2. History records: what a deduplication pass saw and removed
//   - [Run] : one playlist or library pass
//   - [Removal] : one removed playlist entry or deleted song
package models
