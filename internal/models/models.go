package models

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// TrackRef is a single occurrence of a song inside a playlist.
type TrackRef struct {
	EntryID string `json:"id"`      // Unique per playlist slot, even for duplicates
	TrackID string `json:"trackId"` // Identity of the underlying song
}

// PlaylistContents is a playlist with its entries in playlist order.
type PlaylistContents struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Tracks []TrackRef `json:"tracks"`
}

// Song is a song record stored in the library.
//
// Missing metadata decodes to zero values; such songs still produce a (degenerate) key.
type Song struct {
	ID              string    `json:"id"`
	Album           string    `json:"album"`
	Artist          string    `json:"artist"`
	DiscNumber      int       `json:"discNumber"`
	TrackNumber     int       `json:"trackNumber"`
	Title           string    `json:"title"`
	RecentTimestamp Timestamp `json:"recentTimestamp"` // Last played, larger is more recent
}

// Key returns the derived identity key: album, zero-padded disc and track numbers, and title.
//
// Two songs with the same key are the same logical song.
func (s Song) Key() string {
	return fmt.Sprintf("%s: %02d-%02d %s", s.Album, s.DiscNumber, s.TrackNumber, s.Title)
}

// Timestamp is an epoch-like last-played value in microseconds.
//
// The service sends it as a quoted string; plain numbers and null are accepted too.
type Timestamp int64

// UnmarshalJSON implements [json.Unmarshaler].
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*t = 0
		return nil
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", data, err)
	}
	*t = Timestamp(v)
	return nil
}

// Pass names a deduplication pass.
type Pass string

const (
	PlaylistPass Pass = "playlist"
	LibraryPass  Pass = "library"
)

// Valid reports whether p is a known pass.
func (p Pass) Valid() bool {
	return p == PlaylistPass || p == LibraryPass
}

// Run records one deduplication pass.
type Run struct {
	ID         string     `json:"id"`
	Sequence   int        `json:"sequence"`
	Pass       Pass       `json:"pass"`
	User       string     `json:"user"`
	DryRun     bool       `json:"dry_run"`
	Scanned    int        `json:"scanned"` // Playlists for the playlist pass, songs for the library pass
	Removed    int        `json:"removed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Removals   []Removal  `json:"removals,omitempty"`
}

// Validate checks the fields required before a run can be stored.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if !r.Pass.Valid() {
		return fmt.Errorf("invalid pass %q", r.Pass)
	}
	if r.User == "" {
		return fmt.Errorf("run user is required")
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("run start time is required")
	}
	return nil
}

// Removal is one playlist entry removed or one song deleted by a run.
type Removal struct {
	Pass            Pass      `json:"pass"`
	Playlist        string    `json:"playlist,omitempty"`
	Key             string    `json:"key"`                // Track id for entries, derived key for songs
	ItemID          string    `json:"item_id"`            // Entry id or song id
	TrackID         string    `json:"track_id,omitempty"` // Set for playlist entries
	RecentTimestamp Timestamp `json:"recent_timestamp,omitempty"`
}

// EntryRemoval builds the [Removal] for a duplicate playlist entry.
func EntryRemoval(playlist string, ref TrackRef) Removal {
	return Removal{
		Pass:     PlaylistPass,
		Playlist: playlist,
		Key:      ref.TrackID,
		ItemID:   ref.EntryID,
		TrackID:  ref.TrackID,
	}
}

// SongRemoval builds the [Removal] for a duplicate library song.
func SongRemoval(song Song) Removal {
	return Removal{
		Pass:            LibraryPass,
		Key:             song.Key(),
		ItemID:          song.ID,
		RecentTimestamp: song.RecentTimestamp,
	}
}
