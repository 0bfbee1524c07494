// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/gmx/internal/models"
)

// FakeClient is an in-memory [services.Client].
//
// Removals and deletions mutate the stored contents, so a second pass sees the deduplicated account.
type FakeClient struct {
	mu sync.Mutex

	Playlists []models.PlaylistContents
	Songs     []models.Song

	LoginOK      bool
	LoginErr     error
	PlaylistsErr error
	SongsErr     error
	RemoveErr    error
	DeleteErr    error

	LoginCalls  int
	RemoveCalls [][]string
	DeleteCalls [][]string
	DeviceID    string
}

func (f *FakeClient) Name() string { return "fake" }

func (f *FakeClient) Login(ctx context.Context, user, password, deviceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	f.DeviceID = deviceID
	if f.LoginErr != nil {
		return false, f.LoginErr
	}
	return f.LoginOK, nil
}

func (f *FakeClient) GetAllUserPlaylistContents(ctx context.Context) ([]models.PlaylistContents, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PlaylistsErr != nil {
		return nil, f.PlaylistsErr
	}

	out := make([]models.PlaylistContents, len(f.Playlists))
	for i, p := range f.Playlists {
		out[i] = models.PlaylistContents{ID: p.ID, Name: p.Name, Tracks: append([]models.TrackRef(nil), p.Tracks...)}
	}
	return out, nil
}

func (f *FakeClient) RemoveEntriesFromPlaylist(ctx context.Context, entryIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemoveCalls = append(f.RemoveCalls, append([]string(nil), entryIDs...))
	if f.RemoveErr != nil {
		return f.RemoveErr
	}

	drop := toSet(entryIDs)
	for i, p := range f.Playlists {
		kept := p.Tracks[:0:0]
		for _, t := range p.Tracks {
			if _, ok := drop[t.EntryID]; !ok {
				kept = append(kept, t)
			}
		}
		f.Playlists[i].Tracks = kept
	}
	return nil
}

func (f *FakeClient) GetAllSongs(ctx context.Context) ([]models.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SongsErr != nil {
		return nil, f.SongsErr
	}
	return append([]models.Song(nil), f.Songs...), nil
}

func (f *FakeClient) DeleteSongs(ctx context.Context, songIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls = append(f.DeleteCalls, append([]string(nil), songIDs...))
	if f.DeleteErr != nil {
		return f.DeleteErr
	}

	drop := toSet(songIDs)
	kept := f.Songs[:0:0]
	for _, s := range f.Songs {
		if _, ok := drop[s.ID]; !ok {
			kept = append(kept, s)
		}
	}
	f.Songs = kept
	return nil
}

// MutationCalls returns how many removal and deletion requests were made.
func (f *FakeClient) MutationCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.RemoveCalls) + len(f.DeleteCalls)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// FakeRecorder keeps recorded runs in memory.
type FakeRecorder struct {
	Runs []*models.Run
	Err  error
}

func (r *FakeRecorder) RecordRun(run *models.Run) error {
	if r.Err != nil {
		return r.Err
	}
	r.Runs = append(r.Runs, run)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
