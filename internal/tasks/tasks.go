// Package tasks implements the duplicate removal passes.
//
// The core abstraction is DedupeEngine, which fetches account contents through a [services.Client],
// computes duplicates and issues the removal calls. Operations emit progress updates via channels.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
)

// PlaylistResult holds the duplicates found in one playlist.
type PlaylistResult struct {
	ID         string
	Name       string
	Tracks     int               // Entries scanned
	Duplicates []models.TrackRef // Entries to remove, in playlist order
	Removed    bool              // Whether the removal call was issued
}

// PlaylistPassResult contains all data from a playlist pass.
type PlaylistPassResult struct {
	Run          *models.Run
	Playlists    []PlaylistResult // In the order the service returned them
	TotalRemoved int              // Entries removed (or that would be, on a dry run)
}

// LibraryPassResult contains all data from a library pass.
type LibraryPassResult struct {
	Run     *models.Run
	Songs   int // Songs scanned
	Library LibraryResult
	Deleted bool // Whether the deletion call was issued
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(run *models.Run) error
}

// Deduplicator defines the two duplicate removal passes.
//
// A non-nil progress channel receives every update in order and must be drained while the pass runs.
type Deduplicator interface {
	// Playlists removes repeated tracks within every playlist, keeping the first occurrence.
	Playlists(ctx context.Context, progress chan<- ProgressUpdate) (*PlaylistPassResult, error)

	// Library deletes library songs sharing a derived key, keeping the most recently played one.
	Library(ctx context.Context, progress chan<- ProgressUpdate) (*LibraryPassResult, error)
}

// EngineOpts contains configuration options for creating a DedupeEngine.
type EngineOpts struct {
	Client   services.Client
	Recorder Recorder // Optional
	Logger   *log.Logger
	User     string
	Workers  int  // Playlist scan workers
	DryRun   bool // Report only, issue no mutations
}

// DedupeEngine implements Deduplicator against a logged-in [services.Client].
type DedupeEngine struct {
	client   services.Client
	recorder Recorder
	logger   *log.Logger
	user     string
	workers  int
	dryRun   bool
	now      func() time.Time
}

// NewDedupeEngine creates a new DedupeEngine with the provided options.
func NewDedupeEngine(opts EngineOpts) *DedupeEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	return &DedupeEngine{
		client:   opts.Client,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		user:     opts.User,
		workers:  opts.Workers,
		dryRun:   opts.DryRun,
		now:      time.Now,
	}
}

// sendProgress delivers update unless ctx is done first. Callers passing a channel must drain it.
func (e *DedupeEngine) sendProgress(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}

func (e *DedupeEngine) newRun(pass models.Pass) *models.Run {
	return &models.Run{
		ID:        shared.GenerateID(),
		Pass:      pass,
		User:      e.user,
		DryRun:    e.dryRun,
		StartedAt: e.now(),
	}
}

// record stores run when a recorder is configured. Failures are logged and otherwise ignored.
func (e *DedupeEngine) record(run *models.Run, finished bool) {
	if finished {
		t := e.now()
		run.FinishedAt = &t
	}
	run.Removed = len(run.Removals)

	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordRun(run); err != nil {
		e.logger.Warn("failed to record run history", "run", run.ID, "error", err)
	}
}

// Playlists scans every playlist and removes entries repeating an earlier track.
//
// Scans run on the worker pool; removal calls go out one playlist at a time in service order,
// and only for playlists that have duplicates.
func (e *DedupeEngine) Playlists(ctx context.Context, progress chan<- ProgressUpdate) (*PlaylistPassResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: client not initialized", shared.ErrServiceUnavailable)
	}

	logger := shared.WithLogger(e.logger, "pass", models.PlaylistPass)
	run := e.newRun(models.PlaylistPass)
	result := &PlaylistPassResult{Run: run}

	e.sendProgress(ctx, progress, fetchPlaylistsUpdate(e.user))
	playlists, err := e.client.GetAllUserPlaylistContents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist contents: %w", err)
	}
	run.Scanned = len(playlists)
	logger.Debug("fetched playlists", "count", len(playlists))

	dups := scanPlaylists(playlists, e.workers)

	total := len(playlists)
	for i, playlist := range playlists {
		res := PlaylistResult{
			ID:         playlist.ID,
			Name:       playlist.Name,
			Tracks:     len(playlist.Tracks),
			Duplicates: dups[i],
		}
		e.sendProgress(ctx, progress, scanPlaylistUpdate(i+1, total, res))

		if len(res.Duplicates) > 0 {
			for _, dup := range res.Duplicates {
				logger.Debug("found duplicate", "playlist", playlist.Name, "trackId", dup.TrackID, "entryId", dup.EntryID)
			}

			if !e.dryRun {
				e.sendProgress(ctx, progress, removeEntriesUpdate(i+1, total, res))
				if err := e.client.RemoveEntriesFromPlaylist(ctx, EntryIDs(res.Duplicates)); err != nil {
					result.Playlists = append(result.Playlists, res)
					e.record(run, false)
					return result, fmt.Errorf("failed to remove duplicates from '%s': %w", playlist.Name, err)
				}
				res.Removed = true
			}

			for _, dup := range res.Duplicates {
				run.Removals = append(run.Removals, models.EntryRemoval(playlist.Name, dup))
			}
			result.TotalRemoved += len(res.Duplicates)
		}

		result.Playlists = append(result.Playlists, res)
	}

	e.record(run, true)
	logger.Info("playlist pass complete", "playlists", total, "removed", result.TotalRemoved, "dry_run", e.dryRun)
	return result, nil
}

// Library deletes every song that is not the most recently played copy of its derived key.
//
// At most one deletion call is issued, listing the song ids in key order.
func (e *DedupeEngine) Library(ctx context.Context, progress chan<- ProgressUpdate) (*LibraryPassResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: client not initialized", shared.ErrServiceUnavailable)
	}

	logger := shared.WithLogger(e.logger, "pass", models.LibraryPass)
	run := e.newRun(models.LibraryPass)

	e.sendProgress(ctx, progress, fetchSongsUpdate(e.user))
	songs, err := e.client.GetAllSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get library songs: %w", err)
	}
	run.Scanned = len(songs)

	e.sendProgress(ctx, progress, scanLibraryUpdate(len(songs)))
	library := LibraryDuplicates(songs)
	result := &LibraryPassResult{Run: run, Songs: len(songs), Library: library}

	if len(library.Removed) > 0 && !e.dryRun {
		e.sendProgress(ctx, progress, deleteSongsUpdate(len(library.Removed)))
		if err := e.client.DeleteSongs(ctx, library.RemovedIDs()); err != nil {
			e.record(run, false)
			return result, fmt.Errorf("failed to delete duplicate songs: %w", err)
		}
		result.Deleted = true
	}

	for _, song := range library.Removed {
		run.Removals = append(run.Removals, models.SongRemoval(song))
	}

	e.record(run, true)
	logger.Info("library pass complete", "songs", len(songs), "kept", len(library.Kept), "removed", len(library.Removed), "dry_run", e.dryRun)
	return result, nil
}
