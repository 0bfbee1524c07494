package tasks

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
	tu "github.com/desertthunder/gmx/internal/testing"
)

func newTestEngine(client *tu.FakeClient, recorder Recorder, dryRun bool) *DedupeEngine {
	e := NewDedupeEngine(EngineOpts{
		Client:   client,
		Recorder: recorder,
		Logger:   shared.NewLogger(&bytes.Buffer{}),
		User:     "me@example.com",
		Workers:  3,
		DryRun:   dryRun,
	})
	e.now = func() time.Time { return time.Date(2016, 4, 7, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestDedupeEngine_Playlists(t *testing.T) {
	ctx := context.Background()

	t.Run("removes duplicates per playlist in order", func(t *testing.T) {
		client := &tu.FakeClient{Playlists: []models.PlaylistContents{
			{ID: "p1", Name: "Road Trip", Tracks: refs("a", "t1", "b", "t2", "c", "t1")},
			{ID: "p2", Name: "Clean", Tracks: refs("d", "t1", "e", "t2")},
			{ID: "p3", Name: "Triples", Tracks: refs("f", "t9", "g", "t9", "h", "t9")},
		}}
		recorder := &tu.FakeRecorder{}
		engine := newTestEngine(client, recorder, false)

		result, err := engine.Playlists(ctx, nil)
		if err != nil {
			t.Fatalf("Playlists() error = %v", err)
		}

		want := [][]string{{"c"}, {"g", "h"}}
		if !reflect.DeepEqual(client.RemoveCalls, want) {
			t.Errorf("RemoveCalls = %v, want %v", client.RemoveCalls, want)
		}
		if result.TotalRemoved != 3 {
			t.Errorf("TotalRemoved = %d, want 3", result.TotalRemoved)
		}
		if len(result.Playlists) != 3 {
			t.Fatalf("expected 3 playlist results, got %d", len(result.Playlists))
		}
		if result.Playlists[1].Removed || len(result.Playlists[1].Duplicates) != 0 {
			t.Errorf("clean playlist should not be touched: %+v", result.Playlists[1])
		}
		if !result.Playlists[0].Removed || !result.Playlists[2].Removed {
			t.Errorf("expected removal calls for playlists with duplicates")
		}

		if len(recorder.Runs) != 1 {
			t.Fatalf("expected one recorded run, got %d", len(recorder.Runs))
		}
		run := recorder.Runs[0]
		if run.Pass != models.PlaylistPass || run.Scanned != 3 || run.Removed != 3 || run.FinishedAt == nil {
			t.Errorf("unexpected run %+v", run)
		}
		if run.Removals[0].Playlist != "Road Trip" || run.Removals[0].ItemID != "c" {
			t.Errorf("unexpected first removal %+v", run.Removals[0])
		}
	})

	t.Run("second run removes nothing", func(t *testing.T) {
		client := &tu.FakeClient{Playlists: []models.PlaylistContents{
			{ID: "p1", Name: "Road Trip", Tracks: refs("a", "t1", "b", "t2", "c", "t1", "d", "t2")},
		}}
		engine := newTestEngine(client, nil, false)

		if _, err := engine.Playlists(ctx, nil); err != nil {
			t.Fatalf("first run error = %v", err)
		}
		calls := len(client.RemoveCalls)

		result, err := engine.Playlists(ctx, nil)
		if err != nil {
			t.Fatalf("second run error = %v", err)
		}
		if result.TotalRemoved != 0 {
			t.Errorf("second run removed %d entries", result.TotalRemoved)
		}
		if len(client.RemoveCalls) != calls {
			t.Errorf("second run issued %d extra removal calls", len(client.RemoveCalls)-calls)
		}
	})

	t.Run("no playlists", func(t *testing.T) {
		client := &tu.FakeClient{}
		engine := newTestEngine(client, nil, false)

		result, err := engine.Playlists(ctx, nil)
		if err != nil {
			t.Fatalf("Playlists() error = %v", err)
		}
		if client.MutationCalls() != 0 {
			t.Errorf("expected no mutation calls, got %d", client.MutationCalls())
		}
		if len(result.Playlists) != 0 {
			t.Errorf("expected no results, got %v", result.Playlists)
		}
	})

	t.Run("dry run issues no removals", func(t *testing.T) {
		client := &tu.FakeClient{Playlists: []models.PlaylistContents{
			{ID: "p1", Name: "Road Trip", Tracks: refs("a", "t1", "c", "t1")},
		}}
		recorder := &tu.FakeRecorder{}
		engine := newTestEngine(client, recorder, true)

		result, err := engine.Playlists(ctx, nil)
		if err != nil {
			t.Fatalf("Playlists() error = %v", err)
		}
		if client.MutationCalls() != 0 {
			t.Errorf("dry run made %d mutation calls", client.MutationCalls())
		}
		if result.TotalRemoved != 1 || result.Playlists[0].Removed {
			t.Errorf("unexpected dry run result %+v", result)
		}
		if !recorder.Runs[0].DryRun {
			t.Error("expected recorded run to be marked dry")
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		client := &tu.FakeClient{PlaylistsErr: errors.New("network down")}
		engine := newTestEngine(client, nil, false)

		if _, err := engine.Playlists(ctx, nil); err == nil || !strings.Contains(err.Error(), "network down") {
			t.Errorf("expected fetch error, got %v", err)
		}
	})

	t.Run("removal error stops the pass", func(t *testing.T) {
		client := &tu.FakeClient{
			Playlists: []models.PlaylistContents{
				{ID: "p1", Name: "First", Tracks: refs("a", "t1", "b", "t1")},
				{ID: "p2", Name: "Second", Tracks: refs("c", "t1", "d", "t1")},
			},
			RemoveErr: errors.New("quota exceeded"),
		}
		recorder := &tu.FakeRecorder{}
		engine := newTestEngine(client, recorder, false)

		result, err := engine.Playlists(ctx, nil)
		if err == nil || !strings.Contains(err.Error(), "First") {
			t.Fatalf("expected removal error naming the playlist, got %v", err)
		}
		if len(client.RemoveCalls) != 1 {
			t.Errorf("expected the pass to stop after the first failure, got %d calls", len(client.RemoveCalls))
		}
		if result == nil || len(result.Playlists) != 1 {
			t.Fatalf("expected partial result, got %+v", result)
		}
		if len(recorder.Runs) != 1 || recorder.Runs[0].FinishedAt != nil || recorder.Runs[0].Removed != 0 {
			t.Errorf("expected unfinished run without removals, got %+v", recorder.Runs)
		}
	})

	t.Run("recorder failure is not fatal", func(t *testing.T) {
		client := &tu.FakeClient{Playlists: []models.PlaylistContents{{ID: "p1", Name: "One", Tracks: refs("a", "t1")}}}
		engine := newTestEngine(client, &tu.FakeRecorder{Err: errors.New("disk full")}, false)

		if _, err := engine.Playlists(ctx, nil); err != nil {
			t.Errorf("expected recorder failure to be ignored, got %v", err)
		}
	})

	t.Run("progress updates", func(t *testing.T) {
		client := &tu.FakeClient{Playlists: []models.PlaylistContents{
			{ID: "p1", Name: "Road Trip", Tracks: refs("a", "t1", "c", "t1")},
		}}
		engine := newTestEngine(client, nil, false)
		progress := make(chan ProgressUpdate, 10)

		if _, err := engine.Playlists(ctx, progress); err != nil {
			t.Fatalf("Playlists() error = %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{FetchPlaylists, ScanPlaylist, RemoveEntries}
		if !reflect.DeepEqual(phases, want) {
			t.Errorf("phases = %v, want %v", phases, want)
		}
	})

	t.Run("scan updates arrive before each removal", func(t *testing.T) {
		client := &tu.FakeClient{Playlists: []models.PlaylistContents{
			{ID: "p1", Name: "Road Trip", Tracks: refs("a", "t1", "c", "t1")},
			{ID: "p2", Name: "Clean", Tracks: refs("d", "t1")},
			{ID: "p3", Name: "Triples", Tracks: refs("f", "t9", "g", "t9")},
		}}
		engine := newTestEngine(client, nil, false)
		progress := make(chan ProgressUpdate)

		type scan struct {
			name      string
			mutations int
		}
		scans := make(chan []scan, 1)
		go func() {
			var got []scan
			for u := range progress {
				if u.Phase != ScanPlaylist {
					continue
				}
				res, ok := u.Data.(PlaylistResult)
				if !ok {
					t.Errorf("scan update carries %T, want PlaylistResult", u.Data)
					continue
				}
				got = append(got, scan{res.Name, client.MutationCalls()})
			}
			scans <- got
		}()

		_, err := engine.Playlists(ctx, progress)
		close(progress)
		if err != nil {
			t.Fatalf("Playlists() error = %v", err)
		}

		want := []scan{{"Road Trip", 0}, {"Clean", 1}, {"Triples", 1}}
		if got := <-scans; !reflect.DeepEqual(got, want) {
			t.Errorf("scans = %v, want %v", got, want)
		}
	})

	t.Run("slow consumer sees every update", func(t *testing.T) {
		playlists := make([]models.PlaylistContents, 40)
		for i := range playlists {
			playlists[i] = models.PlaylistContents{ID: "p", Name: "P", Tracks: refs("a", "t1", "b", "t1")}
		}
		engine := newTestEngine(&tu.FakeClient{Playlists: playlists}, nil, false)
		progress := make(chan ProgressUpdate)

		counted := make(chan int, 1)
		go func() {
			n := 0
			for range progress {
				time.Sleep(time.Millisecond)
				n++
			}
			counted <- n
		}()

		_, err := engine.Playlists(ctx, progress)
		close(progress)
		if err != nil {
			t.Fatalf("Playlists() error = %v", err)
		}
		if n := <-counted; n != 1+2*len(playlists) {
			t.Errorf("received %d updates, want %d", n, 1+2*len(playlists))
		}
	})

	t.Run("undrained progress does not block a cancelled pass", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		client := &tu.FakeClient{Playlists: []models.PlaylistContents{{ID: "p1", Name: "One", Tracks: refs("a", "t1")}}}
		engine := newTestEngine(client, nil, false)

		done := make(chan struct{})
		go func() {
			defer close(done)
			engine.Playlists(cctx, make(chan ProgressUpdate))
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Playlists blocked on an undrained channel after cancellation")
		}
	})

	t.Run("nil client", func(t *testing.T) {
		engine := NewDedupeEngine(EngineOpts{})
		if _, err := engine.Playlists(ctx, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestDedupeEngine_Library(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes older copy", func(t *testing.T) {
		client := &tu.FakeClient{Songs: []models.Song{
			song("s1", "A", 1, 1, "X", 100),
			song("s2", "A", 1, 1, "X", 200),
		}}
		recorder := &tu.FakeRecorder{}
		engine := newTestEngine(client, recorder, false)

		result, err := engine.Library(ctx, nil)
		if err != nil {
			t.Fatalf("Library() error = %v", err)
		}
		if !reflect.DeepEqual(client.DeleteCalls, [][]string{{"s1"}}) {
			t.Errorf("DeleteCalls = %v, want [[s1]]", client.DeleteCalls)
		}
		if !result.Deleted || result.Songs != 2 {
			t.Errorf("unexpected result %+v", result)
		}
		if len(client.Songs) != 1 || client.Songs[0].ID != "s2" {
			t.Errorf("expected s2 to remain, got %v", client.Songs)
		}

		run := recorder.Runs[0]
		if run.Pass != models.LibraryPass || run.Removed != 1 || run.Removals[0].Key != "A: 01-01 X" {
			t.Errorf("unexpected run %+v", run)
		}
	})

	t.Run("single deletion call in key order", func(t *testing.T) {
		client := &tu.FakeClient{Songs: []models.Song{
			song("z1", "Zed", 1, 1, "Z", 1),
			song("a1", "Abba", 1, 1, "A", 1),
			song("z2", "Zed", 1, 1, "Z", 2),
			song("a2", "Abba", 1, 1, "A", 2),
			song("a3", "Abba", 1, 1, "A", 3),
		}}
		engine := newTestEngine(client, nil, false)

		if _, err := engine.Library(ctx, nil); err != nil {
			t.Fatalf("Library() error = %v", err)
		}
		if !reflect.DeepEqual(client.DeleteCalls, [][]string{{"a1", "a2", "z1"}}) {
			t.Errorf("DeleteCalls = %v", client.DeleteCalls)
		}
	})

	t.Run("no duplicates skips deletion", func(t *testing.T) {
		client := &tu.FakeClient{Songs: []models.Song{
			song("s1", "A", 1, 1, "X", 100),
			song("s2", "A", 1, 2, "Y", 100),
		}}
		engine := newTestEngine(client, nil, false)

		result, err := engine.Library(ctx, nil)
		if err != nil {
			t.Fatalf("Library() error = %v", err)
		}
		if client.MutationCalls() != 0 || result.Deleted {
			t.Errorf("expected no deletion call")
		}
	})

	t.Run("empty library", func(t *testing.T) {
		client := &tu.FakeClient{}
		engine := newTestEngine(client, nil, false)

		if _, err := engine.Library(ctx, nil); err != nil {
			t.Fatalf("Library() error = %v", err)
		}
		if client.MutationCalls() != 0 {
			t.Errorf("expected no mutation calls")
		}
	})

	t.Run("dry run", func(t *testing.T) {
		client := &tu.FakeClient{Songs: []models.Song{
			song("s1", "A", 1, 1, "X", 100),
			song("s2", "A", 1, 1, "X", 200),
		}}
		engine := newTestEngine(client, nil, true)

		result, err := engine.Library(ctx, nil)
		if err != nil {
			t.Fatalf("Library() error = %v", err)
		}
		if client.MutationCalls() != 0 || result.Deleted {
			t.Errorf("dry run should not delete")
		}
		if len(result.Library.Removed) != 1 {
			t.Errorf("dry run should still report duplicates")
		}
	})

	t.Run("delete error", func(t *testing.T) {
		client := &tu.FakeClient{
			Songs:     []models.Song{song("s1", "A", 1, 1, "X", 1), song("s2", "A", 1, 1, "X", 2)},
			DeleteErr: errors.New("forbidden"),
		}
		recorder := &tu.FakeRecorder{}
		engine := newTestEngine(client, recorder, false)

		result, err := engine.Library(ctx, nil)
		if err == nil || !strings.Contains(err.Error(), "forbidden") {
			t.Fatalf("expected delete error, got %v", err)
		}
		if result == nil || result.Deleted {
			t.Errorf("expected partial result without deletion, got %+v", result)
		}
		if recorder.Runs[0].FinishedAt != nil {
			t.Error("expected unfinished run")
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		client := &tu.FakeClient{SongsErr: errors.New("timeout")}
		engine := newTestEngine(client, nil, false)

		if _, err := engine.Library(ctx, nil); err == nil {
			t.Error("expected fetch error")
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPlaylists: "fetch_playlists",
		ScanPlaylist:   "scan_playlist",
		RemoveEntries:  "remove_entries",
		FetchSongs:     "fetch_songs",
		ScanLibrary:    "scan_library",
		DeleteSongs:    "delete_songs",
		Phase(99):      "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
