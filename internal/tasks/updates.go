package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a deduplication pass.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	ScanPlaylist
	RemoveEntries
	FetchSongs
	ScanLibrary
	DeleteSongs
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case ScanPlaylist:
		return "scan_playlist"
	case RemoveEntries:
		return "remove_entries"
	case FetchSongs:
		return "fetch_songs"
	case ScanLibrary:
		return "scan_library"
	case DeleteSongs:
		return "delete_songs"
	default:
		return ""
	}
}

func fetchPlaylistsUpdate(user string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Getting all playlist contents for '%s'...", user),
	}
}

// scanPlaylistUpdate carries the scanned [PlaylistResult] before any removal is attempted.
func scanPlaylistUpdate(step, total int, result PlaylistResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%d/%d#: Checking for duplicates within '%s'...", step, total, result.Name),
		Data:    result,
	}
}

func removeEntriesUpdate(step, total int, result PlaylistResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveEntries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Removing %d duplicates from '%s'...", len(result.Duplicates), result.Name),
		Data:    result,
	}
}

func fetchSongsUpdate(user string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSongs,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Getting all library contents for '%s'...", user),
	}
}

func scanLibraryUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking %d songs for duplicates...", total),
	}
}

func deleteSongsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DeleteSongs,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Deleting %d duplicate songs...", count),
	}
}
