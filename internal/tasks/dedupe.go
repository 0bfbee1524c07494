package tasks

import (
	"sort"
	"sync"

	"github.com/desertthunder/gmx/internal/models"
)

// PlaylistDuplicates returns the entries of one playlist whose track was already seen earlier in the playlist.
//
// Entries come back in scan order. The first occurrence of every track survives.
func PlaylistDuplicates(tracks []models.TrackRef) []models.TrackRef {
	seen := make(map[string]struct{}, len(tracks))
	var dups []models.TrackRef

	for _, track := range tracks {
		if _, ok := seen[track.TrackID]; ok {
			dups = append(dups, track)
			continue
		}
		seen[track.TrackID] = struct{}{}
	}

	return dups
}

// EntryIDs collects the entry ids of refs.
func EntryIDs(refs []models.TrackRef) []string {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.EntryID
	}
	return ids
}

// LibraryResult partitions a library by [models.Song.Key].
type LibraryResult struct {
	Kept    []models.Song // One survivor per key, in order of first appearance of the key
	Removed []models.Song // Everything else, ordered by key then scan position
}

// RemovedIDs returns the song ids to delete, in report order.
func (r LibraryResult) RemovedIDs() []string {
	ids := make([]string, len(r.Removed))
	for i, song := range r.Removed {
		ids[i] = song.ID
	}
	return ids
}

// LibraryDuplicates keeps, for every derived key, the song with the greatest RecentTimestamp.
//
// Equal timestamps go to the song scanned last. Every song ends up in exactly one of Kept or Removed.
func LibraryDuplicates(songs []models.Song) LibraryResult {
	best := make(map[string]int, len(songs))
	var keys []string
	var removed []int

	for i, song := range songs {
		key := song.Key()
		j, ok := best[key]
		if !ok {
			best[key] = i
			keys = append(keys, key)
			continue
		}

		if songs[j].RecentTimestamp <= song.RecentTimestamp {
			removed = append(removed, j)
			best[key] = i
		} else {
			removed = append(removed, i)
		}
	}

	sort.Slice(removed, func(a, b int) bool {
		ka, kb := songs[removed[a]].Key(), songs[removed[b]].Key()
		if ka != kb {
			return ka < kb
		}
		return removed[a] < removed[b]
	})

	result := LibraryResult{
		Kept:    make([]models.Song, 0, len(keys)),
		Removed: make([]models.Song, 0, len(removed)),
	}
	for _, key := range keys {
		result.Kept = append(result.Kept, songs[best[key]])
	}
	for _, i := range removed {
		result.Removed = append(result.Removed, songs[i])
	}

	return result
}

// scanPlaylists runs [PlaylistDuplicates] over every playlist with a bounded worker pool.
//
// The result is indexed like playlists.
func scanPlaylists(playlists []models.PlaylistContents, workers int) [][]models.TrackRef {
	dups := make([][]models.TrackRef, len(playlists))
	if len(playlists) == 0 {
		return dups
	}

	if workers <= 0 {
		workers = 1
	}
	if workers > len(playlists) {
		workers = len(playlists)
	}

	jobs := make(chan int, len(playlists))
	for i := range playlists {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				dups[i] = PlaylistDuplicates(playlists[i].Tracks)
			}
		}()
	}
	wg.Wait()

	return dups
}
