// package formatter renders deduplication results as console reports, CSV removal reports and run history listings
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func NewPalette(t, s, e, w, m string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		muted: NewEm(m),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Header renders a section title framed by rules
func Header(title string) string {
	rule := "═══════════════════════════════════════"
	return fmt.Sprintf("%s\n%s\n%s\n", rule, styles.title.Render(title), rule)
}

// Failure renders an error line
func Failure(message string) string {
	return styles.err.Render(message)
}

type reportWriter struct {
	w   io.Writer
	err error
}

func (r *reportWriter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// WritePlaylistScan writes the outcome of scanning one playlist, as it happens.
//
// step counts from 1 in service order. It is written before removal is attempted.
func WritePlaylistScan(w io.Writer, step, total int, playlist tasks.PlaylistResult, dryRun bool) error {
	rw := &reportWriter{w: w}

	rw.printf("%d/%d#: Checking for duplicates within '%s'...\n", step, total, playlist.Name)
	for _, dup := range playlist.Duplicates {
		rw.printf("    Found duplicate with trackId: %s\n", dup.TrackID)
	}

	switch {
	case len(playlist.Duplicates) == 0:
		rw.printf("    %s\n", styles.ok.Render("==> No duplicates found <=="))
	case dryRun:
		rw.printf("    %s\n", styles.warn.Render(fmt.Sprintf("==> *** WOULD REMOVE %d DUPLICATES *** <==", len(playlist.Duplicates))))
	default:
		rw.printf("    %s\n", styles.warn.Render(fmt.Sprintf("==> *** REMOVING %d DUPLICATES *** <==", len(playlist.Duplicates))))
	}

	if rw.err != nil {
		return fmt.Errorf("failed to write output: %w", rw.err)
	}
	return nil
}

// WritePlaylistSummary writes the closing line of a playlist pass.
//
// A partial result (from a failed removal) reports how many playlists were processed out of the total scanned.
func WritePlaylistSummary(w io.Writer, result *tasks.PlaylistPassResult) error {
	rw := &reportWriter{w: w}
	processed := len(result.Playlists)
	total := processed
	if result.Run != nil && result.Run.Scanned > total {
		total = result.Run.Scanned
	}

	if processed == total {
		rw.printf("Processed all %d playlists\n", total)
	} else {
		rw.printf("%s\n", Failure(fmt.Sprintf("Processed %d of %d playlists", processed, total)))
	}

	if rw.err != nil {
		return fmt.Errorf("failed to write output: %w", rw.err)
	}
	return nil
}

// WriteLibraryReport writes the outcome of a library pass.
//
// Each derived key with at least one deleted song is listed once, in key order.
func WriteLibraryReport(w io.Writer, result *tasks.LibraryPassResult, dryRun bool) error {
	rw := &reportWriter{w: w}
	removed := result.Library.Removed

	if len(removed) > 0 {
		rw.printf("Found duplicate songs\n")

		last := ""
		for i, song := range removed {
			key := song.Key()
			if i > 0 && key == last {
				continue
			}
			last = key
			rw.printf("    ==> %s <==\n", key)
		}

		if dryRun {
			rw.printf("%s\n", styles.warn.Render(fmt.Sprintf("Would delete %d duplicate songs (dry run)", len(removed))))
		} else {
			rw.printf("%s\n", styles.warn.Render("Deleting duplicate songs..."))
		}
	} else {
		rw.printf("%s\n", styles.ok.Render("No duplicate songs"))
	}

	rw.printf("Processed all %d songs\n", result.Songs)

	if rw.err != nil {
		return fmt.Errorf("failed to write output: %w", rw.err)
	}
	return nil
}

// RemovalsToCSV converts the removals of every run to CSV with columns: pass, playlist, key, id, track_id, timestamp
func RemovalsToCSV(runs ...*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"pass", "playlist", "key", "id", "track_id", "timestamp"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		if run == nil {
			continue
		}
		for _, removal := range run.Removals {
			timestamp := ""
			if removal.Pass == models.LibraryPass {
				timestamp = strconv.FormatInt(int64(removal.RecentTimestamp), 10)
			}

			record := []string{
				string(removal.Pass),
				removal.Playlist,
				removal.Key,
				removal.ItemID,
				removal.TrackID,
				timestamp,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteRemovalReport writes the CSV removal report for runs to path.
func WriteRemovalReport(path string, runs ...*models.Run) error {
	if path == "" {
		return fmt.Errorf("empty report path")
	}

	data, err := RemovalsToCSV(runs...)
	if err != nil {
		return fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}

	return nil
}

// WriteHistory writes one line per run, newest first as given.
func WriteHistory(w io.Writer, runs []*models.Run) error {
	rw := &reportWriter{w: w}

	if len(runs) == 0 {
		rw.printf("%s\n", styles.muted.Render("No runs recorded"))
	}

	for _, run := range runs {
		status := styles.ok.Render("done")
		if run.FinishedAt == nil {
			status = Failure("failed")
		}

		mode := ""
		if run.DryRun {
			mode = " " + styles.muted.Render("(dry run)")
		}

		rw.printf("#%d  %s  %-8s  %s  scanned=%d removed=%d  %s%s\n",
			run.Sequence,
			run.StartedAt.Local().Format(time.DateTime),
			run.Pass,
			run.User,
			run.Scanned,
			run.Removed,
			status,
			mode,
		)
	}

	if rw.err != nil {
		return fmt.Errorf("failed to write output: %w", rw.err)
	}
	return nil
}
