// package services defines interface Client for the music account the duplicate remover works against
//
// MusicService (via proxy)
package services

import (
	"context"

	"github.com/desertthunder/gmx/internal/models"
)

// Client is the account-content service consumed by the deduplication passes.
type Client interface {
	// Login authenticates with the account. A false result with a nil error means the service rejected the credentials.
	Login(ctx context.Context, user, password, deviceID string) (bool, error)

	// GetAllUserPlaylistContents retrieves every playlist owned by the user with its entries in order.
	GetAllUserPlaylistContents(ctx context.Context) ([]models.PlaylistContents, error)

	// RemoveEntriesFromPlaylist removes playlist entries (slots) by entry id. The songs themselves stay in the library.
	RemoveEntriesFromPlaylist(ctx context.Context, entryIDs []string) error

	// GetAllSongs retrieves every song stored in the library.
	GetAllSongs(ctx context.Context) ([]models.Song, error)

	// DeleteSongs deletes songs from the library by song id.
	DeleteSongs(ctx context.Context, songIDs []string) error

	// Name returns the name of the service (e.g., "Google Play Music")
	Name() string
}
