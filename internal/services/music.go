// Mobileclient proxy implementation of [Client]
//
// Communicates with a proxy server that wraps the unofficial Google Play Music Mobileclient API.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultProxyURL  string  = "http://localhost:8080"
	defaultRateLimit float64 = 2
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type loginResponse struct {
	LoggedIn bool   `json:"logged_in"`
	Token    string `json:"token"`
}

type removeEntriesRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

type deleteSongsRequest struct {
	SongIDs []string `json:"song_ids"`
}

// MusicServiceOpts configures a [MusicService].
type MusicServiceOpts struct {
	ProxyURL   string
	RateLimit  float64 // Mutating requests per second
	Timeout    time.Duration
	HTTPClient *http.Client // Base client; its transport carries the session token after login
}

// MusicService implements the Client interface via the Mobileclient proxy.
type MusicService struct {
	baseURL    string
	base       *http.Client
	httpClient *http.Client
	limiter    *rate.Limiter
	token      *oauth2.Token
}

// NewMusicService creates a new proxy-backed music service instance.
func NewMusicService(opts MusicServiceOpts) *MusicService {
	if opts.ProxyURL == "" {
		opts.ProxyURL = defaultProxyURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &MusicService{
		baseURL:    strings.TrimRight(opts.ProxyURL, "/"),
		base:       opts.HTTPClient,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// Name returns the service name.
func (m *MusicService) Name() string {
	return "Google Play Music"
}

// Login posts the credentials to /auth/login and keeps the returned session token.
func (m *MusicService) Login(ctx context.Context, user, password, deviceID string) (bool, error) {
	if user == "" || password == "" {
		return false, fmt.Errorf("%w: user and password are required", shared.ErrMissingCredentials)
	}

	var resp loginResponse
	req := loginRequest{Email: user, Password: password, DeviceID: deviceID}
	if err := m.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if !resp.LoggedIn {
		return false, nil
	}

	m.token = &oauth2.Token{AccessToken: resp.Token, TokenType: "Bearer"}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(m.token))
	client.Timeout = m.base.Timeout
	m.httpClient = client

	return true, nil
}

// GetAllUserPlaylistContents calls GET /api/playlists/contents on the proxy.
func (m *MusicService) GetAllUserPlaylistContents(ctx context.Context) ([]models.PlaylistContents, error) {
	if err := m.requireLogin(); err != nil {
		return nil, err
	}

	var playlists []models.PlaylistContents
	if err := m.do(ctx, http.MethodGet, "/api/playlists/contents", nil, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// RemoveEntriesFromPlaylist calls POST /api/playlists/entries/remove on the proxy.
func (m *MusicService) RemoveEntriesFromPlaylist(ctx context.Context, entryIDs []string) error {
	if err := m.requireLogin(); err != nil {
		return err
	}
	if len(entryIDs) == 0 {
		return fmt.Errorf("%w: no entry ids provided", shared.ErrInvalidArgument)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	return m.do(ctx, http.MethodPost, "/api/playlists/entries/remove", removeEntriesRequest{EntryIDs: entryIDs}, nil)
}

// GetAllSongs calls GET /api/library/songs on the proxy.
func (m *MusicService) GetAllSongs(ctx context.Context) ([]models.Song, error) {
	if err := m.requireLogin(); err != nil {
		return nil, err
	}

	var songs []models.Song
	if err := m.do(ctx, http.MethodGet, "/api/library/songs", nil, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// DeleteSongs calls POST /api/library/songs/delete on the proxy.
func (m *MusicService) DeleteSongs(ctx context.Context, songIDs []string) error {
	if err := m.requireLogin(); err != nil {
		return err
	}
	if len(songIDs) == 0 {
		return fmt.Errorf("%w: no song ids provided", shared.ErrInvalidArgument)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	return m.do(ctx, http.MethodPost, "/api/library/songs/delete", deleteSongsRequest{SongIDs: songIDs}, nil)
}

func (m *MusicService) requireLogin() error {
	if m.token == nil {
		return fmt.Errorf("%w: call Login first", shared.ErrNotAuthenticated)
	}
	return nil
}

func (m *MusicService) do(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: %s %s (status %d): %s", shared.ErrAPIRequest, method, endpoint, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: %s %s: status %d", shared.ErrAPIRequest, method, endpoint, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
