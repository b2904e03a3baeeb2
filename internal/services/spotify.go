// Spotify API implementation of [PlaybackProvider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:8888/callback"

	// tokenExpiryBuffer treats a token as expired this long before its real expiry.
	tokenExpiryBuffer = 60 * time.Second
)

// SpotifyScopes are the permissions requested during login.
var SpotifyScopes = []string{"user-read-currently-playing", "user-read-playback-state"}

// SpotifyArtist is the simplified artist object embedded in tracks.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyItem is the playing item. Only tracks carry artists.
type SpotifyItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	URI        string          `json:"uri"`
	IsLocal    bool            `json:"is_local"`
	DurationMS int             `json:"duration_ms"`
	Artists    []SpotifyArtist `json:"artists"`
}

// SpotifyCurrentlyPlaying is the body of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	IsPlaying            bool         `json:"is_playing"`
	ProgressMS           int          `json:"progress_ms"`
	CurrentlyPlayingType string       `json:"currently_playing_type"` // track, episode, ad, unknown
	Item                 *SpotifyItem `json:"item"`
}

// Track converts the response into a [models.Track], or nil when nothing lyric-worthy is playing.
func (c SpotifyCurrentlyPlaying) Track() *models.Track {
	if !c.IsPlaying || c.Item == nil || c.CurrentlyPlayingType != "track" {
		return nil
	}
	if c.Item.Type != "" && c.Item.Type != "track" {
		return nil
	}

	id := c.Item.ID
	if id == "" {
		// local files have no catalogue ID
		id = c.Item.URI
	}
	if id == "" {
		return nil
	}

	artists := make([]string, 0, len(c.Item.Artists))
	for _, a := range c.Item.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	return &models.Track{
		ID:         id,
		Name:       c.Item.Name,
		Artists:    artists,
		DurationMS: c.Item.DurationMS,
	}
}

// SpotifyService implements [PlaybackProvider] for the Spotify Web API.
// Uses [oauth2] for authentication and automatic token refresh.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger

	mu        sync.Mutex
	token     *oauth2.Token
	source    oauth2.TokenSource
	onRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    spotifyBaseURL,
		logger:     log.Default(),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetLogger replaces the service logger.
func (s *SpotifyService) SetLogger(l *log.Logger) { s.logger = orDefault(l) }

// SetHTTPClient replaces the client used for API and token requests.
func (s *SpotifyService) SetHTTPClient(c *http.Client) { s.httpClient = c }

// SetBaseURL points API calls at a different host (used by tests).
func (s *SpotifyService) SetBaseURL(u string) { s.baseURL = u }

// SetTokenURL points token exchange and refresh at a different endpoint (used by tests).
func (s *SpotifyService) SetTokenURL(u string) { s.config.Endpoint.TokenURL = u }

// OnTokenRefresh registers fn to receive every token obtained by a refresh.
func (s *SpotifyService) OnTokenRefresh(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

// GetOAuthConfig returns the underlying OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and installs it.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	s.SetToken(token)
	return token, nil
}

// SetToken installs a token, e.g. one loaded from the token store.
func (s *SpotifyService) SetToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if token == nil {
		s.source = nil
		return
	}

	s.source = oauth2.ReuseTokenSourceWithExpiry(token, &refreshingSource{svc: s}, tokenExpiryBuffer)
}

// Token returns the current token, or nil before authentication.
func (s *SpotifyService) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether a token is installed.
func (s *SpotifyService) Authenticated() bool {
	return s.Token() != nil
}

// Validate makes sure a usable access token is available, refreshing it when it is within
// 60 seconds of expiry.
func (s *SpotifyService) Validate(ctx context.Context) error {
	_, err := s.accessToken(ctx)
	return err
}

// CurrentlyPlaying implements [PlaybackProvider].
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	var body SpotifyCurrentlyPlaying
	found, err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing?additional_types=episode", &body)
	if err != nil || !found {
		return nil, err
	}
	return body.Track(), nil
}

// accessToken returns a valid access token, mapping refresh failures onto auth errors.
func (s *SpotifyService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()

	if source == nil {
		return "", shared.ErrNotAuthenticated
	}

	token, err := source.Token()
	if err != nil {
		if shared.IsAuthError(err) {
			return "", err
		}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
				return "", fmt.Errorf("%w: token endpoint returned %d", shared.ErrServiceUnavailable, retrieveErr.Response.StatusCode)
			}
			return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("token refresh request failed: %w", err)
	}

	return token.AccessToken, nil
}

// doRequest performs an authenticated request and decodes a JSON body into result.
// It reports false without error when the API answers 204 No Content.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, result any) (bool, error) {
	accessToken, err := s.accessToken(ctx)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, statusError("spotify", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return false, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return true, nil
}

func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// refreshingSource mints a new token from the stored refresh token on every call and hands it
// to the OnTokenRefresh hook. Reuse and early expiry are handled by the wrapping ReuseTokenSource.
type refreshingSource struct {
	svc *SpotifyService
}

func (r *refreshingSource) Token() (*oauth2.Token, error) {
	r.svc.mu.Lock()
	current := r.svc.token
	r.svc.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token available", shared.ErrTokenExpired)
	}

	ctx := r.svc.clientContext(context.Background())
	token, err := r.svc.config.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken}).Token()
	if err != nil {
		return nil, err
	}

	r.svc.mu.Lock()
	r.svc.token = token
	hook := r.svc.onRefresh
	r.svc.mu.Unlock()

	r.svc.logger.Debug("spotify token refreshed", "expiry", token.Expiry)
	if hook != nil {
		hook(token)
	}

	return token, nil
}
