package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/shared"
)

const (
	lyricsOvhBaseURL = "https://api.lyrics.ovh"
	lrclibBaseURL    = "https://lrclib.net"
	userAgent        = "lyricsify/1.0 (+https://github.com/desertthunder/lyricsify)"
)

// LyricsOvhService implements [LyricsProvider] against https://lyrics.ovh.
type LyricsOvhService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewLyricsOvhService creates a lyrics.ovh client. An empty baseURL uses the public API.
func NewLyricsOvhService(baseURL string, client *http.Client, logger *log.Logger) *LyricsOvhService {
	if baseURL == "" {
		baseURL = lyricsOvhBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &LyricsOvhService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     orDefault(logger),
	}
}

func (s *LyricsOvhService) Name() string { return "lyrics.ovh" }

type lyricsOvhResponse struct {
	Lyrics string `json:"lyrics"`
	Error  string `json:"error"`
}

// Lookup fetches GET /v1/{artist}/{title} with both segments path-escaped.
func (s *LyricsOvhService) Lookup(ctx context.Context, artist, title string) (string, error) {
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: artist and title are required", shared.ErrLyricsNotFound)
	}

	endpoint := fmt.Sprintf("%s/v1/%s/%s", s.baseURL, url.PathEscape(artist), url.PathEscape(title))
	s.logger.Debug("querying lyrics.ovh", "url", endpoint)

	var body lyricsOvhResponse
	if err := getJSON(ctx, s.httpClient, s.Name(), endpoint, &body); err != nil {
		return "", err
	}

	if strings.TrimSpace(body.Lyrics) == "" {
		return "", fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, artist, title)
	}

	return strings.ReplaceAll(body.Lyrics, "\r\n", "\n"), nil
}

// LRCLibService implements [LyricsProvider] against https://lrclib.net.
type LRCLibService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewLRCLibService creates an LRCLIB client. An empty baseURL uses the public API.
func NewLRCLibService(baseURL string, client *http.Client, logger *log.Logger) *LRCLibService {
	if baseURL == "" {
		baseURL = lrclibBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &LRCLibService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     orDefault(logger),
	}
}

func (s *LRCLibService) Name() string { return "lrclib" }

type lrclibResponse struct {
	ID           int    `json:"id"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// Lookup fetches GET /api/get?artist_name=&track_name= and returns the plain lyrics.
func (s *LRCLibService) Lookup(ctx context.Context, artist, title string) (string, error) {
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: artist and title are required", shared.ErrLyricsNotFound)
	}

	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	endpoint := fmt.Sprintf("%s/api/get?%s", s.baseURL, params.Encode())
	s.logger.Debug("querying lrclib", "url", endpoint)

	var body lrclibResponse
	if err := getJSON(ctx, s.httpClient, s.Name(), endpoint, &body); err != nil {
		return "", err
	}

	if body.Instrumental || strings.TrimSpace(body.PlainLyrics) == "" {
		return "", fmt.Errorf("%w: %s - %s", shared.ErrLyricsNotFound, artist, title)
	}

	return body.PlainLyrics, nil
}

// getJSON performs an unauthenticated GET. 404 maps to [shared.ErrLyricsNotFound].
func getJSON(ctx context.Context, client *http.Client, provider, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s returned 404", shared.ErrLyricsNotFound, provider)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, provider, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(provider, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, provider, err)
	}

	return nil
}
