// Package services implements the external collaborators of the background tasks.
//
// # Playback
//
// [SpotifyService] implements [PlaybackProvider] against the Spotify Web API using OAuth2
// (authorization code flow). Tokens are refreshed through an [oauth2.TokenSource] that treats
// a token as expired 60 seconds early; refreshed tokens are passed to the hook registered
// with [SpotifyService.OnTokenRefresh] so they can be persisted.
//
// # Lyrics
//
// [LyricsOvhService] (default) and [LRCLibService] implement [LyricsProvider].
// [NewLyricsProvider] selects one from configuration.
//
// # Error Handling
//
// Services map failures onto the sentinels in package shared:
//   - [shared.ErrNotAuthenticated] : no token has been set
//   - [shared.ErrTokenExpired] : the API rejected the access token (401)
//   - [shared.ErrRefreshFailed] : the token endpoint rejected the refresh token
//   - [shared.ErrServiceUnavailable] : 429 or 5xx, worth retrying
//   - [shared.ErrLyricsNotFound] : the lyrics provider has nothing for the track
//
// Transport errors are wrapped with %w so callers can detect them with [shared.IsTransient].
package services
