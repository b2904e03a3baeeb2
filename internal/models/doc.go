// Package models defines the domain entities shared by the poller, fetcher, coordinator and repositories.
//
//   - [Track] : the identity of a playable item reported by the music provider
//   - [PlayedTrack] : a persisted play history entry
//   - [Lyrics] : a lyrics lookup result as rendered by the formatter
//
// Track equality is by provider ID alone. Metadata differences between two polls of the same
// ID never count as a change.
package models
