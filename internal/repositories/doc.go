// Package repositories implements persistence for lyricsify.
//
// Key Implementations:
//   - [TokenRepository] : the token store; one opaque credential blob under a fixed service/account key
//   - [LyricsArchiveRepository] : SQLite archive of found lyrics, consulted after the in-memory cache
//   - [RedisLyricsArchive] : optional shared archive on Redis with protobuf-encoded values and a TTL
//   - [HistoryRepository] : play history written on every track change
//
// SQLite tables are created by the migrations embedded in package shared.
package repositories
