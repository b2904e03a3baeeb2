package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lyricsify/internal/models"
)

// ArchivedLyrics is a row of the lyrics_archive table.
type ArchivedLyrics struct {
	TrackID   string
	Artist    string
	Title     string
	Lyrics    string
	Provider  string
	FetchedAt time.Time
}

// LyricsArchiveRepository implements [LyricsArchive] on SQLite.
type LyricsArchiveRepository struct {
	db *sql.DB
}

// NewLyricsArchiveRepository creates a new [LyricsArchiveRepository] with the given database connection
func NewLyricsArchiveRepository(db *sql.DB) *LyricsArchiveRepository {
	return &LyricsArchiveRepository{db: db}
}

// Get returns archived lyrics for trackID.
func (r *LyricsArchiveRepository) Get(ctx context.Context, trackID string) (string, bool, error) {
	var lyrics string
	err := r.db.QueryRowContext(ctx, `SELECT lyrics FROM lyrics_archive WHERE track_id = ?`, trackID).Scan(&lyrics)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query lyrics archive: %w", err)
	}
	return lyrics, true, nil
}

// Find returns the full archived row for trackID.
func (r *LyricsArchiveRepository) Find(ctx context.Context, trackID string) (*ArchivedLyrics, error) {
	var a ArchivedLyrics
	err := r.db.QueryRowContext(ctx, `
		SELECT track_id, artist, title, lyrics, provider, fetched_at FROM lyrics_archive WHERE track_id = ?
	`, trackID).Scan(&a.TrackID, &a.Artist, &a.Title, &a.Lyrics, &a.Provider, &a.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archived lyrics not found: %s", trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lyrics archive: %w", err)
	}
	return &a, nil
}

// Put inserts or replaces the archived lyrics for track.
func (r *LyricsArchiveRepository) Put(ctx context.Context, track models.Track, lyrics, provider string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lyrics_archive (track_id, artist, title, lyrics, provider, fetched_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			artist = excluded.artist, title = excluded.title, lyrics = excluded.lyrics,
			provider = excluded.provider, fetched_at = excluded.fetched_at
	`, track.ID, track.PrimaryArtist(), track.Name, lyrics, provider, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to archive lyrics: %w", err)
	}
	return nil
}

// Count returns the number of archived entries.
func (r *LyricsArchiveRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lyrics_archive`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count lyrics archive: %w", err)
	}
	return n, nil
}

// Clear deletes every archived entry and returns how many were removed.
func (r *LyricsArchiveRepository) Clear(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lyrics_archive`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear lyrics archive: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
