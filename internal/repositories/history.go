package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/shared"
)

const defaultHistoryLimit = 20

// HistoryRepository persists [models.PlayedTrack] rows.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new [HistoryRepository] with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record stores a play of track at playedAt.
func (r *HistoryRepository) Record(ctx context.Context, track models.Track, playedAt time.Time) (*models.PlayedTrack, error) {
	if track.ID == "" {
		return nil, fmt.Errorf("%w: track ID is required", shared.ErrInvalidArgument)
	}

	artists, err := json.Marshal(track.Artists)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artists: %w", err)
	}

	played := &models.PlayedTrack{ID: shared.GenerateID(), Track: track, PlayedAt: playedAt.UTC()}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO play_history (id, track_id, name, artists, duration_ms, played_at) VALUES (?, ?, ?, ?, ?, ?)
	`, played.ID, track.ID, track.Name, string(artists), track.DurationMS, played.PlayedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record play: %w", err)
	}

	return played, nil
}

// Recent returns up to limit plays, newest first. A non-positive limit uses 20.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]models.PlayedTrack, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, track_id, name, artists, duration_ms, played_at
		FROM play_history
		ORDER BY played_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}
	defer rows.Close()

	var plays []models.PlayedTrack
	for rows.Next() {
		var (
			p       models.PlayedTrack
			artists string
		)
		if err := rows.Scan(&p.ID, &p.Track.ID, &p.Track.Name, &artists, &p.Track.DurationMS, &p.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		if err := json.Unmarshal([]byte(artists), &p.Track.Artists); err != nil {
			return nil, fmt.Errorf("failed to decode artists: %w", err)
		}
		plays = append(plays, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating play history: %w", err)
	}

	return plays, nil
}

// Count returns the number of recorded plays.
func (r *HistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM play_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count play history: %w", err)
	}
	return n, nil
}
