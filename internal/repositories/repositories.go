// package repositories provides persistence for credentials, lyrics and play history.
package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/lyricsify/internal/models"
)

// LyricsArchive is long-lived storage for lyrics that were found.
// Only positive results are archived; absence is never written.
type LyricsArchive interface {
	Get(ctx context.Context, trackID string) (string, bool, error)
	Put(ctx context.Context, track models.Track, lyrics, provider string) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)
}

// ArchiveChain reads from each archive in order and writes to all of them.
// The usual chain is Redis (shared, fast) followed by SQLite (local, durable).
type ArchiveChain []LyricsArchive

// Get returns the first hit. A lookup error in one tier does not hide a hit in a later one.
func (c ArchiveChain) Get(ctx context.Context, trackID string) (string, bool, error) {
	var errs []string
	for _, a := range c {
		lyrics, ok, err := a.Get(ctx, trackID)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if ok {
			return lyrics, true, nil
		}
	}
	if len(errs) > 0 {
		return "", false, fmt.Errorf("archive lookup failed: %s", strings.Join(errs, "; "))
	}
	return "", false, nil
}

// Put writes to every tier and reports the first failure.
func (c ArchiveChain) Put(ctx context.Context, track models.Track, lyrics, provider string) error {
	var first error
	for _, a := range c {
		if err := a.Put(ctx, track, lyrics, provider); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Count returns the size of the last (most durable) tier.
func (c ArchiveChain) Count(ctx context.Context) (int, error) {
	if len(c) == 0 {
		return 0, nil
	}
	return c[len(c)-1].Count(ctx)
}

// Clear empties every tier and returns the total number of removed entries.
func (c ArchiveChain) Clear(ctx context.Context) (int, error) {
	total := 0
	for _, a := range c {
		n, err := a.Clear(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
