package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/cache"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/services"
	"github.com/desertthunder/lyricsify/internal/shared"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const DefaultLookupTimeout = 10 * time.Second

// Archive is durable storage behind the in-memory cache. Only found lyrics are archived.
type Archive interface {
	Get(ctx context.Context, trackID string) (string, bool, error)
	Put(ctx context.Context, track models.Track, lyrics, provider string) error
}

// FetcherOpts configures a [Fetcher]. Provider is required; Archive and Limiter are optional.
type FetcherOpts struct {
	Provider services.LyricsProvider
	Cache    *cache.LyricsCache
	Archive  Archive
	Limiter  *rate.Limiter
	Timeout  time.Duration
	Logger   *log.Logger
}

// FetcherStats reports cache counters plus network activity.
type FetcherStats struct {
	Cache       cache.Stats `json:"cache"`
	Lookups     int64       `json:"lookups"`
	ArchiveHits int64       `json:"archive_hits"`
	Coalesced   int64       `json:"coalesced"`
}

// Fetcher answers lyrics requests from the cache, the archive or the provider, in that order.
//
// Found lyrics are cached as positive entries and archived. A definitive not-found is cached as a
// negative entry. Transport errors and timeouts are returned and never cached, so the next request
// for that track goes back to the network. Concurrent requests for one track share a single lookup.
type Fetcher struct {
	provider services.LyricsProvider
	cache    *cache.LyricsCache
	archive  Archive
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *log.Logger

	group       singleflight.Group
	lookups     atomic.Int64
	archiveHits atomic.Int64
	coalesced   atomic.Int64
}

// NewFetcher creates a fetcher from opts.
func NewFetcher(opts FetcherOpts) *Fetcher {
	if opts.Cache == nil {
		opts.Cache = cache.New(cache.DefaultCapacity)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLookupTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Fetcher{
		provider: opts.Provider,
		cache:    opts.Cache,
		archive:  opts.Archive,
		limiter:  opts.Limiter,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// GetLyrics returns the lyrics for track, or nil when the provider has none.
//
// Cancelling ctx stops the caller from waiting; a lookup already on the wire runs to completion
// (bounded by the lookup timeout) and still fills the cache.
func (f *Fetcher) GetLyrics(ctx context.Context, track models.Track) (*string, error) {
	if entry, ok := f.cache.Get(track.ID); ok {
		f.logger.Debug("lyrics cache hit", "id", track.ID, "negative", entry.Negative())
		return entry.Lyrics, nil
	}

	ch := f.group.DoChan(track.ID, func() (any, error) {
		return f.fetch(context.WithoutCancel(ctx), track)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			f.coalesced.Add(1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*string), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, track models.Track) (*string, error) {
	// a lookup that finished while this one was queued may already have filled the cache
	if entry, ok := f.cache.Peek(track.ID); ok {
		return entry.Lyrics, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.archive != nil {
		text, ok, err := f.archive.Get(ctx, track.ID)
		if err != nil {
			f.logger.Warn("lyrics archive lookup failed", "id", track.ID, "error", err)
		} else if ok {
			f.archiveHits.Add(1)
			f.cache.Put(track.ID, &text)
			return &text, nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: waiting for lookup slot: %v", shared.ErrTimeout, err)
		}
	}

	f.lookups.Add(1)
	artist := track.PrimaryArtist()
	f.logger.Info("fetching lyrics", "provider", f.provider.Name(), "artist", artist, "title", track.Name)

	text, err := f.provider.Lookup(ctx, artist, track.Name)
	switch {
	case err == nil:
		f.cache.Put(track.ID, &text)
		if f.archive != nil {
			if err := f.archive.Put(ctx, track, text, f.provider.Name()); err != nil {
				f.logger.Warn("failed to archive lyrics", "id", track.ID, "error", err)
			}
		}
		return &text, nil

	case errors.Is(err, shared.ErrLyricsNotFound):
		f.logger.Info("no lyrics found", "artist", artist, "title", track.Name)
		f.cache.Put(track.ID, nil)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: lyrics lookup exceeded %s: %v", shared.ErrTimeout, f.timeout, err)

	default:
		f.logger.Warn("lyrics lookup failed", "artist", artist, "title", track.Name, "error", err)
		return nil, err
	}
}

// Stats returns cache and lookup counters.
func (f *Fetcher) Stats() FetcherStats {
	return FetcherStats{
		Cache:       f.cache.Stats(),
		Lookups:     f.lookups.Load(),
		ArchiveHits: f.archiveHits.Load(),
		Coalesced:   f.coalesced.Load(),
	}
}

// Purge drops every cached entry, positive and negative.
func (f *Fetcher) Purge() {
	f.cache.Clear()
}
