package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/shared"
	goredis "github.com/go-redis/redis/v9"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const redisKeyPrefix = "lyricsify:lyrics:"

// NewRedisClient connects to the Redis server described by cfg and pings it.
// The returned cleanup func closes the client.
func NewRedisClient(ctx context.Context, cfg shared.RedisConfig, l *log.Logger) (*goredis.Client, func(), error) {
	if l == nil {
		l = log.Default()
	}
	client := goredis.NewClient(&goredis.Options{
		Network:         "tcp",
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		MinIdleConns:    1,
		MaxIdleConns:    4,
		ConnMaxIdleTime: time.Minute,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("%w: redis ping %s: %v", shared.ErrServiceUnavailable, cfg.Addr, err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("failed to close redis client", "error", err)
		}
	}, nil
}

// RedisLyricsArchive implements [LyricsArchive] on Redis.
//
// Each entry is a single key holding a protobuf-encoded [structpb.Struct] with the fields
// track_id, artist, title, lyrics, provider and fetched_at.
type RedisLyricsArchive struct {
	client *goredis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisLyricsArchive wraps client. A zero ttl keeps entries forever.
func NewRedisLyricsArchive(client *goredis.Client, ttl time.Duration, l *log.Logger) *RedisLyricsArchive {
	if l == nil {
		l = log.Default()
	}
	return &RedisLyricsArchive{client: client, ttl: ttl, logger: l}
}

func redisKey(trackID string) string { return redisKeyPrefix + trackID }

// Get returns archived lyrics for trackID.
func (r *RedisLyricsArchive) Get(ctx context.Context, trackID string) (string, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(trackID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("redis archive get: %w", err)
	}

	entry, err := decodeArchived(raw)
	if err != nil {
		r.logger.Warn("dropping unreadable archive entry", "track_id", trackID, "error", err)
		_ = r.client.Del(ctx, redisKey(trackID)).Err()
		return "", false, nil
	}

	return entry.Lyrics, true, nil
}

// Put stores lyrics for track with the configured TTL.
func (r *RedisLyricsArchive) Put(ctx context.Context, track models.Track, lyrics, provider string) error {
	raw, err := encodeArchived(ArchivedLyrics{
		TrackID:   track.ID,
		Artist:    track.PrimaryArtist(),
		Title:     track.Name,
		Lyrics:    lyrics,
		Provider:  provider,
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("redis archive put: %w", err)
	}

	if err := r.client.Set(ctx, redisKey(track.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis archive put: %w", err)
	}
	return nil
}

// Count returns the number of archive keys.
func (r *RedisLyricsArchive) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

// Clear deletes every archive key and returns how many were removed.
func (r *RedisLyricsArchive) Clear(ctx context.Context) (int, error) {
	removed := 0
	err := r.scan(ctx, func(keys []string) error {
		cmds, err := r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
			for _, key := range keys {
				pipe.Del(ctx, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, cmd := range cmds {
			if del, ok := cmd.(*goredis.IntCmd); ok {
				removed += int(del.Val())
			}
		}
		return nil
	})
	return removed, err
}

func (r *RedisLyricsArchive) scan(ctx context.Context, fn func(keys []string) error) error {
	const batch = 100
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", batch).Result()
		if err != nil {
			return fmt.Errorf("redis archive scan: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return fmt.Errorf("redis archive scan: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func encodeArchived(a ArchivedLyrics) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"track_id":   a.TrackID,
		"artist":     a.Artist,
		"title":      a.Title,
		"lyrics":     a.Lyrics,
		"provider":   a.Provider,
		"fetched_at": a.FetchedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

func decodeArchived(raw []byte) (ArchivedLyrics, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(raw, &msg); err != nil {
		return ArchivedLyrics{}, err
	}

	field := func(name string) string { return msg.GetFields()[name].GetStringValue() }

	a := ArchivedLyrics{
		TrackID:  field("track_id"),
		Artist:   field("artist"),
		Title:    field("title"),
		Lyrics:   field("lyrics"),
		Provider: field("provider"),
	}
	if a.Lyrics == "" {
		return ArchivedLyrics{}, fmt.Errorf("archived entry has no lyrics")
	}
	if t, err := time.Parse(time.RFC3339, field("fetched_at")); err == nil {
		a.FetchedAt = t
	}
	return a, nil
}
