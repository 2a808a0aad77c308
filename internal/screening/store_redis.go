package screening

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const listCacheKeyPrefix = "watchlist:"

// CachedListStore fronts a ListStore with a Redis cache so every screening
// run does not re-read the consolidated list files. Cache faults fall
// through to the source; a stale entry is bounded by the TTL.
type CachedListStore struct {
	source ListStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedListStore(source ListStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedListStore {
	return &CachedListStore{source: source, client: client, ttl: ttl, logger: logger}
}

func (s *CachedListStore) Entries(ctx context.Context, list ListName) ([]Entry, error) {
	key := listCacheKeyPrefix + string(list)
	cached, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var entries []Entry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
		// Corrupt cache payload; drop it and reload from source.
		s.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "watchlist cache read failed", "list", list, "error", err)
	}

	entries, err := s.source.Entries(ctx, list)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(entries); err == nil {
		if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "watchlist cache write failed", "list", list, "error", err)
		}
	}
	return entries, nil
}

// Invalidate drops the cached copy of a list after a fresh regulator drop.
func (s *CachedListStore) Invalidate(ctx context.Context, list ListName) error {
	return s.client.Del(ctx, listCacheKeyPrefix+string(list)).Err()
}
