package journeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/ctdf"
)

const DefaultCacheExpiration = 90 * time.Minute

func NewRedisCache(client *redis.Client, expiration time.Duration) *cache.Cache[string] {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return cache.New[string](redisStore)
}

func cacheKey(journeyKey string) string {
	return fmt.Sprintf("journey:%s", journeyKey)
}

func (s *Store) mirror(ctx context.Context, journeys []*ctdf.Journey) error {
	if s.cache == nil {
		return nil
	}

	for _, journey := range journeys {
		encoded, err := journey.MarshalBinary()
		if err != nil {
			return err
		}

		if err := s.cache.Set(ctx, cacheKey(journey.Key()), string(encoded)); err != nil {
			log.Error().Err(err).Str("journey", journey.Key()).Msg("Failed to cache journey")
			return err
		}
	}

	return nil
}

// CachedJourney reads a reconciled journey back from the cache, eg. one written by another process
func (s *Store) CachedJourney(ctx context.Context, key string) (*ctdf.Journey, error) {
	if s.cache == nil {
		return nil, fmt.Errorf("journey cache not configured")
	}

	encoded, err := s.cache.Get(ctx, cacheKey(key))
	if err != nil {
		return nil, err
	}

	var journey ctdf.Journey
	if err := json.Unmarshal([]byte(encoded), &journey); err != nil {
		return nil, err
	}

	return &journey, nil
}
