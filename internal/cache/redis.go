package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/model"
)

const redisPrefix = "screener:cache:"

// RedisStore keeps entries in Redis with a TTL equal to the max age. The written_at
// check still applies, so an entry is stale once max age has passed even if Redis
// has not expired it yet.
type RedisStore struct {
	client  redis.Cmdable
	maxAge  time.Duration
	metrics *metrics.Registry

	Now func() time.Time
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.Cmdable, maxAge time.Duration, m *metrics.Registry) *RedisStore {
	return &RedisStore{client: client, maxAge: maxAge, metrics: m, Now: time.Now}
}

func (s *RedisStore) GetSeries(ctx context.Context, key Key) ([]model.OHLCV, bool) {
	e, ok := s.load(ctx, redisPrefix+key.String(), kindSeries)
	if !ok {
		return nil, false
	}
	return *e.Bars, true
}

func (s *RedisStore) PutSeries(ctx context.Context, key Key, bars []model.OHLCV) {
	if s.maxAge <= 0 {
		return
	}
	data, err := encodeSeries(s.Now(), bars)
	if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("encode cache entry failed")
		return
	}
	s.write(ctx, redisPrefix+key.String(), data)
}

func (s *RedisStore) GetProfile(ctx context.Context, symbol string) (*model.TickerProfile, bool) {
	e, ok := s.load(ctx, redisPrefix+profileName(symbol), kindProfile)
	if !ok {
		return nil, false
	}
	return e.Profile, true
}

func (s *RedisStore) PutProfile(ctx context.Context, symbol string, p *model.TickerProfile) {
	if s.maxAge <= 0 || p == nil {
		return
	}
	data, err := encodeProfile(s.Now(), p)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("encode profile cache entry failed")
		return
	}
	s.write(ctx, redisPrefix+profileName(symbol), data)
}

func (s *RedisStore) load(ctx context.Context, key, kind string) (*entry, bool) {
	if s.maxAge <= 0 {
		s.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("redis cache read failed")
		}
		s.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	}
	e, result, err := decode(data, kind, s.Now(), s.maxAge)
	s.metrics.CacheLookup(result)
	if result == metrics.CacheCorrupt {
		log.Warn().Err(err).Str("key", key).Msg("discarding corrupt cache entry")
		if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("redis cache delete failed")
		}
		return nil, false
	}
	return e, e != nil
}

func (s *RedisStore) write(ctx context.Context, key string, data []byte) {
	if err := s.client.Set(ctx, key, data, s.maxAge).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache write failed")
	}
}
