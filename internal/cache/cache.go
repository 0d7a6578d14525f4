// Package cache stores fetched price history and ticker profiles with age-based invalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/model"
)

const (
	schemaVersion = 1
	kindSeries    = "series"
	kindProfile   = "profile"
)

var errSchema = errors.New("cache entry schema mismatch")

// Key identifies one cached series. Entries from different sources never share a key.
type Key struct {
	Symbol string
	Shape  string // query shape, e.g. "3mo_1d"
	Source string // provider name, e.g. "yahoo"
}

func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%s", strings.ToUpper(k.Symbol), k.Shape, k.Source)
}

func profileName(symbol string) string {
	return strings.ToUpper(symbol) + "_info"
}

// Store is the cache contract shared by the file and Redis backends.
// Lookups never fail: anything unusable is reported as a miss. Writes never fail
// the caller; problems are logged.
type Store interface {
	GetSeries(ctx context.Context, key Key) ([]model.OHLCV, bool)
	PutSeries(ctx context.Context, key Key, bars []model.OHLCV)
	GetProfile(ctx context.Context, symbol string) (*model.TickerProfile, bool)
	PutProfile(ctx context.Context, symbol string, p *model.TickerProfile)
}

// entry is the on-disk / in-Redis document.
type entry struct {
	Schema    int                  `json:"schema"`
	Kind      string               `json:"kind"`
	WrittenAt time.Time            `json:"written_at"`
	Bars      *[]model.OHLCV       `json:"bars,omitempty"`
	Profile   *model.TickerProfile `json:"profile,omitempty"`
}

func encodeSeries(now time.Time, bars []model.OHLCV) ([]byte, error) {
	if bars == nil {
		bars = []model.OHLCV{}
	}
	return json.Marshal(entry{Schema: schemaVersion, Kind: kindSeries, WrittenAt: now.UTC(), Bars: &bars})
}

func encodeProfile(now time.Time, p *model.TickerProfile) ([]byte, error) {
	return json.Marshal(entry{Schema: schemaVersion, Kind: kindProfile, WrittenAt: now.UTC(), Profile: p})
}

// decode parses and validates a document. It returns the entry and the lookup result
// (hit, stale or corrupt).
func decode(data []byte, kind string, now time.Time, maxAge time.Duration) (*entry, string, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, metrics.CacheCorrupt, err
	}
	if e.Schema != schemaVersion || e.Kind != kind || e.WrittenAt.IsZero() {
		return nil, metrics.CacheCorrupt, errSchema
	}
	if kind == kindSeries && e.Bars == nil {
		return nil, metrics.CacheCorrupt, errSchema
	}
	if kind == kindProfile && e.Profile == nil {
		return nil, metrics.CacheCorrupt, errSchema
	}
	if now.Sub(e.WrittenAt) >= maxAge {
		return nil, metrics.CacheStale, nil
	}
	return &e, metrics.CacheHit, nil
}
