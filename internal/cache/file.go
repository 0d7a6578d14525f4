package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/model"
)

// FileStore keeps one JSON document per key in a directory. A zero max age disables
// the cache: every lookup misses and writes are skipped.
type FileStore struct {
	dir     string
	maxAge  time.Duration
	metrics *metrics.Registry

	// Now is the clock used for writes and age checks.
	Now func() time.Time
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string, maxAge time.Duration, m *metrics.Registry) (*FileStore, error) {
	if maxAge < 0 {
		return nil, fmt.Errorf("cache max age must not be negative, got %v", maxAge)
	}
	if maxAge > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return &FileStore{dir: dir, maxAge: maxAge, metrics: m, Now: time.Now}, nil
}

// Enabled reports whether the cache stores anything at all.
func (s *FileStore) Enabled() bool { return s.maxAge > 0 }

// Dir returns the cache directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) GetSeries(_ context.Context, key Key) ([]model.OHLCV, bool) {
	e, ok := s.load(key.String(), kindSeries)
	if !ok {
		return nil, false
	}
	return *e.Bars, true
}

func (s *FileStore) PutSeries(_ context.Context, key Key, bars []model.OHLCV) {
	if !s.Enabled() {
		return
	}
	data, err := encodeSeries(s.Now(), bars)
	if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("encode cache entry failed")
		return
	}
	s.write(key.String(), data)
}

func (s *FileStore) GetProfile(_ context.Context, symbol string) (*model.TickerProfile, bool) {
	e, ok := s.load(profileName(symbol), kindProfile)
	if !ok {
		return nil, false
	}
	return e.Profile, true
}

func (s *FileStore) PutProfile(_ context.Context, symbol string, p *model.TickerProfile) {
	if !s.Enabled() || p == nil {
		return
	}
	data, err := encodeProfile(s.Now(), p)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("encode profile cache entry failed")
		return
	}
	s.write(profileName(symbol), data)
}

func (s *FileStore) load(name, kind string) (*entry, bool) {
	if !s.Enabled() {
		s.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	}
	path := s.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("read cache failed")
		}
		s.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	}
	e, result, err := decode(data, kind, s.Now(), s.maxAge)
	s.metrics.CacheLookup(result)
	if result == metrics.CacheCorrupt {
		log.Warn().Err(err).Str("path", path).Msg("discarding corrupt cache entry")
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn().Err(rmErr).Str("path", path).Msg("remove corrupt cache entry failed")
		}
		return nil, false
	}
	return e, e != nil
}

// write replaces the entry atomically so a crash never leaves a half-written file.
func (s *FileStore) write(name string, data []byte) {
	path := s.path(name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("write cache failed")
		return
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		log.Warn().Err(err).Str("path", path).Msg("write cache failed")
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		log.Warn().Err(err).Str("path", path).Msg("write cache failed")
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		log.Warn().Err(err).Str("path", path).Msg("write cache failed")
	}
}
