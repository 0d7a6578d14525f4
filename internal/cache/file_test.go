package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/model"
)

var testNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

func sampleBars(n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		p := 1.25 + float64(i)*0.01
		bars[i] = model.OHLCV{
			Time:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   p,
			High:   p * 1.02,
			Low:    p * 0.97,
			Close:  p,
			Volume: 150000 + float64(i),
		}
	}
	return bars
}

func newTestStore(t *testing.T, maxAge time.Duration) (*FileStore, *metrics.Registry) {
	t.Helper()
	m := metrics.New()
	s, err := NewFileStore(t.TempDir(), maxAge, m)
	require.NoError(t, err)
	s.Now = func() time.Time { return testNow }
	return s, m
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t, 24*time.Hour)
	key := Key{Symbol: "sndl", Shape: model.ScreenWindow.String(), Source: "yahoo"}
	bars := sampleBars(30)

	s.PutSeries(ctx, key, bars)
	got, ok := s.GetSeries(ctx, key)
	require.True(t, ok)
	assert.Equal(t, bars, got)
	assert.FileExists(t, filepath.Join(s.Dir(), "SNDL_3mo_1d_yahoo.json"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheHit)))
}

func TestFileStore_ExpiresAfterMaxAge(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t, time.Hour)
	key := Key{Symbol: "AMC", Shape: "3mo_1d", Source: "yahoo"}
	s.PutSeries(ctx, key, sampleBars(5))

	s.Now = func() time.Time { return testNow.Add(59 * time.Minute) }
	_, ok := s.GetSeries(ctx, key)
	assert.True(t, ok)

	s.Now = func() time.Time { return testNow.Add(time.Hour) }
	_, ok = s.GetSeries(ctx, key)
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(s.Dir(), key.String()+".json"), "stale data stays on disk")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheStale)))
}

func TestFileStore_DisabledWhenMaxAgeZero(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := NewFileStore(dir, 0, nil)
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	key := Key{Symbol: "GME", Shape: "3mo_1d", Source: "yahoo"}
	s.PutSeries(ctx, key, sampleBars(5))
	_, ok := s.GetSeries(ctx, key)
	assert.False(t, ok)
	assert.NoDirExists(t, dir)
}

func TestFileStore_NegativeMaxAgeRejected(t *testing.T) {
	_, err := NewFileStore(t.TempDir(), -time.Second, nil)
	assert.Error(t, err)
}

func TestFileStore_EmptySeriesRecordsAttempt(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	key := Key{Symbol: "ZZZZ", Shape: "3mo_1d", Source: "yahoo"}

	s.PutSeries(ctx, key, nil)
	got, ok := s.GetSeries(ctx, key)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestFileStore_CorruptEntryDiscarded(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t, time.Hour)
	key := Key{Symbol: "BB", Shape: "3mo_1d", Source: "yahoo"}
	path := filepath.Join(s.Dir(), key.String()+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := s.GetSeries(ctx, key)
	assert.False(t, ok)
	assert.NoFileExists(t, path)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(metrics.CacheCorrupt)))

	// refetch overwrites cleanly
	s.PutSeries(ctx, key, sampleBars(3))
	got, ok := s.GetSeries(ctx, key)
	require.True(t, ok)
	assert.Len(t, got, 3)
}

func TestFileStore_SchemaMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	key := Key{Symbol: "CLOV", Shape: "3mo_1d", Source: "yahoo"}

	data, err := encodeProfile(testNow, &model.TickerProfile{ShortName: "Clover"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), key.String()+".json"), data, 0o644))

	_, ok := s.GetSeries(ctx, key)
	assert.False(t, ok)

	legacy := []byte(`{"schema":0,"kind":"series","written_at":"2024-06-03T14:00:00Z","bars":[]}`)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), key.String()+".json"), legacy, 0o644))
	_, ok = s.GetSeries(ctx, key)
	assert.False(t, ok)
}

func TestFileStore_SourcesAreSeparate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	primary := Key{Symbol: "WKHS", Shape: "3mo_1d", Source: "yahoo"}
	secondary := Key{Symbol: "WKHS", Shape: "3mo_1d", Source: "twelvedata"}

	s.PutSeries(ctx, primary, sampleBars(4))
	_, ok := s.GetSeries(ctx, secondary)
	assert.False(t, ok)

	s.PutSeries(ctx, secondary, sampleBars(40))
	got, ok := s.GetSeries(ctx, primary)
	require.True(t, ok)
	assert.Len(t, got, 4)
}

func TestFileStore_ProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)
	p := &model.TickerProfile{
		ShortName:               "Sundial Growers",
		SharesShort:             null.FloatFrom(1.5e7),
		FloatShares:             null.FloatFrom(1e8),
		HeldPercentInstitutions: null.FloatFrom(0.12),
	}
	s.PutProfile(ctx, "SNDL", p)

	got, ok := s.GetProfile(ctx, "sndl")
	require.True(t, ok)
	assert.Equal(t, p.ShortName, got.ShortName)
	assert.Equal(t, 1.5e7, got.SharesShort.Float64)
	assert.False(t, got.ShortRatio.Valid)
	assert.False(t, got.MarketCap.Valid)
}
