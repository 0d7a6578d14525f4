package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"SkyrocketScreener/internal/cache"
	"SkyrocketScreener/internal/collector"
	"SkyrocketScreener/internal/config"
	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/recorder"
	"SkyrocketScreener/internal/saver"
	"SkyrocketScreener/internal/screener"
	"SkyrocketScreener/internal/universe"
)

// app is the wired pipeline shared by all commands.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Registry
	adapter  *collector.Adapter
	engine   *collector.Engine
	recorder recorder.Recorder
	closers  []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}

	// Init cache
	store, err := a.newStore()
	if err != nil {
		return nil, err
	}

	// Init fetchers
	yahoo := collector.NewYahooFetcher(cfg.Proxy)
	var secondary collector.Fetcher
	if cfg.TwelveDataEnabled() {
		secondary = collector.NewTwelveDataFetcher(cfg.DataSource.TwelveDataAPIKey, cfg.Proxy)
		log.Info().Msg("twelve data fallback enabled")
	} else {
		log.Info().Msg("twelve data fallback disabled, no api key")
	}
	a.adapter = collector.NewAdapter(store, yahoo, secondary, yahoo, a.metrics, collector.BreakerSettings{
		FailureThreshold: cfg.DataSource.BreakerFailures,
		OpenTimeout:      cfg.DataSource.BreakerTimeout,
	})
	a.engine = collector.NewEngine(a.adapter)

	// Init recorder
	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
			a.closers = append(a.closers, sr.Close)
		}
	}
	return a, nil
}

func (a *app) newStore() (cache.Store, error) {
	maxAge := a.cfg.CacheMaxAge()
	switch a.cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Cache.RedisAddr,
			Password: a.cfg.Cache.RedisPassword,
			DB:       a.cfg.Cache.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		log.Info().Str("addr", a.cfg.Cache.RedisAddr).Dur("max_age", maxAge).Msg("using redis cache")
		return cache.NewRedisStore(client, maxAge, a.metrics), nil
	default:
		fs, err := cache.NewFileStore(a.cfg.Cache.Dir, maxAge, a.metrics)
		if err != nil {
			return nil, fmt.Errorf("init file cache: %w", err)
		}
		log.Info().Str("dir", a.cfg.Cache.Dir).Dur("max_age", maxAge).Msg("using file cache")
		return fs, nil
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

// runner builds a screening runner for tf.
func (a *app) runner(tf model.Timeframe) (*screener.Runner, error) {
	pr, err := a.cfg.PriceRange()
	if err != nil {
		return nil, err
	}
	sc, err := screener.New(screener.Config{
		Timeframe:    tf,
		MinPrice:     pr.Min,
		MaxPrice:     pr.Max,
		RequestDelay: a.cfg.Screen.RequestDelay,
	}, a.adapter, a.engine, a.metrics)
	if err != nil {
		return nil, err
	}
	return &screener.Runner{
		Screener:  sc,
		Saver:     saver.New(a.cfg.Screen.Format),
		OutputDir: a.cfg.Screen.OutputDir,
		Recorder:  a.recorder,
		Metrics:   a.metrics,
	}, nil
}

// tickers resolves the screening universe: explicit list, tickers file, or the NASDAQ
// listing, then optional quick-mode sampling.
func (a *app) tickers(ctx context.Context, explicit string) ([]string, error) {
	var (
		list []string
		err  error
	)
	switch {
	case explicit != "":
		list = universe.Parse(explicit)
	case a.cfg.Screen.TickersFile != "":
		list, err = universe.LoadFile(a.cfg.Screen.TickersFile)
	default:
		client := &http.Client{Timeout: 30 * time.Second}
		list, err = universe.FetchNasdaqListed(ctx, client, universe.NasdaqListedURL)
	}
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("universe is empty")
	}

	fraction := a.cfg.Screen.QuickFraction
	if !universe.QuickEnabled(fraction) {
		return list, nil
	}
	path := filepath.Join(a.cfg.Cache.Dir, universe.SampleFile)
	sample, _ := universe.LoadOrSample(path, list, fraction, a.cfg.Screen.ReuseSample, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	return sample, nil
}
