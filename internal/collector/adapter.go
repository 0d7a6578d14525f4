package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"SkyrocketScreener/internal/cache"
	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/model"
)

// Provider call outcomes reported to metrics.
const (
	outcomeOK     = "ok"
	outcomeNoData = "no_data"
	outcomeError  = "error"
	outcomeOpen   = "breaker_open"
)

// BreakerSettings configures the per-provider circuit breakers.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long an open breaker rejects calls before probing again.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings trips after five consecutive failures and probes after a minute.
var DefaultBreakerSettings = BreakerSettings{FailureThreshold: 5, OpenTimeout: time.Minute}

// Adapter fetches history through the cache, falling back from the primary to the
// secondary provider when the primary result is too short to compute indicators.
type Adapter struct {
	Store     cache.Store
	Primary   Fetcher
	Secondary Fetcher        // nil disables the fallback
	Profiles  ProfileFetcher // nil disables profile lookups
	Metrics   *metrics.Registry

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewAdapter wires the providers with one circuit breaker each.
func NewAdapter(store cache.Store, primary, secondary Fetcher, profiles ProfileFetcher, m *metrics.Registry, bs BreakerSettings) *Adapter {
	a := &Adapter{
		Store:     store,
		Primary:   primary,
		Secondary: secondary,
		Profiles:  profiles,
		Metrics:   m,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, name := range a.providerNames() {
		a.breakers[name] = newBreaker(name, bs)
	}
	return a
}

func (a *Adapter) providerNames() []string {
	var names []string
	if a.Primary != nil {
		names = append(names, a.Primary.Name())
	}
	if a.Secondary != nil {
		names = append(names, a.Secondary.Name())
	}
	if a.Profiles != nil {
		names = append(names, profileBreaker(a.Profiles))
	}
	return names
}

func profileBreaker(p ProfileFetcher) string { return p.Name() + "_profile" }

func newBreaker(name string, bs BreakerSettings) *gobreaker.CircuitBreaker {
	if bs.FailureThreshold == 0 {
		bs.FailureThreshold = DefaultBreakerSettings.FailureThreshold
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.FailureThreshold
		},
		// an unknown symbol or a cancelled run says nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// Fetch returns the bars for symbol, or nil when no provider has any.
// A series shorter than MinLength may be returned when neither provider has more.
func (a *Adapter) Fetch(ctx context.Context, symbol string, w model.Window) []model.OHLCV {
	var primary []model.OHLCV
	if a.Primary != nil {
		primary = a.fetchCached(ctx, a.Primary, symbol, w)
	}
	if len(primary) >= MinLength || a.Secondary == nil || ctx.Err() != nil {
		return nonEmpty(primary)
	}

	log.Debug().Str("symbol", symbol).Int("bars", len(primary)).Str("source", a.Secondary.Name()).Msg("primary history short, trying fallback")
	secondary := a.fetchCached(ctx, a.Secondary, symbol, w)
	if len(secondary) >= MinLength {
		return secondary
	}
	return nonEmpty(primary)
}

func nonEmpty(bars []model.OHLCV) []model.OHLCV {
	if len(bars) == 0 {
		return nil
	}
	return bars
}

func (a *Adapter) fetchCached(ctx context.Context, f Fetcher, symbol string, w model.Window) []model.OHLCV {
	key := cache.Key{Symbol: symbol, Shape: w.String(), Source: f.Name()}
	if a.Store != nil {
		if bars, ok := a.Store.GetSeries(ctx, key); ok {
			return bars
		}
	}

	out, err := a.execute(ctx, f.Name(), func() (interface{}, error) {
		return f.FetchBars(ctx, symbol, w)
	})
	var bars []model.OHLCV
	switch {
	case err == nil:
		bars, _ = out.([]model.OHLCV)
	case errors.Is(err, ErrNoData):
		// remembered so the next run within max age skips the provider
		bars = []model.OHLCV{}
	default:
		log.Warn().Err(err).Str("symbol", symbol).Str("source", f.Name()).Msg("fetch failed")
		return nil
	}
	if a.Store != nil {
		a.Store.PutSeries(ctx, key, bars)
	}
	return bars
}

func (a *Adapter) breaker(source string) *gobreaker.CircuitBreaker {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.breakers == nil {
		a.breakers = make(map[string]*gobreaker.CircuitBreaker)
	}
	cb, ok := a.breakers[source]
	if !ok {
		cb = newBreaker(source, DefaultBreakerSettings)
		a.breakers[source] = cb
	}
	return cb
}

// execute runs one provider call through its breaker and records the outcome.
func (a *Adapter) execute(ctx context.Context, source string, call func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := a.breaker(source).Execute(call)
	switch {
	case err == nil:
		a.Metrics.ProviderFetch(source, outcomeOK)
	case errors.Is(err, ErrNoData):
		a.Metrics.ProviderFetch(source, outcomeNoData)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		a.Metrics.ProviderFetch(source, outcomeOpen)
	default:
		a.Metrics.ProviderFetch(source, outcomeError)
	}
	return out, err
}

// Profile returns the ticker profile, or nil when unavailable. Only non-empty profiles
// are cached.
func (a *Adapter) Profile(ctx context.Context, symbol string) *model.TickerProfile {
	if a.Store != nil {
		if p, ok := a.Store.GetProfile(ctx, symbol); ok {
			return p
		}
	}
	if a.Profiles == nil {
		return nil
	}

	out, err := a.execute(ctx, profileBreaker(a.Profiles), func() (interface{}, error) {
		return a.Profiles.FetchProfile(ctx, symbol)
	})
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			log.Warn().Err(err).Str("symbol", symbol).Msg("profile fetch failed")
		}
		return nil
	}
	p, _ := out.(*model.TickerProfile)
	if p.Empty() {
		return nil
	}
	if a.Store != nil {
		a.Store.PutProfile(ctx, symbol, p)
	}
	return p
}
