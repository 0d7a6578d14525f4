// Package screener runs the fetch, indicator and scoring pipeline over a ticker universe.
package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"SkyrocketScreener/internal/metrics"
	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/strategy"
)

// Per-ticker outcomes reported to metrics and the run summary.
const (
	OutcomeNoData       = "no_data"
	OutcomeNoIndicators = "no_indicators"
	OutcomeNoPrice      = "no_price"
	OutcomeOutOfRange   = "out_of_range"
	OutcomeZeroScore    = "zero_score"
	OutcomeCandidate    = "candidate"
)

// Source supplies price history. *collector.Adapter implements it.
type Source interface {
	Fetch(ctx context.Context, symbol string, w model.Window) []model.OHLCV
}

// Indicators turns history into an indicator bundle. *collector.Engine implements it.
type Indicators interface {
	Compute(ctx context.Context, symbol string, bars []model.OHLCV) *model.Bundle
}

// Config holds the screening parameters.
type Config struct {
	Timeframe    model.Timeframe
	MinPrice     float64 // inclusive
	MaxPrice     float64 // exclusive
	RequestDelay time.Duration
}

// Validate rejects configurations that cannot screen anything. Nothing is defaulted.
func (c Config) Validate() error {
	if _, err := strategy.Lookup(c.Timeframe); err != nil {
		return err
	}
	if math.IsNaN(c.MinPrice) || math.IsNaN(c.MaxPrice) {
		return errors.New("price bounds must be numbers")
	}
	if c.MinPrice < 0 || c.MaxPrice < 0 {
		return fmt.Errorf("price bounds must not be negative (min %.2f, max %.2f)", c.MinPrice, c.MaxPrice)
	}
	if c.MinPrice >= c.MaxPrice {
		return fmt.Errorf("min price %.2f must be below max price %.2f", c.MinPrice, c.MaxPrice)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay must not be negative, got %v", c.RequestDelay)
	}
	return nil
}

// Screener scores a universe against one timeframe profile.
type Screener struct {
	cfg     Config
	source  Source
	engine  Indicators
	limiter *rate.Limiter
	metrics *metrics.Registry
}

// New validates cfg and builds a screener.
func New(cfg Config, source Source, engine Indicators, m *metrics.Registry) (*Screener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid screen config: %w", err)
	}
	if source == nil || engine == nil {
		return nil, errors.New("screener needs a data source and an indicator engine")
	}
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &Screener{
		cfg:     cfg,
		source:  source,
		engine:  engine,
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
	}, nil
}

// Config returns the validated configuration.
func (s *Screener) Config() Config { return s.cfg }

// Screen evaluates tickers in order and returns the candidates with a positive score,
// sorted by score descending with ties in input order. On cancellation the candidates
// collected so far are returned, sorted, together with the context error.
func (s *Screener) Screen(ctx context.Context, tickers []string) ([]model.Candidate, error) {
	var (
		out      []model.Candidate
		outcomes = make(map[string]int)
		runErr   error
		done     int
	)
	for _, sym := range tickers {
		if err := s.limiter.Wait(ctx); err != nil {
			runErr = ctx.Err()
			if runErr == nil {
				// the next slot lies beyond the deadline
				runErr = context.DeadlineExceeded
			}
			break
		}

		outcome, c := s.screenOne(ctx, sym)
		if err := ctx.Err(); err != nil {
			// a cancelled fetch looks like missing data; do not count it
			runErr = err
			break
		}
		done++
		outcomes[outcome]++
		s.metrics.TickerOutcome(outcome)
		if c != nil {
			out = append(out, *c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	ev := log.Info()
	if runErr != nil {
		ev = log.Warn().Err(runErr)
	}
	ev.Str("timeframe", string(s.cfg.Timeframe)).
		Int("screened", done).
		Int("universe", len(tickers)).
		Int("candidates", len(out)).
		Interface("outcomes", outcomes).
		Msg("screen finished")
	return out, runErr
}

func (s *Screener) screenOne(ctx context.Context, sym string) (string, *model.Candidate) {
	bars := s.source.Fetch(ctx, sym, model.ScreenWindow)
	if len(bars) == 0 {
		return OutcomeNoData, nil
	}
	b := s.engine.Compute(ctx, sym, bars)
	if b == nil {
		return OutcomeNoIndicators, nil
	}
	if !b.CurrentPrice.Valid || math.IsNaN(b.CurrentPrice.Float64) {
		return OutcomeNoPrice, nil
	}
	if p := b.CurrentPrice.Float64; p < s.cfg.MinPrice || p >= s.cfg.MaxPrice {
		return OutcomeOutOfRange, nil
	}
	score, criteria := strategy.Score(b, s.cfg.Timeframe)
	if score <= 0 {
		return OutcomeZeroScore, nil
	}
	log.Debug().Str("symbol", sym).Int("score", score).Strs("criteria", criteria).Msg("candidate")
	return OutcomeCandidate, &model.Candidate{
		Ticker:    sym,
		Bundle:    *b,
		Score:     score,
		Criteria:  criteria,
		Timeframe: s.cfg.Timeframe,
	}
}
