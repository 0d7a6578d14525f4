// Package backtest replays an equal-weight buy-and-hold portfolio of screened tickers
// against a benchmark.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog/log"

	"SkyrocketScreener/internal/calculator"
	"SkyrocketScreener/internal/model"
)

const (
	DefaultInvestment = 100.0
	DefaultBenchmark  = "SPY"
	DefaultLookback   = 30 * 24 * time.Hour
	DateLayout        = "2006-01-02"
)

var (
	ErrNoSymbols      = errors.New("no symbols provided for backtesting")
	ErrNoPriceData    = errors.New("none of the symbols have price data for the period")
	ErrNoBenchmark    = errors.New("benchmark has no price data for the period")
	ErrNotInvestable  = errors.New("no symbol has a valid start price")
	ErrTooFewSessions = errors.New("at least two trading sessions are needed")
)

// Source returns daily bars for a symbol; empty means no data.
type Source interface {
	Fetch(ctx context.Context, symbol string, w model.Window) []model.OHLCV
}

// Config describes one backtest.
type Config struct {
	Start      time.Time // inclusive, UTC midnight
	End        time.Time // inclusive, UTC midnight
	Investment float64   // per stock
	Benchmark  string
}

// Point is the portfolio and benchmark value on one session.
type Point struct {
	Date      time.Time
	Portfolio float64
	Benchmark float64
}

// Result summarizes a backtest.
type Result struct {
	Start           time.Time
	End             time.Time
	Requested       int
	Invested        []string
	Investment      float64
	TotalInvestment float64
	FinalValue      float64
	TotalReturn     float64 // fraction
	BenchmarkReturn float64 // fraction
	Sharpe          null.Float
	MaxDrawdown     float64 // negative fraction
	Values          []Point
}

// ParseDates resolves optional YYYY-MM-DD bounds. The start defaults to 30 days before now
// and the end to today.
func ParseDates(start, end string, now time.Time) (time.Time, time.Time, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	s := today.Add(-DefaultLookback)
	e := today
	var err error
	if start != "" {
		if s, err = time.Parse(DateLayout, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q, use YYYY-MM-DD", start)
		}
	}
	if end != "" {
		if e, err = time.Parse(DateLayout, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q, use YYYY-MM-DD", end)
		}
	}
	if !s.Before(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s must be before end date %s",
			s.Format(DateLayout), e.Format(DateLayout))
	}
	return s, e, nil
}

// windowFor picks the shortest history range reaching back to start.
func windowFor(start, now time.Time) model.Window {
	days := now.Sub(start).Hours() / 24
	r := "5y"
	switch {
	case days <= 80:
		r = "3mo"
	case days <= 170:
		r = "6mo"
	case days <= 355:
		r = "1y"
	case days <= 720:
		r = "2y"
	}
	return model.Window{Range: r, Interval: "1d"}
}

type series map[time.Time]float64

// Run fetches prices and replays the portfolio. now anchors the history request.
func Run(ctx context.Context, src Source, symbols []string, cfg Config, now time.Time) (*Result, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if cfg.Investment <= 0 {
		cfg.Investment = DefaultInvestment
	}
	if cfg.Benchmark == "" {
		cfg.Benchmark = DefaultBenchmark
	}
	if !cfg.Start.Before(cfg.End) {
		return nil, fmt.Errorf("start date %s must be before end date %s",
			cfg.Start.Format(DateLayout), cfg.End.Format(DateLayout))
	}

	w := windowFor(cfg.Start, now)
	log.Info().Int("symbols", len(symbols)).Str("start", cfg.Start.Format(DateLayout)).
		Str("end", cfg.End.Format(DateLayout)).Str("window", w.String()).Msg("backtest started")

	prices := make(map[string]series, len(symbols)+1)
	load := func(sym string) {
		if _, ok := prices[sym]; ok {
			return
		}
		if s := clip(src.Fetch(ctx, sym, w), cfg.Start, cfg.End); len(s) > 0 {
			prices[sym] = s
		}
	}
	for _, sym := range symbols {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		load(sym)
	}
	load(cfg.Benchmark)

	if _, ok := prices[cfg.Benchmark]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBenchmark, cfg.Benchmark)
	}
	var valid []string
	seen := make(map[string]bool)
	for _, sym := range symbols {
		if _, ok := prices[sym]; ok && !seen[sym] {
			valid = append(valid, sym)
			seen[sym] = true
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoPriceData
	}
	if len(valid) < len(symbols) {
		log.Warn().Int("valid", len(valid)).Int("requested", len(symbols)).Msg("some symbols had no price data")
	}

	return replay(prices, valid, cfg, len(symbols))
}

func clip(bars []model.OHLCV, start, end time.Time) series {
	s := make(series)
	last := end.Add(24 * time.Hour)
	for _, b := range bars {
		day := b.Time.UTC().Truncate(24 * time.Hour)
		if day.Before(start) || !day.Before(last) {
			continue
		}
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		s[day] = b.Close
	}
	return s
}

func replay(prices map[string]series, valid []string, cfg Config, requested int) (*Result, error) {
	dates := sessions(prices)
	if len(dates) < 2 {
		return nil, ErrTooFewSessions
	}
	first := dates[0]

	shares := make(map[string]float64)
	var invested []string
	for _, sym := range valid {
		p, ok := prices[sym][first]
		if !ok || p <= 0 {
			log.Warn().Str("symbol", sym).Msg("no valid start price, not invested")
			continue
		}
		shares[sym] = cfg.Investment / p
		invested = append(invested, sym)
	}
	if len(invested) == 0 {
		return nil, ErrNotInvestable
	}
	total := cfg.Investment * float64(len(invested))

	var benchShares float64
	if p, ok := prices[cfg.Benchmark][first]; ok && p > 0 {
		benchShares = total / p
	} else {
		log.Warn().Str("benchmark", cfg.Benchmark).Msg("benchmark has no start price, using a flat line")
	}

	last := make(map[string]float64)
	values := make([]Point, len(dates))
	for i, d := range dates {
		var v float64
		for _, sym := range invested {
			if p, ok := prices[sym][d]; ok {
				last[sym] = p
			}
			v += last[sym] * shares[sym]
		}
		bench := total
		if benchShares > 0 {
			if p, ok := prices[cfg.Benchmark][d]; ok {
				last[cfg.Benchmark] = p
			}
			bench = last[cfg.Benchmark] * benchShares
		}
		values[i] = Point{Date: d, Portfolio: v, Benchmark: bench}
	}

	curve := make([]float64, len(values))
	for i, p := range values {
		curve[i] = p.Portfolio
	}
	res := &Result{
		Start:           cfg.Start,
		End:             cfg.End,
		Requested:       requested,
		Invested:        invested,
		Investment:      cfg.Investment,
		TotalInvestment: total,
		FinalValue:      curve[len(curve)-1],
		TotalReturn:     curve[len(curve)-1]/total - 1,
		BenchmarkReturn: values[len(values)-1].Benchmark/total - 1,
		MaxDrawdown:     calculator.CalculateMaxDrawdown(curve),
		Values:          values,
	}
	if sharpe, err := calculator.CalculateSharpe(curveReturns(curve)); err == nil {
		res.Sharpe = null.FloatFrom(sharpe)
	}
	log.Info().Int("invested", len(invested)).Float64("total_return", res.TotalReturn).
		Float64("benchmark_return", res.BenchmarkReturn).Msg("backtest finished")
	return res, nil
}

// sessions is the sorted union of trading dates across all series.
func sessions(prices map[string]series) []time.Time {
	set := make(map[time.Time]struct{})
	for _, s := range prices {
		for d := range s {
			set[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func curveReturns(curve []float64) []float64 {
	out := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		if curve[i-1] > 0 {
			out = append(out, curve[i]/curve[i-1]-1)
		}
	}
	return out
}
