package calculator

import (
	"errors"
	"math"

	"SkyrocketScreener/internal/model"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// CalculateDailyReturns returns simple close-to-close returns. Bars following a
// non-positive close are dropped.
func CalculateDailyReturns(bars []model.OHLCV) []float64 {
	if len(bars) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, bars[i].Close/prev-1)
	}
	return returns
}

// CalculateMomentum compounds the last `period` returns into a cumulative percentage return.
func CalculateMomentum(returns []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(returns) < period {
		return 0, ErrInsufficientData
	}
	growth := 1.0
	for _, r := range returns[len(returns)-period:] {
		growth *= 1 + r
	}
	return (growth - 1) * 100, nil
}

// CalculateSharpe returns the annualized mean/stdev ratio of daily returns with a zero
// risk-free rate. The sample standard deviation is used.
func CalculateSharpe(returns []float64) (float64, error) {
	n := len(returns)
	if n < 2 {
		return 0, ErrInsufficientData
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(n-1))
	if sd == 0 || math.IsNaN(sd) {
		return 0, errors.New("returns have zero deviation")
	}
	return math.Sqrt(TradingDaysPerYear) * mean / sd, nil
}

// CalculateMaxDrawdown returns the largest peak-to-trough decline of a value curve as a
// negative fraction (0 when the curve never falls).
func CalculateMaxDrawdown(values []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := v/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
