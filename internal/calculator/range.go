package calculator

import (
	"errors"
	"math"

	"SkyrocketScreener/internal/model"
)

// Calculate52WeekRange scans the closes of the most recent 252 trading days and returns the high and low.
func Calculate52WeekRange(bars []model.OHLCV) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	n := len(bars)
	start := n - 252
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].Close > high {
			high = bars[i].Close
		}
		if bars[i].Close < low {
			low = bars[i].Close
		}
	}
	return high, low, nil
}

// CalculateBreakout reports whether the last close is strictly above the highest close
// of the preceding `lookback` bars.
func CalculateBreakout(bars []model.OHLCV, lookback int) (bool, error) {
	if lookback <= 0 {
		return false, errors.New("lookback must be positive")
	}
	n := len(bars)
	if n < lookback+1 {
		return false, ErrInsufficientData
	}
	prior := math.Inf(-1)
	for i := n - 1 - lookback; i < n-1; i++ {
		if bars[i].Close > prior {
			prior = bars[i].Close
		}
	}
	return bars[n-1].Close > prior, nil
}

// CalculateVolumeSurge reports whether the last bar's volume exceeds factor times the mean
// volume of the preceding `lookback` bars. A non-positive mean never surges.
func CalculateVolumeSurge(bars []model.OHLCV, lookback int, factor float64) (bool, error) {
	if lookback <= 0 {
		return false, errors.New("lookback must be positive")
	}
	n := len(bars)
	if n < lookback+1 {
		return false, ErrInsufficientData
	}
	prior := model.Volumes(bars[n-1-lookback : n-1])
	avg, err := CalculateSMA(prior, lookback)
	if err != nil {
		return false, err
	}
	if avg <= 0 || math.IsNaN(avg) {
		return false, nil
	}
	return bars[n-1].Volume > factor*avg, nil
}

// CalculatePercentChange returns the percentage change of the last close versus the close
// `bars` bars earlier.
func CalculatePercentChange(series []model.OHLCV, bars int) (float64, error) {
	if bars <= 0 {
		return 0, errors.New("bars must be positive")
	}
	n := len(series)
	if n <= bars {
		return 0, ErrInsufficientData
	}
	then := series[n-1-bars].Close
	if then <= 0 {
		return 0, errors.New("reference close is not positive")
	}
	return (series[n-1].Close - then) / then * 100, nil
}
