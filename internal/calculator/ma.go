package calculator

import (
	"errors"
	"math"

	"SkyrocketScreener/internal/model"
)

// ErrInsufficientData is returned when a series is shorter than an indicator's lookback.
var ErrInsufficientData = errors.New("not enough data for calculation")

// CalculateSMA computes the simple moving average of the last `period` prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateStdDev computes the population standard deviation of the last `period` prices.
func CalculateStdDev(prices []float64, period int) (float64, error) {
	mean, err := CalculateSMA(prices, period)
	if err != nil {
		return 0, err
	}
	var ss float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(period)), nil
}

// CalculateMA50 returns the 50-bar simple moving average of closes.
func CalculateMA50(bars []model.OHLCV) (float64, error) {
	return CalculateSMA(model.Closes(bars), 50)
}

// CalculateMA200 returns the 200-bar simple moving average of closes.
func CalculateMA200(bars []model.OHLCV) (float64, error) {
	return CalculateSMA(model.Closes(bars), 200)
}
