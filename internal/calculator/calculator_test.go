package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SkyrocketScreener/internal/model"
)

func barsFromCloses(closes []float64) []model.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestCalculateRSI(t *testing.T) {
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 10 + float64(i)
	}
	rsi, err := CalculateRSI(barsFromCloses(rising), 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)

	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = 50 - float64(i)
	}
	rsi, err = CalculateRSI(barsFromCloses(falling), 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rsi, 1e-9)

	alternating := make([]float64, 31)
	for i := range alternating {
		alternating[i] = 10
		if i%2 == 1 {
			alternating[i] = 11
		}
	}
	rsi, err = CalculateRSI(barsFromCloses(alternating), 14)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rsi, 5.0)
}

func TestCalculateRSI_Errors(t *testing.T) {
	_, err := CalculateRSI(barsFromCloses([]float64{1, 2, 3}), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)

	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 5
	}
	_, err = CalculateRSI(barsFromCloses(flat), 14)
	assert.ErrorIs(t, err, ErrNoMovement)

	_, err = CalculateRSI(barsFromCloses(flat), 0)
	assert.Error(t, err)
}

func TestCalculateSMAAndStdDev(t *testing.T) {
	sma, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, sma)

	sd, err := CalculateStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, sd, 1e-9)

	_, err = CalculateSMA([]float64{1}, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateBollingerWidth(t *testing.T) {
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 10
	}
	w, err := CalculateBollingerWidth(barsFromCloses(flat), 20, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w)

	// width = 4*sd/mean
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	w, err = CalculateBollingerWidth(barsFromCloses(closes), 8, 2)
	require.NoError(t, err)
	assert.InDelta(t, 4*2.0/5.0, w, 1e-9)

	zero := make([]float64, 20)
	_, err = CalculateBollingerWidth(barsFromCloses(zero), 20, 2)
	assert.ErrorIs(t, err, ErrNonPositiveMiddle)
}

func TestCalculateATR(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 10
	}
	// high-low is always 2 and closes never move
	atr, err := CalculateATR(barsFromCloses(flat), 14)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, atr, 1e-9)

	_, err = CalculateATR(barsFromCloses(flat[:10]), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateBreakout(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = 10
	}
	closes[3] = 12
	closes[20] = 12.5
	ok, err := CalculateBreakout(barsFromCloses(closes), 20)
	require.NoError(t, err)
	assert.True(t, ok)

	closes[20] = 12 // equal to the prior max is not a breakout
	ok, err = CalculateBreakout(barsFromCloses(closes), 20)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CalculateBreakout(barsFromCloses(closes[:20]), 20)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalculateVolumeSurge(t *testing.T) {
	bars := barsFromCloses(make([]float64, 12))
	bars[11].Volume = 2001
	ok, err := CalculateVolumeSurge(bars, 10, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	bars[11].Volume = 2000
	ok, err = CalculateVolumeSurge(bars, 10, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	for i := range bars {
		bars[i].Volume = 0
	}
	bars[11].Volume = 500
	ok, err = CalculateVolumeSurge(bars, 10, 2)
	require.NoError(t, err)
	assert.False(t, ok, "zero average volume never surges")
}

func TestCalculatePercentChange(t *testing.T) {
	chg, err := CalculatePercentChange(barsFromCloses([]float64{10, 11, 12, 13, 14, 12}), 5)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, chg, 1e-9)

	_, err = CalculatePercentChange(barsFromCloses([]float64{10, 11}), 5)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestReturnsMomentumSharpe(t *testing.T) {
	returns := CalculateDailyReturns(barsFromCloses([]float64{100, 110, 99, 99}))
	require.Len(t, returns, 3)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	mom, err := CalculateMomentum(returns, 2)
	require.NoError(t, err)
	assert.InDelta(t, -10.0, mom, 1e-9)

	_, err = CalculateMomentum(returns, 126)
	assert.ErrorIs(t, err, ErrInsufficientData)

	sharpe, err := CalculateSharpe([]float64{0.01, 0.02, 0.03})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(252)*0.02/0.01, sharpe, 1e-9)

	_, err = CalculateSharpe([]float64{0.5, 0.5, 0.5})
	assert.Error(t, err)
}

func TestCalculateMaxDrawdown(t *testing.T) {
	assert.InDelta(t, -0.5, CalculateMaxDrawdown([]float64{100, 120, 60, 90}), 1e-9)
	assert.Equal(t, 0.0, CalculateMaxDrawdown([]float64{1, 2, 3}))
}

func TestCalculate52WeekRange(t *testing.T) {
	high, low, err := Calculate52WeekRange(barsFromCloses([]float64{5, 9, 3, 7}))
	require.NoError(t, err)
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 3.0, low)

	_, _, err = Calculate52WeekRange(nil)
	assert.Error(t, err)
}
