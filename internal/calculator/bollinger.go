package calculator

import (
	"errors"

	"SkyrocketScreener/internal/model"
)

// ErrNonPositiveMiddle is returned when the middle band is zero or negative and the
// relative width is undefined.
var ErrNonPositiveMiddle = errors.New("bollinger middle band is not positive")

// CalculateBollingerWidth returns the relative band width (upper-lower)/middle of the
// last window, with bands at k population standard deviations around the SMA.
func CalculateBollingerWidth(bars []model.OHLCV, period int, k float64) (float64, error) {
	closes := model.Closes(bars)
	middle, err := CalculateSMA(closes, period)
	if err != nil {
		return 0, err
	}
	if middle <= 0 {
		return 0, ErrNonPositiveMiddle
	}
	sd, err := CalculateStdDev(closes, period)
	if err != nil {
		return 0, err
	}
	upper := middle + k*sd
	lower := middle - k*sd
	return (upper - lower) / middle, nil
}
