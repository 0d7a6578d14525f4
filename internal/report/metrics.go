package report

import (
	"fmt"
	"math"

	"github.com/guregu/null/v6"

	"SkyrocketScreener/internal/calculator"
	"SkyrocketScreener/internal/model"
)

// Performance holds trailing percentage returns.
type Performance struct {
	Week    null.Float
	Month   null.Float
	Quarter null.Float
	Half    null.Float
	Year    null.Float
}

// Technicals holds trend context for the report.
type Technicals struct {
	SMA50       null.Float
	SMA200      null.Float
	PctFromHigh null.Float // vs the 52-week high
	PctFromLow  null.Float // vs the 52-week low
}

// CalculatePerformance returns trailing returns over 5, 21, 63, 126 and 252 bars. A period
// longer than the history is measured from the first bar.
func CalculatePerformance(bars []model.OHLCV) Performance {
	var p Performance
	n := len(bars)
	if n < 2 {
		return p
	}
	end := bars[n-1].Close
	change := func(days int) null.Float {
		start := bars[0].Close
		if n > days {
			start = bars[n-1-days].Close
		}
		if start <= 0 {
			return null.Float{}
		}
		return null.FloatFrom((end - start) / start * 100)
	}
	p.Week = change(5)
	p.Month = change(21)
	p.Quarter = change(63)
	p.Half = change(126)
	p.Year = change(252)
	return p
}

// CalculateTechnicals returns moving averages and the distance from the 52-week range.
func CalculateTechnicals(bars []model.OHLCV) Technicals {
	var t Technicals
	if len(bars) == 0 {
		return t
	}
	if v, err := calculator.CalculateMA50(bars); err == nil {
		t.SMA50 = null.FloatFrom(v)
	}
	if v, err := calculator.CalculateMA200(bars); err == nil {
		t.SMA200 = null.FloatFrom(v)
	}
	high, low, err := calculator.Calculate52WeekRange(bars)
	if err != nil {
		return t
	}
	price := bars[len(bars)-1].Close
	if high > 0 {
		t.PctFromHigh = null.FloatFrom((price - high) / high * 100)
	}
	if low > 0 {
		t.PctFromLow = null.FloatFrom((price - low) / low * 100)
	}
	return t
}

// Score10 rescales a 0-100 score to 1-10, rounding up.
func Score10(score int64) int {
	s := int(math.Ceil(float64(score) / 10))
	return max(1, min(10, s))
}

// FormatMarketCap renders a market cap with a T/B/M/K suffix.
func FormatMarketCap(v null.Float) string {
	if !v.Valid || math.IsNaN(v.Float64) {
		return "N/A"
	}
	c := v.Float64
	switch {
	case c >= 1e12:
		return fmt.Sprintf("$%.2f T", c/1e12)
	case c >= 1e9:
		return fmt.Sprintf("$%.2f B", c/1e9)
	case c >= 1e6:
		return fmt.Sprintf("$%.2f M", c/1e6)
	case c >= 1e3:
		return fmt.Sprintf("$%.2f K", c/1e3)
	}
	return fmt.Sprintf("$%.2f", c)
}
