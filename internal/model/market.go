package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Window is the shape of a history query: how far back and at which bar interval.
type Window struct {
	Range    string // Yahoo-style range: 1mo, 3mo, 6mo, 1y, 2y
	Interval string // 1d, 1wk
}

// Common query shapes.
var (
	ScreenWindow = Window{Range: "3mo", Interval: "1d"}
	ReportWindow = Window{Range: "1y", Interval: "1d"}
)

// String renders the window as used in cache keys, e.g. "3mo_1d".
func (w Window) String() string {
	return w.Range + "_" + w.Interval
}

// ApproxBars estimates how many trading bars the window spans.
func (w Window) ApproxBars() int {
	days := 0
	switch w.Range {
	case "5d":
		days = 5
	case "1mo":
		days = 21
	case "3mo":
		days = 63
	case "6mo":
		days = 126
	case "1y":
		days = 252
	case "2y":
		days = 504
	case "5y":
		days = 1260
	default:
		days = 63
	}
	if w.Interval == "1wk" {
		return days/5 + 1
	}
	return days
}

// Closes extracts the close column of a series.
func Closes(bars []OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts the volume column of a series.
func Volumes(bars []OHLCV) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
