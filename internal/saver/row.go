// Package saver writes screening candidates to csv, json or parquet artifacts.
package saver

import (
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"SkyrocketScreener/internal/model"
)

// NotAvailable is written for absent indicator values.
const NotAvailable = "N/A"

// Columns is the artifact column order.
var Columns = []string{
	"ticker", "price", "score", "timeframe", "criteria", "rsi", "volume_surge", "breakout",
	"bb_squeeze", "atr_percent", "short_int_pct", "short_ratio", "catalyst_proxy",
	"momentum_6m", "sharpe_ratio", "inst_own_pct",
}

// Row is one formatted candidate. Numbers are pre-rounded strings so every format
// shows the same values.
type Row struct {
	Ticker        string `json:"ticker" parquet:"ticker"`
	Price         string `json:"price" parquet:"price"`
	Score         int64  `json:"score" parquet:"score"`
	Timeframe     string `json:"timeframe" parquet:"timeframe"`
	Criteria      string `json:"criteria" parquet:"criteria"`
	RSI           string `json:"rsi" parquet:"rsi"`
	VolumeSurge   string `json:"volume_surge" parquet:"volume_surge"`
	Breakout      string `json:"breakout" parquet:"breakout"`
	BBSqueeze     string `json:"bb_squeeze" parquet:"bb_squeeze"`
	ATRPercent    string `json:"atr_percent" parquet:"atr_percent"`
	ShortIntPct   string `json:"short_int_pct" parquet:"short_int_pct"`
	ShortRatio    string `json:"short_ratio" parquet:"short_ratio"`
	CatalystProxy string `json:"catalyst_proxy" parquet:"catalyst_proxy"`
	Momentum6m    string `json:"momentum_6m" parquet:"momentum_6m"`
	SharpeRatio   string `json:"sharpe_ratio" parquet:"sharpe_ratio"`
	InstOwnPct    string `json:"inst_own_pct" parquet:"inst_own_pct"`
}

func (r Row) fields() []string {
	return []string{
		r.Ticker, r.Price, strconv.FormatInt(r.Score, 10), r.Timeframe, r.Criteria, r.RSI,
		r.VolumeSurge, r.Breakout, r.BBSqueeze, r.ATRPercent, r.ShortIntPct, r.ShortRatio,
		r.CatalystProxy, r.Momentum6m, r.SharpeRatio, r.InstOwnPct,
	}
}

func num(f null.Float, prec int) string {
	if !f.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(f.Float64, 'f', prec, 64)
}

// NewRow formats a candidate.
func NewRow(c model.Candidate) Row {
	b := c.Bundle
	return Row{
		Ticker:        c.Ticker,
		Price:         num(b.CurrentPrice, 2),
		Score:         int64(c.Score),
		Timeframe:     string(c.Timeframe),
		Criteria:      strings.Join(c.Criteria, ", "),
		RSI:           num(b.RSI, 1),
		VolumeSurge:   strconv.FormatBool(b.VolumeSurge),
		Breakout:      strconv.FormatBool(b.Breakout),
		BBSqueeze:     strconv.FormatBool(b.BBSqueeze),
		ATRPercent:    num(b.ATRPercent, 1),
		ShortIntPct:   num(b.ShortInterestPct, 1),
		ShortRatio:    num(b.ShortRatio, 1),
		CatalystProxy: strconv.FormatBool(b.CatalystProxy),
		Momentum6m:    num(b.Momentum6m, 1),
		SharpeRatio:   num(b.SharpeRatio, 2),
		InstOwnPct:    num(b.InstOwnPct, 1),
	}
}

// Rows formats candidates, keeping their order.
func Rows(cands []model.Candidate) []Row {
	rows := make([]Row, len(cands))
	for i, c := range cands {
		rows[i] = NewRow(c)
	}
	return rows
}
