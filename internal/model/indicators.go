package model

import "github.com/guregu/null/v6"

// TickerProfile holds slow-moving fundamentals used for short-interest and ownership signals.
// Any field the provider does not report stays invalid.
type TickerProfile struct {
	ShortName               string     `json:"short_name,omitempty"`
	Sector                  string     `json:"sector,omitempty"`
	Industry                string     `json:"industry,omitempty"`
	MarketCap               null.Float `json:"market_cap"`
	SharesShort             null.Float `json:"shares_short"`
	FloatShares             null.Float `json:"float_shares"`
	ShortRatio              null.Float `json:"short_ratio"`
	HeldPercentInstitutions null.Float `json:"held_percent_institutions"` // fraction, 0.12 = 12%
}

// Empty reports whether the profile carries no usable data.
func (p *TickerProfile) Empty() bool {
	if p == nil {
		return true
	}
	return p.ShortName == "" && p.Sector == "" && p.Industry == "" &&
		!p.MarketCap.Valid && !p.SharesShort.Valid && !p.FloatShares.Valid &&
		!p.ShortRatio.Valid && !p.HeldPercentInstitutions.Valid
}

// Bundle holds all computed indicators for one symbol. Invalid fields are unknown, not zero.
type Bundle struct {
	CurrentPrice      null.Float
	RSI               null.Float
	VolumeSurge       bool
	Breakout          bool
	BBSqueeze         bool
	BBWidth           null.Float
	ATRPercent        null.Float
	ShortInterestPct  null.Float
	ShortRatio        null.Float
	InstOwnPct        null.Float
	CatalystProxy     bool
	CatalystPctChange null.Float
	Momentum6m        null.Float
	SharpeRatio       null.Float
}
