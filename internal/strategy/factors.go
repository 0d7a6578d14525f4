package strategy

import (
	"fmt"

	"SkyrocketScreener/internal/model"
)

// Rule thresholds.
const (
	RSIOversold       = 30.0
	RSIOverbought     = 70.0
	HighATRPercent    = 5.0
	HighShortInterest = 15.0
	MinInstOwnPct     = 5.0
)

// Rule is one independent, weighted condition of a profile. Eval returns the criterion
// tag and whether the rule fired; a rule never fires on absent fields.
type Rule struct {
	Name   string // display name used in reports
	Weight int
	Eval   func(b *model.Bundle) (string, bool)
}

func volumeSurge(w int) Rule {
	return Rule{Name: "Volume Surge (>2x Avg)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		return "VolumeSurge", b.VolumeSurge
	}}
}

func breakout(w int) Rule {
	return Rule{Name: "Breakout (New 20d High)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		return "Breakout", b.Breakout
	}}
}

// rsiExtreme fires on either side of the neutral band.
func rsiExtreme(w int) Rule {
	return Rule{Name: "RSI Extreme (<30 or >70)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		if !b.RSI.Valid {
			return "", false
		}
		switch rsi := b.RSI.Float64; {
		case rsi < RSIOversold:
			return fmt.Sprintf("RSI Oversold (%.1f)", rsi), true
		case rsi > RSIOverbought:
			return fmt.Sprintf("RSI Overbought (%.1f)", rsi), true
		}
		return "", false
	}}
}

func rsiMomentum(w int) Rule {
	return Rule{Name: "RSI Momentum (>70)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		if !b.RSI.Valid || b.RSI.Float64 <= RSIOverbought {
			return "", false
		}
		return fmt.Sprintf("RSI Momentum (%.1f)", b.RSI.Float64), true
	}}
}

func highATR(w int) Rule {
	return Rule{Name: "High ATR (>5% of Price)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		if !b.ATRPercent.Valid || b.ATRPercent.Float64 <= HighATRPercent {
			return "", false
		}
		return fmt.Sprintf("High ATR (%.1f%%)", b.ATRPercent.Float64), true
	}}
}

func bbSqueeze(w int) Rule {
	return Rule{Name: "Bollinger Band Squeeze (<5% Width)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		if !b.BBSqueeze || !b.BBWidth.Valid {
			return "", false
		}
		return fmt.Sprintf("BBSqueeze (W:%.3f)", b.BBWidth.Float64), true
	}}
}

func instOwnership(w int) Rule {
	return Rule{Name: "Institutional Ownership (>5%)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		if !b.InstOwnPct.Valid || b.InstOwnPct.Float64 <= MinInstOwnPct {
			return "", false
		}
		return fmt.Sprintf("InstOwn (%.1f%%)", b.InstOwnPct.Float64), true
	}}
}

func highShortInterest(w int) Rule {
	return Rule{Name: "High Short Interest (>15% Float)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		if !b.ShortInterestPct.Valid || b.ShortInterestPct.Float64 <= HighShortInterest {
			return "", false
		}
		return fmt.Sprintf("HighShortInt (%.1f%%)", b.ShortInterestPct.Float64), true
	}}
}

func catalystProxy(w int) Rule {
	return Rule{Name: "Catalyst Proxy (>15% move in 5d)", Weight: w, Eval: func(b *model.Bundle) (string, bool) {
		if !b.CatalystProxy || !b.CatalystPctChange.Valid {
			return "", false
		}
		return fmt.Sprintf("CatalystProxy (%.1f%% 5d)", b.CatalystPctChange.Float64), true
	}}
}
