package collector

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog/log"

	"SkyrocketScreener/internal/calculator"
	"SkyrocketScreener/internal/model"
)

// Signal thresholds.
const (
	VolumeSurgeFactor = 2.0
	BollingerK        = 2.0
	SqueezeWidth      = 0.05
	CatalystBars      = 5
	CatalystThreshold = 15.0
	MomentumBars      = 126
)

// ProfileSource supplies ticker profiles to the engine. *Adapter implements it.
type ProfileSource interface {
	Profile(ctx context.Context, symbol string) *model.TickerProfile
}

// Engine turns a price history into an indicator bundle.
type Engine struct {
	Profiles ProfileSource // optional; profile-derived fields stay absent without it
}

// NewEngine creates an indicator engine.
func NewEngine(profiles ProfileSource) *Engine {
	return &Engine{Profiles: profiles}
}

// Compute builds the bundle for the last bar of bars. It returns nil when the series is
// too short or any indicator fails unexpectedly; the failure is logged, never raised.
func (e *Engine) Compute(ctx context.Context, symbol string, bars []model.OHLCV) (b *model.Bundle) {
	if len(bars) == 0 {
		log.Warn().Str("symbol", symbol).Msg("no history, skipping indicators")
		return nil
	}
	if len(bars) < MinLength {
		log.Warn().Str("symbol", symbol).Int("bars", len(bars)).Int("need", MinLength).Msg("history too short for indicators")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("symbol", symbol).Int("bars", len(bars)).Interface("panic", r).Msg("indicator computation panicked")
			b = nil
		}
	}()

	b, err := e.compute(ctx, symbol, bars)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Int("bars", len(bars)).Msg("indicator computation failed")
		return nil
	}
	return b
}

func (e *Engine) compute(ctx context.Context, symbol string, bars []model.OHLCV) (*model.Bundle, error) {
	price := bars[len(bars)-1].Close
	if !finite(price) {
		return nil, fmt.Errorf("current price is not finite: %v", price)
	}
	b := &model.Bundle{CurrentPrice: null.FloatFrom(price)}

	rsi, err := calculator.CalculateRSI(bars, RSIPeriod)
	switch {
	case err == nil:
		b.RSI = finiteOrNull(rsi)
	case errors.Is(err, calculator.ErrNoMovement):
		// flat series: RSI undefined
	default:
		return nil, fmt.Errorf("rsi: %w", err)
	}

	if b.VolumeSurge, err = calculator.CalculateVolumeSurge(bars, VolumeLookback, VolumeSurgeFactor); err != nil {
		return nil, fmt.Errorf("volume surge: %w", err)
	}
	if b.Breakout, err = calculator.CalculateBreakout(bars, BreakoutLookback); err != nil {
		return nil, fmt.Errorf("breakout: %w", err)
	}

	width, err := calculator.CalculateBollingerWidth(bars, BollingerPeriod, BollingerK)
	switch {
	case err == nil:
		b.BBWidth = finiteOrNull(width)
		b.BBSqueeze = b.BBWidth.Valid && width < SqueezeWidth
	case errors.Is(err, calculator.ErrNonPositiveMiddle):
	default:
		return nil, fmt.Errorf("bollinger: %w", err)
	}

	atr, err := calculator.CalculateATR(bars, ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}
	if price > 0 {
		b.ATRPercent = finiteOrNull(atr / price * 100)
	} else {
		b.ATRPercent = null.FloatFrom(0)
	}

	if chg, err := calculator.CalculatePercentChange(bars, CatalystBars); err == nil && finite(chg) {
		b.CatalystPctChange = null.FloatFrom(chg)
		b.CatalystProxy = math.Abs(chg) > CatalystThreshold
	}

	returns := calculator.CalculateDailyReturns(bars)
	if mom, err := calculator.CalculateMomentum(returns, MomentumBars); err == nil {
		b.Momentum6m = finiteOrNull(mom)
	}
	if sharpe, err := calculator.CalculateSharpe(returns); err == nil {
		b.SharpeRatio = finiteOrNull(sharpe)
	}

	if e.Profiles != nil {
		applyProfile(b, e.Profiles.Profile(ctx, symbol))
	}
	return b, nil
}

func applyProfile(b *model.Bundle, p *model.TickerProfile) {
	if p == nil {
		return
	}
	if p.SharesShort.Valid && p.FloatShares.Valid && p.FloatShares.Float64 > 0 {
		b.ShortInterestPct = finiteOrNull(p.SharesShort.Float64 / p.FloatShares.Float64 * 100)
	}
	if p.ShortRatio.Valid {
		b.ShortRatio = finiteOrNull(p.ShortRatio.Float64)
	}
	if p.HeldPercentInstitutions.Valid {
		b.InstOwnPct = finiteOrNull(p.HeldPercentInstitutions.Float64 * 100)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteOrNull(f float64) null.Float {
	if !finite(f) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
