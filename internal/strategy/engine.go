// Package strategy scores indicator bundles against timeframe profiles.
package strategy

import (
	"fmt"

	"SkyrocketScreener/internal/model"
)

// Profile is the ordered rule table for one timeframe.
type Profile struct {
	Timeframe   model.Timeframe
	Description string
	Rules       []Rule
}

// MaxScore is the score of a bundle that passes every rule.
func (p Profile) MaxScore() int {
	total := 0
	for _, r := range p.Rules {
		total += r.Weight
	}
	return total
}

// Weight is a rule's display name and weight.
type Weight struct {
	Name   string
	Weight int
}

// Weights lists the rules in table order for display.
func (p Profile) Weights() []Weight {
	out := make([]Weight, len(p.Rules))
	for i, r := range p.Rules {
		out[i] = Weight{Name: r.Name, Weight: r.Weight}
	}
	return out
}

// Profiles holds every supported timeframe. Weights sum to 100 in each profile.
var Profiles = map[model.Timeframe]Profile{
	model.Timeframe24Hours: {
		Timeframe:   model.Timeframe24Hours,
		Description: "Focuses on immediate reversal/breakout potential.",
		Rules:       []Rule{volumeSurge(40), rsiExtreme(30), breakout(30)},
	},
	model.Timeframe3Days: {
		Timeframe:   model.Timeframe3Days,
		Description: "Looks for high volatility and strong near-term momentum.",
		Rules:       []Rule{volumeSurge(30), breakout(20), highATR(25), rsiMomentum(25)},
	},
	model.Timeframe7Days: {
		Timeframe:   model.Timeframe7Days,
		Description: "Balances consolidation (squeeze) with momentum and potential institutional interest.",
		Rules:       []Rule{bbSqueeze(35), volumeSurge(25), rsiExtreme(25), instOwnership(15)},
	},
	model.Timeframe2Weeks: {
		Timeframe:   model.Timeframe2Weeks,
		Description: "Targets potential short squeezes and continuation plays.",
		Rules:       []Rule{bbSqueeze(25), highShortInterest(25), instOwnership(15), volumeSurge(20), rsiMomentum(15)},
	},
	model.Timeframe1Month: {
		Timeframe:   model.Timeframe1Month,
		Description: "Focuses on potential catalysts, short squeeze potential, and momentum.",
		Rules:       []Rule{catalystProxy(25), highShortInterest(25), instOwnership(15), volumeSurge(20), rsiMomentum(15)},
	},
}

// Lookup returns the profile for tf, or an error for an unknown timeframe.
func Lookup(tf model.Timeframe) (Profile, error) {
	p, ok := Profiles[tf]
	if !ok {
		return Profile{}, fmt.Errorf("unknown timeframe %q (valid: %v)", tf, model.Timeframes)
	}
	return p, nil
}

// MaxScore returns the highest achievable score for tf, 0 if unknown.
func MaxScore(tf model.Timeframe) int {
	return Profiles[tf].MaxScore()
}

// Score evaluates every rule of the timeframe's profile and returns the additive score
// with the tags of the rules that fired, in table order. An unknown timeframe or nil
// bundle scores (0, nil).
func Score(b *model.Bundle, tf model.Timeframe) (int, []string) {
	p, ok := Profiles[tf]
	if !ok || b == nil {
		return 0, nil
	}
	score := 0
	var criteria []string
	for _, r := range p.Rules {
		if tag, ok := r.Eval(b); ok {
			score += r.Weight
			criteria = append(criteria, tag)
		}
	}
	return score, criteria
}
