package universe

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// SampleFile is the quick-mode sample name inside the cache directory.
const SampleFile = "quick_mode_sample.json"

// QuickSample is the persisted quick-mode selection.
type QuickSample struct {
	OriginalCount  int      `json:"original_count"`
	FractionUsed   float64  `json:"fraction_used"`
	SampledTickers []string `json:"sampled_tickers"`
}

// QuickEnabled reports whether fraction selects a strict subset.
func QuickEnabled(fraction float64) bool {
	return fraction > 0 && fraction < 1
}

// Sample draws a random subset of int(len*fraction) symbols, at least one, keeping
// their relative order. A fraction outside (0, 1) returns the input.
func Sample(tickers []string, fraction float64, rng *rand.Rand) []string {
	if !QuickEnabled(fraction) || len(tickers) == 0 {
		return tickers
	}
	size := int(float64(len(tickers)) * fraction)
	size = min(max(size, 1), len(tickers))

	picked := rng.Perm(len(tickers))[:size]
	keep := make([]bool, len(tickers))
	for _, i := range picked {
		keep[i] = true
	}
	out := make([]string, 0, size)
	for i, t := range tickers {
		if keep[i] {
			out = append(out, t)
		}
	}
	return out
}

// LoadOrSample returns the saved sample at path when reuse is set and it was drawn from
// a universe of the same size with the same fraction. Otherwise it draws a new sample
// and saves it. The second result reports reuse.
func LoadOrSample(path string, tickers []string, fraction float64, reuse bool, rng *rand.Rand) ([]string, bool) {
	if !QuickEnabled(fraction) || len(tickers) == 0 {
		return tickers, false
	}
	if reuse {
		if s, ok := loadSample(path); ok && s.OriginalCount == len(tickers) &&
			math.Abs(s.FractionUsed-fraction) < 0.001 && s.SampledTickers != nil {
			log.Info().Int("tickers", len(s.SampledTickers)).Int("universe", len(tickers)).Msg("reusing quick mode sample")
			return s.SampledTickers, true
		}
	}

	sampled := Sample(tickers, fraction, rng)
	s := QuickSample{OriginalCount: len(tickers), FractionUsed: fraction, SampledTickers: sampled}
	if data, err := json.MarshalIndent(s, "", "    "); err == nil {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not create sample directory")
		} else if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not save quick mode sample")
		}
	}
	log.Info().Int("tickers", len(sampled)).Int("universe", len(tickers)).Float64("fraction", fraction).Msg("quick mode sample drawn")
	return sampled, false
}

func loadSample(path string) (QuickSample, bool) {
	var s QuickSample
	data, err := os.ReadFile(path)
	if err != nil {
		return s, false
	}
	if err := json.Unmarshal(data, &s); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring unreadable quick mode sample")
		return s, false
	}
	return s, true
}
