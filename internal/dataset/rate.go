package dataset

import (
	"math"

	"github.com/srmops/logibot/internal/config"
)

// HaulRate computes the dispatch haul rate for a round trip:
// (base / timeBase) × minutes / tonBase, rounded up to the nearest
// increment, never below the configured minimum. Non-positive round
// trip minutes yield the minimum.
func HaulRate(roundTripMinutes float64, cfg *config.HaulRateConfig) float64 {
	if roundTripMinutes <= 0 {
		return cfg.Minimum
	}

	rate := (cfg.Base / cfg.TimeBase) * roundTripMinutes / cfg.TonBase

	incrementInverse := 1.0 / cfg.RoundIncrement
	rate = math.Ceil(rate*incrementInverse) / incrementInverse

	return math.Max(rate, cfg.Minimum)
}
