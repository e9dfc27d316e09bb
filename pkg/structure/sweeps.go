package structure

import (
	"time"

	"leveltrader/pkg/market"
)

// SweepKind tags the side of a liquidity sweep
type SweepKind string

const (
	// SweepLow: price wicked below a prior low and closed back above it.
	// Liquidity below the low was taken; the sweep low is a defended floor.
	SweepLow SweepKind = "low"
	// SweepHigh: price wicked above a prior high and closed back under it.
	SweepHigh SweepKind = "high"
)

// Sweep records a liquidity grab through a prior extreme
type Sweep struct {
	Kind         SweepKind
	ExtremePrice float64 // the wick extreme of the sweeping candle
	SweptPrice   float64 // the prior extreme that was pierced
	Timestamp    time.Time
	Index        int
}

// SweepConfig controls sweep detection
type SweepConfig struct {
	Lookback      int // candles scanned back from the end for sweep candles
	ExtremeWindow int // preceding candles defining the swept extreme
}

// DefaultSweepConfig returns detection defaults
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Lookback:      20,
		ExtremeWindow: 10,
	}
}

// DetectSweeps scans recent candles for liquidity sweeps of prior extremes.
func DetectSweeps(candles []market.Candle, cfg SweepConfig) []Sweep {
	var sweeps []Sweep
	if len(candles) < cfg.ExtremeWindow+2 {
		return sweeps
	}

	start := len(candles) - cfg.Lookback
	if start < cfg.ExtremeWindow {
		start = cfg.ExtremeWindow
	}

	for i := start; i < len(candles); i++ {
		c := candles[i]

		priorLow := candles[i-1].Low
		priorHigh := candles[i-1].High
		for j := i - cfg.ExtremeWindow; j < i; j++ {
			if candles[j].Low < priorLow {
				priorLow = candles[j].Low
			}
			if candles[j].High > priorHigh {
				priorHigh = candles[j].High
			}
		}

		// Pierced the prior low but closed back above it
		if c.Low < priorLow && c.Close > priorLow {
			sweeps = append(sweeps, Sweep{
				Kind:         SweepLow,
				ExtremePrice: c.Low,
				SweptPrice:   priorLow,
				Timestamp:    c.Timestamp,
				Index:        i,
			})
		}

		// Pierced the prior high but closed back under it
		if c.High > priorHigh && c.Close < priorHigh {
			sweeps = append(sweeps, Sweep{
				Kind:         SweepHigh,
				ExtremePrice: c.High,
				SweptPrice:   priorHigh,
				Timestamp:    c.Timestamp,
				Index:        i,
			})
		}
	}

	return sweeps
}

// LatestSweep returns the most recent sweep of the given kind not older
// than maxAge relative to now, or nil.
func LatestSweep(sweeps []Sweep, kind SweepKind, now time.Time, maxAge time.Duration) *Sweep {
	var latest *Sweep
	for i := range sweeps {
		s := &sweeps[i]
		if s.Kind != kind {
			continue
		}
		if now.Sub(s.Timestamp) > maxAge {
			continue
		}
		if latest == nil || s.Timestamp.After(latest.Timestamp) {
			latest = s
		}
	}
	return latest
}
