package decision

import (
	"math"

	"github.com/rs/zerolog"
)

// Confidence is always reported inside this band: never fully zero, never
// above certainty.
const (
	confidenceFloor = 0.3
	confidenceCeil  = 1.0
)

// ConfidenceScorer converts a filtered candidate into a bounded
// confidence value using one of two interchangeable strategies.
type ConfidenceScorer struct {
	cfg        ConfidenceConfig
	patternCfg PatternConfig
	swingDepth int
	levels     *LevelAnalyzer
	logger     zerolog.Logger
}

// NewConfidenceScorer creates a scorer. The level analyzer is used for
// higher-timeframe level confirmation.
func NewConfidenceScorer(cfg ConfidenceConfig, patternCfg PatternConfig, swingDepth int, levels *LevelAnalyzer, logger zerolog.Logger) *ConfidenceScorer {
	return &ConfidenceScorer{
		cfg:        cfg,
		patternCfg: patternCfg,
		swingDepth: swingDepth,
		levels:     levels,
		logger:     logger,
	}
}

// Score computes the clamped confidence for the candidate
func (s *ConfidenceScorer) Score(md MarketData, candidate *Candidate, tc TrendContext, swingCount int) float64 {
	var raw float64
	switch s.cfg.Mode {
	case ConfidenceWeighted:
		raw = s.scoreWeighted(md, candidate, tc, swingCount)
	default:
		raw = s.scoreLegacy(md, candidate, tc)
	}
	return clampConfidence(raw)
}

// scoreLegacy is the additive scorer: base + strength boost + alignment
// boost, multiplied by a distance modifier, plus pattern and
// multi-timeframe level bonuses.
func (s *ConfidenceScorer) scoreLegacy(md MarketData, candidate *Candidate, tc TrendContext) float64 {
	conf := s.cfg.Base

	if candidate.Level != nil {
		conf += candidate.Level.Strength * s.cfg.StrengthBoost
	}
	if trendAligned(candidate.Direction, tc.Trend) {
		conf += s.cfg.TrendAlignmentBoost
	}

	// Distance modifier: boost very close entries, penalize far ones
	if candidate.Distance <= s.cfg.CloseDistancePercent {
		conf *= 1 + s.cfg.CloseBoost
	} else if candidate.Distance >= s.cfg.FarDistancePercent {
		conf *= 1 - s.cfg.FarPenalty
	}

	if len(md.Candles) > 0 {
		last := md.Candles[len(md.Candles)-1]
		if confirmsEntry(last, candidate.Direction, s.patternCfg) {
			conf += s.cfg.PatternBonus
		}
	}

	if candidate.Level != nil && s.confirmedByHigherTimeframeLevel(md, candidate.Level.Price) {
		conf += s.cfg.MTFLevelBonus
	}

	return conf
}

// scoreWeighted is the multi-factor scorer: a weighted sum over available
// sub-scores normalized to [0,1]. Factors without input drop out of the
// normalization instead of dragging the score down.
func (s *ConfidenceScorer) scoreWeighted(md MarketData, candidate *Candidate, tc TrendContext, swingCount int) float64 {
	w := s.cfg.Weights
	ind := md.Indicators
	long := candidate.Direction == DirectionLong

	var sum, totalWeight float64
	add := func(weight, score float64) {
		if weight <= 0 {
			return
		}
		sum += weight * clamp01(score)
		totalWeight += weight
	}

	// RSI: room in the trade direction
	if long {
		add(w.RSI, (70-ind.RSI)/40)
	} else {
		add(w.RSI, (ind.RSI-30)/40)
	}

	if ind.Stochastic != nil {
		st := *ind.Stochastic
		if long {
			add(w.Stochastic, (80-st)/60)
		} else {
			add(w.Stochastic, (st-20)/60)
		}
	}

	// EMA divergence: aligned gap scaled to the strong-gap reference
	aligned := tc.GapPercent
	if !long {
		aligned = -aligned
	}
	add(w.EMADivergence, aligned/s.cfg.StrongGapPercent)

	if ind.BollingerPosition != nil {
		pos := *ind.BollingerPosition
		if long {
			add(w.Bollinger, 1-pos)
		} else {
			add(w.Bollinger, pos)
		}
	}

	// ATR regime: moderate volatility scores best
	if s.cfg.IdealATRPercent > 0 {
		add(w.ATRRegime, 1-math.Abs(ind.ATRPercent-s.cfg.IdealATRPercent)/s.cfg.IdealATRPercent)
	}

	if ind.VolumeRatio != nil {
		add(w.VolumeRatio, (*ind.VolumeRatio-1)/2)
	}

	if ind.OrderFlowDelta != nil {
		delta := *ind.OrderFlowDelta
		if !long {
			delta = -delta
		}
		add(w.OrderFlowDelta, (delta+1)/2)
	}

	if candidate.Level != nil {
		add(w.LevelStrength, candidate.Level.Strength)
		if s.cfg.FarDistancePercent > 0 {
			add(w.LevelDistance, 1-candidate.Distance/s.cfg.FarDistancePercent)
		}
	}

	// Swing quality: denser swing structure gives more reliable levels
	add(w.SwingQuality, float64(swingCount)/10)

	if score, ok := s.higherTimeframeAlignment(md, candidate.Direction); ok {
		add(w.HigherTF, score)
	}

	if totalWeight <= 0 {
		return s.cfg.Base
	}
	return sum / totalWeight
}

// confirmedByHigherTimeframeLevel reports whether any higher-timeframe
// window carries an independent level within tolerance of price.
func (s *ConfidenceScorer) confirmedByHigherTimeframeLevel(md MarketData, price float64) bool {
	if price <= 0 {
		return false
	}
	for _, candles := range md.HigherTimeframes {
		highs, lows := ExtractSwings(candles, s.swingDepth)
		levels := s.levels.BuildLevels(candles, highs, lows, 0, nil)
		for _, level := range append(levels.Support, levels.Resistance...) {
			dist := math.Abs(level.Price-price) / price * 100
			if dist <= s.cfg.MTFTolerancePercent {
				return true
			}
		}
	}
	return false
}

// higherTimeframeAlignment returns the fraction of higher-timeframe
// windows whose EMA trend agrees with the direction.
func (s *ConfidenceScorer) higherTimeframeAlignment(md MarketData, direction Direction) (float64, bool) {
	if len(md.HigherTimeframes) == 0 {
		return 0, false
	}
	agree, counted := 0, 0
	for _, candles := range md.HigherTimeframes {
		gap, ok := emaGapPercent(candles, 9, 21)
		if !ok {
			continue
		}
		counted++
		if (direction == DirectionLong && gap > 0) || (direction == DirectionShort && gap < 0) {
			agree++
		}
	}
	if counted == 0 {
		return 0, false
	}
	return float64(agree) / float64(counted), true
}

func trendAligned(direction Direction, trend Trend) bool {
	return (direction == DirectionLong && trend == TrendUp) ||
		(direction == DirectionShort && trend == TrendDown)
}

func clampConfidence(v float64) float64 {
	if v < confidenceFloor {
		return confidenceFloor
	}
	if v > confidenceCeil {
		return confidenceCeil
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
