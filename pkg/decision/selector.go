package decision

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// LevelSelector picks the nearest admissible level per side and resolves
// the trade direction against the trend context.
type LevelSelector struct {
	cfg    SelectorConfig
	logger zerolog.Logger
}

// NewLevelSelector creates a selector with the given configuration
func NewLevelSelector(cfg SelectorConfig, logger zerolog.Logger) *LevelSelector {
	return &LevelSelector{cfg: cfg, logger: logger}
}

// Select resolves the trade candidate, or returns a rejection code and
// reason when no admissible candidate exists.
func (s *LevelSelector) Select(levels Levels, price float64, tc TrendContext, ind IndicatorSet) (*Candidate, RejectionCode, string) {
	support, supportDist := s.nearest(levels.Support, price, tc, ind.ATRPercent)
	resistance, resistanceDist := s.nearest(levels.Resistance, price, tc, ind.ATRPercent)

	s.logger.Debug().
		Bool("support_found", support != nil).
		Bool("resistance_found", resistance != nil).
		Str("trend", string(tc.Trend)).
		Msg("Nearest levels resolved")

	// Trend-priority resolution: trade with the trend when its side has
	// an admissible level.
	if tc.Trend == TrendDown && resistance != nil {
		return &Candidate{Direction: DirectionShort, Level: resistance, Distance: resistanceDist}, "", ""
	}
	if tc.Trend == TrendUp && support != nil {
		return &Candidate{Direction: DirectionLong, Level: support, Distance: supportDist}, "", ""
	}

	// Neutral branch: compare both sides under the strength floor.
	supportOK := support != nil && support.Strength >= s.cfg.MinStrength
	resistanceOK := resistance != nil && resistance.Strength >= s.cfg.MinStrength

	// "Uptrend" here is the raw EMA relationship, not the banded trend
	// label: a gap inside the neutral band still counts as rising.
	blockShort := s.cfg.BlockShortInUptrend && ind.EMAFast > ind.EMASlow

	switch {
	case supportOK && resistanceOK:
		if resistanceDist < supportDist {
			// Resistance is closer, but a short against a confirmed
			// uptrend falls back to the support side instead. There is
			// intentionally no mirrored branch for longs in a downtrend.
			if blockShort {
				return &Candidate{Direction: DirectionLong, Level: support, Distance: supportDist}, "", ""
			}
			return &Candidate{Direction: DirectionShort, Level: resistance, Distance: resistanceDist}, "", ""
		}
		return &Candidate{Direction: DirectionLong, Level: support, Distance: supportDist}, "", ""
	case supportOK:
		return &Candidate{Direction: DirectionLong, Level: support, Distance: supportDist}, "", ""
	case resistanceOK && !blockShort:
		return &Candidate{Direction: DirectionShort, Level: resistance, Distance: resistanceDist}, "", ""
	}

	if cand := s.breakoutCandidate(price, tc, ind); cand != nil {
		return cand, "", ""
	}

	return nil, CodeNoLevelsWithinDistance,
		fmt.Sprintf("no admissible level within distance of price %.4f", price)
}

// nearest returns the closest admissible level of one set, with its
// absolute distance in percent of current price.
func (s *LevelSelector) nearest(levels []Level, price float64, tc TrendContext, atrPercent float64) (*Level, float64) {
	if price <= 0 {
		return nil, 0
	}

	var best *Level
	bestDist := math.MaxFloat64

	for i := range levels {
		level := &levels[i]

		// Directional validity: price must sit on the bounce side.
		if level.Kind == LevelSupport && price < level.Price {
			continue
		}
		if level.Kind == LevelResistance && price > level.Price {
			continue
		}

		minTouches := s.cfg.MinTouchesLong
		if level.Kind == LevelResistance {
			minTouches = s.cfg.MinTouchesShort
		}
		if level.Touches < minTouches {
			continue
		}

		dist := math.Abs(price-level.Price) / price * 100
		if dist > s.effectiveMaxDistance(level.Kind, tc, atrPercent) {
			continue
		}
		if dist < bestDist {
			best = level
			bestDist = dist
		}
	}

	if best == nil {
		return nil, 0
	}
	return best, bestDist
}

// effectiveMaxDistance widens the admissible distance on the side aligned
// with the prevailing trend, making trend-following entries easier to
// trigger than counter-trend ones.
func (s *LevelSelector) effectiveMaxDistance(kind LevelKind, tc TrendContext, atrPercent float64) float64 {
	asymmetric := s.cfg.MaxDistancePercent
	if (kind == LevelSupport && tc.Trend == TrendUp) ||
		(kind == LevelResistance && tc.Trend == TrendDown) {
		asymmetric *= s.cfg.TrendDistanceMultiplier
	}

	dynamic := atrPercent * s.cfg.ATRDistanceMultiplier
	if dynamic > asymmetric {
		return dynamic
	}
	return asymmetric
}

// breakoutCandidate synthesizes a level-less trend-following entry when
// the trend is strong enough by EMA gap and ATR, with RSI confirming room
// to continue.
func (s *LevelSelector) breakoutCandidate(price float64, tc TrendContext, ind IndicatorSet) *Candidate {
	bc := s.cfg.Breakout
	if !bc.Enabled {
		return nil
	}
	if math.Abs(tc.GapPercent) < bc.MinEMAGapPercent || ind.ATRPercent < bc.MinATRPercent {
		return nil
	}

	if tc.GapPercent > 0 && ind.RSI <= bc.RSIRoomLong {
		s.logger.Debug().Float64("gap", tc.GapPercent).Msg("Breakout fallback: long")
		return &Candidate{Direction: DirectionLong, Breakout: true}
	}
	if tc.GapPercent < 0 && ind.RSI >= bc.RSIRoomShort {
		s.logger.Debug().Float64("gap", tc.GapPercent).Msg("Breakout fallback: short")
		return &Candidate{Direction: DirectionShort, Breakout: true}
	}
	return nil
}
