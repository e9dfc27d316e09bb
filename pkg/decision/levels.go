package decision

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"leveltrader/pkg/market"
)

// LevelAnalyzer clusters swing points into support and resistance levels.
// One analyzer per symbol; instances are not shared across symbols.
type LevelAnalyzer struct {
	cfg    LevelConfig
	logger zerolog.Logger
}

// NewLevelAnalyzer creates a level analyzer with the given configuration
func NewLevelAnalyzer(cfg LevelConfig, logger zerolog.Logger) *LevelAnalyzer {
	return &LevelAnalyzer{cfg: cfg, logger: logger}
}

// BuildLevels rebuilds the level sets for this evaluation. Supports come
// from swing lows, resistances from swing highs. Levels live only for the
// duration of the evaluation that built them.
func (a *LevelAnalyzer) BuildLevels(candles []market.Candle, highs, lows []SwingPoint, atrPercent float64, book *market.OrderBookSnapshot) Levels {
	threshold := a.clusterThreshold(atrPercent)

	levels := Levels{
		Support:    a.clusterPoints(lows, LevelSupport, threshold, candles, book),
		Resistance: a.clusterPoints(highs, LevelResistance, threshold, candles, book),
	}

	a.logger.Debug().
		Int("support", len(levels.Support)).
		Int("resistance", len(levels.Resistance)).
		Float64("cluster_threshold", threshold).
		Msg("Levels rebuilt")

	return levels
}

// clusterThreshold returns the clustering threshold in percent, optionally
// widened by current volatility.
func (a *LevelAnalyzer) clusterThreshold(atrPercent float64) float64 {
	threshold := a.cfg.ClusterThresholdPercent
	if a.cfg.ATRScaledClustering && atrPercent > 0 {
		threshold += atrPercent * a.cfg.ATRClusterFactor
	}
	return threshold
}

// clusterPoints sorts one kind of swing point by price and groups
// consecutive points while the relative gap to the cluster's running
// boundary stays within the threshold. Each closed cluster becomes one
// level at the cluster centroid.
func (a *LevelAnalyzer) clusterPoints(points []SwingPoint, kind LevelKind, thresholdPercent float64, candles []market.Candle, book *market.OrderBookSnapshot) []Level {
	// Degenerate candle extremes produce non-positive swing prices; they
	// cannot anchor a level and would poison the relative-gap math.
	sorted := make([]SwingPoint, 0, len(points))
	for _, p := range points {
		if p.Price > 0 {
			sorted = append(sorted, p)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	var levels []Level
	clusterStart := 0
	boundary := sorted[0].Price

	flush := func(start, end int) {
		cluster := sorted[start:end]
		levels = append(levels, a.buildLevel(cluster, kind, candles, book))
	}

	for i := 1; i < len(sorted); i++ {
		gap := (sorted[i].Price - boundary) / boundary * 100
		if gap <= thresholdPercent {
			boundary = sorted[i].Price
			continue
		}
		flush(clusterStart, i)
		clusterStart = i
		boundary = sorted[i].Price
	}
	flush(clusterStart, len(sorted))

	return levels
}

func (a *LevelAnalyzer) buildLevel(cluster []SwingPoint, kind LevelKind, candles []market.Candle, book *market.OrderBookSnapshot) Level {
	sum := 0.0
	var lastTouch time.Time
	for _, p := range cluster {
		sum += p.Price
		if p.Timestamp.After(lastTouch) {
			lastTouch = p.Timestamp
		}
	}

	level := Level{
		Price:     sum / float64(len(cluster)),
		Kind:      kind,
		Touches:   len(cluster),
		LastTouch: lastTouch,
	}

	strength := float64(level.Touches) / float64(a.cfg.StrongLevelTouchCount)
	if strength > 1 {
		strength = 1
	}

	strength -= a.exhaustionPenalty(level, candles)
	strength += a.wallBoost(level, book)

	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	level.Strength = strength

	return level
}

// exhaustionPenalty drains strength for every recent candle that pierced
// the level by more than the breakout percentage, up to a cap.
func (a *LevelAnalyzer) exhaustionPenalty(level Level, candles []market.Candle) float64 {
	if a.cfg.ExhaustionLookback <= 0 || level.Price <= 0 {
		return 0
	}

	start := len(candles) - a.cfg.ExhaustionLookback
	if start < 0 {
		start = 0
	}

	pierce := level.Price * a.cfg.BreakoutPiercePercent / 100
	breakouts := 0
	for i := start; i < len(candles); i++ {
		switch level.Kind {
		case LevelSupport:
			if candles[i].Low < level.Price-pierce {
				breakouts++
			}
		case LevelResistance:
			if candles[i].High > level.Price+pierce {
				breakouts++
			}
		}
	}

	penalty := float64(breakouts) * a.cfg.ExhaustionPenalty
	if penalty > a.cfg.ExhaustionMaxPenalty {
		penalty = a.cfg.ExhaustionMaxPenalty
	}
	return penalty
}

// wallBoost strengthens a level confirmed by a resting order book wall
// within a small distance, up to the configured cap.
func (a *LevelAnalyzer) wallBoost(level Level, book *market.OrderBookSnapshot) float64 {
	if book == nil || a.cfg.WallBoost <= 0 {
		return 0
	}
	if !book.WallNear(level.Price, a.cfg.WallDistancePercent, a.cfg.WallMinSize) {
		return 0
	}
	boost := a.cfg.WallBoost
	if boost > a.cfg.WallBoostCap {
		boost = a.cfg.WallBoostCap
	}
	return boost
}
