package structure

import (
	"time"

	"leveltrader/pkg/market"
)

// OrderBlockKind tags an order block as a demand or supply zone
type OrderBlockKind string

const (
	OrderBlockBullish OrderBlockKind = "bullish"
	OrderBlockBearish OrderBlockKind = "bearish"
)

// OrderBlock is the last opposing candle before a strong impulse move.
// Bullish: last bearish candle before an up-impulse (demand zone).
// Bearish: last bullish candle before a down-impulse (supply zone).
type OrderBlock struct {
	Kind        OrderBlockKind
	High        float64
	Low         float64
	Mid         float64
	Timestamp   time.Time
	Index       int
	MovePercent float64
	Strength    float64 // 0..1, scaled from the impulse size
	Mitigated   bool    // price has traded fully through the zone
	TestCount   int
}

// OrderBlockConfig controls order block detection
type OrderBlockConfig struct {
	Lookback          int     // candles scanned back from the end
	ImpulseCandles    int     // candles forming the follow-through move
	MinMovePercent    float64 // minimum impulse size to qualify
	StrongMovePercent float64 // impulse size that maps to Strength=1
}

// DefaultOrderBlockConfig returns detection defaults
func DefaultOrderBlockConfig() OrderBlockConfig {
	return OrderBlockConfig{
		Lookback:          100,
		ImpulseCandles:    3,
		MinMovePercent:    1.0,
		StrongMovePercent: 3.0,
	}
}

// DetectOrderBlocks scans the window for unexpired order blocks.
func DetectOrderBlocks(candles []market.Candle, currentPrice float64, cfg OrderBlockConfig) []OrderBlock {
	var blocks []OrderBlock
	if len(candles) < cfg.ImpulseCandles+2 {
		return blocks
	}

	start := len(candles) - cfg.Lookback
	if start < 0 {
		start = 0
	}

	for i := start; i < len(candles)-cfg.ImpulseCandles; i++ {
		c := candles[i]

		// Follow-through extremes over the impulse window
		maxHigh := c.High
		minLow := c.Low
		for j := i + 1; j <= i+cfg.ImpulseCandles && j < len(candles); j++ {
			if candles[j].High > maxHigh {
				maxHigh = candles[j].High
			}
			if candles[j].Low < minLow {
				minLow = candles[j].Low
			}
		}

		if c.Bearish() && c.High > 0 {
			moveUp := (maxHigh - c.High) / c.High * 100
			if moveUp >= cfg.MinMovePercent {
				blocks = append(blocks, newOrderBlock(OrderBlockBullish, c, i, moveUp, cfg, candles, currentPrice))
			}
		}
		if c.Bullish() && c.Low > 0 {
			moveDown := (c.Low - minLow) / c.Low * 100
			if moveDown >= cfg.MinMovePercent {
				blocks = append(blocks, newOrderBlock(OrderBlockBearish, c, i, moveDown, cfg, candles, currentPrice))
			}
		}
	}

	return blocks
}

func newOrderBlock(kind OrderBlockKind, c market.Candle, idx int, movePct float64, cfg OrderBlockConfig, candles []market.Candle, currentPrice float64) OrderBlock {
	ob := OrderBlock{
		Kind:        kind,
		High:        c.High,
		Low:         c.Low,
		Mid:         (c.High + c.Low) / 2,
		Timestamp:   c.Timestamp,
		Index:       idx,
		MovePercent: movePct,
	}

	strength := movePct / cfg.StrongMovePercent
	if strength > 1 {
		strength = 1
	}
	ob.Strength = strength

	if kind == OrderBlockBullish {
		ob.Mitigated = currentPrice < c.Low
	} else {
		ob.Mitigated = currentPrice > c.High
	}

	for j := idx + 1; j < len(candles); j++ {
		if candles[j].Low <= c.High && candles[j].High >= c.Low {
			ob.TestCount++
		}
	}

	return ob
}

// NearestUnmitigated returns the strongest unmitigated block of the given
// kind within maxDistancePercent of price, preferring higher strength.
func NearestUnmitigated(blocks []OrderBlock, kind OrderBlockKind, price, maxDistancePercent float64) *OrderBlock {
	var best *OrderBlock
	for i := range blocks {
		ob := &blocks[i]
		if ob.Kind != kind || ob.Mitigated {
			continue
		}
		ref := ob.Low
		if kind == OrderBlockBearish {
			ref = ob.High
		}
		dist := (ref - price) / price * 100
		if dist < 0 {
			dist = -dist
		}
		if dist > maxDistancePercent {
			continue
		}
		if best == nil || ob.Strength > best.Strength {
			best = ob
		}
	}
	return best
}
