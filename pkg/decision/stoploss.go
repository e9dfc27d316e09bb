package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"leveltrader/pkg/market"
	"leveltrader/pkg/structure"
)

// ExitConstructor derives stop-loss and take-profit prices. The stop-loss
// comes from a strict priority-ordered fallback chain of structure-aware
// methods, each bounded by the configured distance band.
type ExitConstructor struct {
	cfg    ExitConfig
	logger zerolog.Logger
}

// NewExitConstructor creates an exit constructor
func NewExitConstructor(cfg ExitConfig, logger zerolog.Logger) *ExitConstructor {
	return &ExitConstructor{cfg: cfg, logger: logger}
}

// exitContext carries everything a stop method may inspect
type exitContext struct {
	direction  Direction
	entry      float64
	atrPercent float64
	candles    []market.Candle
	highs      []SwingPoint
	lows       []SwingPoint
	levels     Levels
	blocks     []structure.OrderBlock
	sweeps     []structure.Sweep
	book       *market.OrderBookSnapshot
	now        time.Time
	candleStep time.Duration
}

// StopLoss walks the fallback chain in configured order. Structure-aware
// methods are skipped when their proposal falls outside the distance
// band; ATR and PERCENT clamp into the band and therefore always
// succeed. If the whole chain is exhausted the emergency fixed-percent
// fallback is used and flagged.
func (e *ExitConstructor) StopLoss(ectx *exitContext) ExitCalculation {
	for _, method := range e.cfg.MethodOrder {
		var calc *ExitCalculation
		switch method {
		case ExitSweep:
			calc = e.sweepStop(ectx)
		case ExitOrderBlock:
			calc = e.orderBlockStop(ectx)
		case ExitSwing:
			calc = e.swingStop(ectx)
		case ExitLevel:
			calc = e.levelStop(ectx)
		case ExitATR:
			calc = e.atrStop(ectx)
		case ExitPercent:
			calc = e.percentStop(ectx)
		}
		if calc != nil {
			e.logger.Debug().
				Str("method", string(calc.Method)).
				Float64("price", calc.Price).
				Float64("distance_pct", calc.DistancePercent).
				Msg("Stop-loss resolved")
			return *calc
		}
	}

	// Emergency fallback: every configured method was exhausted
	distance := e.cfg.EmergencyPercent
	e.logger.Warn().
		Float64("distance_pct", distance).
		Msg("Stop-loss chain exhausted, using emergency fallback")
	return ExitCalculation{
		Method:          ExitPercent,
		Price:           stopPrice(ectx.direction, ectx.entry, distance),
		DistancePercent: distance,
		Reason:          fmt.Sprintf("emergency fallback at %.2f%%", distance),
		Emergency:       true,
	}
}

// sweepStop places the stop beyond a recently swept liquidity extreme on
// the opposite side of the trade.
func (e *ExitConstructor) sweepStop(ectx *exitContext) *ExitCalculation {
	kind := structure.SweepLow
	if ectx.direction == DirectionShort {
		kind = structure.SweepHigh
	}

	maxAge := time.Duration(e.cfg.SweepMaxAgeCandles) * ectx.candleStep
	sweep := structure.LatestSweep(ectx.sweeps, kind, ectx.now, maxAge)
	if sweep == nil {
		return nil
	}

	return e.structureStop(ectx, ExitSweep, sweep.ExtremePrice,
		fmt.Sprintf("beyond swept %s at %.4f", kind, sweep.ExtremePrice))
}

// orderBlockStop places the stop beyond the strongest unmitigated order
// block within its distance cap.
func (e *ExitConstructor) orderBlockStop(ectx *exitContext) *ExitCalculation {
	kind := structure.OrderBlockBullish
	if ectx.direction == DirectionShort {
		kind = structure.OrderBlockBearish
	}

	ob := structure.NearestUnmitigated(ectx.blocks, kind, ectx.entry, e.cfg.OrderBlockMaxDistancePercent)
	if ob == nil {
		return nil
	}

	anchor := ob.Low
	if ectx.direction == DirectionShort {
		anchor = ob.High
	}
	return e.structureStop(ectx, ExitOrderBlock, anchor,
		fmt.Sprintf("beyond %s order block (strength %.2f)", ob.Kind, ob.Strength))
}

// swingStop places the stop beyond the nearest same-direction swing point
// within the lookback and distance cap.
func (e *ExitConstructor) swingStop(ectx *exitContext) *ExitCalculation {
	points := ectx.lows
	if ectx.direction == DirectionShort {
		points = ectx.highs
	}

	start := len(points) - e.cfg.SwingLookback
	if start < 0 {
		start = 0
	}

	var best *SwingPoint
	bestDist := math.MaxFloat64
	for i := start; i < len(points); i++ {
		p := &points[i]
		if ectx.direction == DirectionLong && p.Price >= ectx.entry {
			continue
		}
		if ectx.direction == DirectionShort && p.Price <= ectx.entry {
			continue
		}
		dist := math.Abs(ectx.entry-p.Price) / ectx.entry * 100
		if dist > e.cfg.SwingMaxDistancePercent {
			continue
		}
		if dist < bestDist {
			best = p
			bestDist = dist
		}
	}
	if best == nil {
		return nil
	}

	return e.structureStop(ectx, ExitSwing, best.Price,
		fmt.Sprintf("beyond swing %s at %.4f", best.Kind, best.Price))
}

// levelStop places the stop beyond a support/resistance level meeting the
// minimum touches-and-strength product, preferring the best
// strength-to-distance ratio.
func (e *ExitConstructor) levelStop(ectx *exitContext) *ExitCalculation {
	levels := ectx.levels.Support
	if ectx.direction == DirectionShort {
		levels = ectx.levels.Resistance
	}

	var best *Level
	bestRatio := 0.0
	for i := range levels {
		level := &levels[i]
		if float64(level.Touches)*level.Strength < e.cfg.LevelMinScore {
			continue
		}
		if ectx.direction == DirectionLong && level.Price >= ectx.entry {
			continue
		}
		if ectx.direction == DirectionShort && level.Price <= ectx.entry {
			continue
		}
		dist := math.Abs(ectx.entry-level.Price) / ectx.entry * 100
		if dist <= 0 {
			continue
		}
		ratio := level.Strength / dist
		if ratio > bestRatio {
			best = level
			bestRatio = ratio
		}
	}
	if best == nil {
		return nil
	}

	return e.structureStop(ectx, ExitLevel, best.Price,
		fmt.Sprintf("beyond %s level at %.4f (touches %d)", best.Kind, best.Price, best.Touches))
}

// atrStop derives the distance from volatility and clamps it into the
// band, so the floor always holds even when ATR is tight.
func (e *ExitConstructor) atrStop(ectx *exitContext) *ExitCalculation {
	raw := ectx.atrPercent * e.cfg.ATRBufferMultiplier * e.cfg.ATRFixedMultiplier
	distance := clampDistance(raw, e.cfg.MinDistancePercent, e.cfg.MaxDistancePercent)
	return &ExitCalculation{
		Method:          ExitATR,
		Price:           stopPrice(ectx.direction, ectx.entry, distance),
		DistancePercent: distance,
		Reason:          fmt.Sprintf("ATR-derived distance %.2f%% (raw %.2f%%)", distance, raw),
	}
}

// percentStop is the deliberate fixed-percentage method
func (e *ExitConstructor) percentStop(ectx *exitContext) *ExitCalculation {
	distance := clampDistance(e.cfg.PercentDistance, e.cfg.MinDistancePercent, e.cfg.MaxDistancePercent)
	return &ExitCalculation{
		Method:          ExitPercent,
		Price:           stopPrice(ectx.direction, ectx.entry, distance),
		DistancePercent: distance,
		Reason:          fmt.Sprintf("fixed distance %.2f%%", distance),
	}
}

// structureStop applies the ATR buffer beyond the structure price and
// validates the resulting distance against the band.
func (e *ExitConstructor) structureStop(ectx *exitContext, method ExitMethod, structurePrice float64, reason string) *ExitCalculation {
	bufferPercent := ectx.atrPercent * e.cfg.ATRBufferMultiplier
	if bufferPercent < e.cfg.BufferMinPercent {
		bufferPercent = e.cfg.BufferMinPercent
	}
	if bufferPercent > e.cfg.BufferMaxPercent {
		bufferPercent = e.cfg.BufferMaxPercent
	}
	buffer := structurePrice * bufferPercent / 100

	price := structurePrice - buffer
	if ectx.direction == DirectionShort {
		price = structurePrice + buffer
	}

	distance := math.Abs(ectx.entry-price) / ectx.entry * 100
	if distance < e.cfg.MinDistancePercent || distance > e.cfg.MaxDistancePercent {
		return nil
	}

	return &ExitCalculation{
		Method:          method,
		Price:           price,
		DistancePercent: distance,
		Reason:          reason,
		StructurePrice:  structurePrice,
		Buffer:          buffer,
	}
}

func stopPrice(direction Direction, entry, distancePercent float64) float64 {
	if direction == DirectionShort {
		return entry * (1 + distancePercent/100)
	}
	return entry * (1 - distancePercent/100)
}

func clampDistance(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
