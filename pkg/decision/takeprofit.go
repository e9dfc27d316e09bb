package decision

import (
	"math"

	"leveltrader/pkg/structure"
)

// TakeProfits builds the profit-taking ladder for the trade. Rung
// distances come from configuration, optionally scaled by volatility and
// session liquidity, then capped against opposing structure. A flat
// market collapses the ladder into a single conservative target.
func (e *ExitConstructor) TakeProfits(ectx *exitContext, stop ExitCalculation, gapPercent float64) []TakeProfit {
	if e.cfg.UseRRTarget {
		return e.rrLadder(ectx, stop)
	}

	scale := e.targetScale(ectx.atrPercent)

	if e.cfg.FlatMarketCollapse && math.Abs(gapPercent) < e.cfg.FlatEMAGapPercent {
		if len(e.cfg.TakeProfits) == 0 {
			return nil
		}
		first := e.cfg.TakeProfits[0]
		distance := first.Percent * scale
		e.logger.Debug().
			Float64("ema_gap", gapPercent).
			Float64("distance_pct", distance).
			Msg("Flat market, collapsing take-profit ladder")
		return []TakeProfit{{
			Level:       1,
			Price:       e.capTarget(ectx, targetPrice(ectx.direction, ectx.entry, distance)),
			SizePercent: 100,
			Percent:     distance,
		}}
	}

	ladder := make([]TakeProfit, 0, len(e.cfg.TakeProfits))
	for i, rung := range e.cfg.TakeProfits {
		distance := rung.Percent * scale
		ladder = append(ladder, TakeProfit{
			Level:       i + 1,
			Price:       e.capTarget(ectx, targetPrice(ectx.direction, ectx.entry, distance)),
			SizePercent: rung.SizePercent,
			Percent:     distance,
		})
	}
	return ladder
}

// rrLadder emits a single full-size target at a fixed multiple of the
// stop-loss distance.
func (e *ExitConstructor) rrLadder(ectx *exitContext, stop ExitCalculation) []TakeProfit {
	distance := stop.DistancePercent * e.cfg.RRTargetRatio
	return []TakeProfit{{
		Level:       1,
		Price:       targetPrice(ectx.direction, ectx.entry, distance),
		SizePercent: 100,
		Percent:     distance,
	}}
}

// targetScale combines ATR scaling and the session liquidity factor
func (e *ExitConstructor) targetScale(atrPercent float64) float64 {
	scale := 1.0
	if e.cfg.ATRScaleTargets && e.cfg.ReferenceATR > 0 && atrPercent > 0 {
		scale = atrPercent / e.cfg.ReferenceATR
	}
	if e.cfg.SessionFactor > 0 {
		scale *= e.cfg.SessionFactor
	}
	return scale
}

// capTarget pulls a target back to the first opposing structure between
// entry and the target: an unmitigated order block, or a resting order
// book wall when wall capping is enabled. Uncapped targets pass through
// unchanged.
func (e *ExitConstructor) capTarget(ectx *exitContext, target float64) float64 {
	capped := target

	obKind := structure.OrderBlockBearish
	if ectx.direction == DirectionShort {
		obKind = structure.OrderBlockBullish
	}
	for i := range ectx.blocks {
		ob := &ectx.blocks[i]
		if ob.Kind != obKind || ob.Mitigated {
			continue
		}
		if ectx.direction == DirectionLong && ob.Low > ectx.entry && ob.Low < capped {
			capped = ob.Low
		}
		if ectx.direction == DirectionShort && ob.High < ectx.entry && ob.High > capped {
			capped = ob.High
		}
	}

	if e.cfg.WallCapMinSize > 0 && ectx.book != nil {
		if ectx.direction == DirectionLong {
			if wall := ectx.book.NearestWallAbove(ectx.entry, e.cfg.WallCapMinSize); wall != nil && wall.Price < capped {
				capped = wall.Price
			}
		} else {
			if wall := ectx.book.NearestWallBelow(ectx.entry, e.cfg.WallCapMinSize); wall != nil && wall.Price > capped {
				capped = wall.Price
			}
		}
	}

	return capped
}

// RiskReward computes best-target reward over stop risk. Zero when
// either side is degenerate.
func RiskReward(entry float64, stop ExitCalculation, targets []TakeProfit) float64 {
	risk := math.Abs(entry - stop.Price)
	if risk <= 0 || len(targets) == 0 {
		return 0
	}
	best := 0.0
	for _, tp := range targets {
		reward := math.Abs(tp.Price - entry)
		if reward > best {
			best = reward
		}
	}
	return best / risk
}

func targetPrice(direction Direction, entry, distancePercent float64) float64 {
	if direction == DirectionShort {
		return entry * (1 - distancePercent/100)
	}
	return entry * (1 + distancePercent/100)
}
