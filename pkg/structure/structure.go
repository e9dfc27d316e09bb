package structure

import "leveltrader/pkg/market"

// Pattern classifies the recent swing sequence
type Pattern string

const (
	PatternBullish Pattern = "HH/HL" // higher highs, higher lows
	PatternBearish Pattern = "LH/LL" // lower highs, lower lows
	PatternRanging Pattern = "ranging"
)

// Analysis summarizes market structure derived from swing pivots.
// LowerHigh and HigherLow report the latest completed swing comparison;
// a lower high argues against longs, a higher low against shorts.
type Analysis struct {
	Pattern   Pattern
	LowerHigh bool
	HigherLow bool
	LastHigh  float64
	LastLow   float64
}

type pivot struct {
	price float64
	high  bool
}

// Analyze classifies market structure from a candle window using fractal
// pivots with a symmetric look-around of depth.
func Analyze(candles []market.Candle, depth int) Analysis {
	a := Analysis{Pattern: PatternRanging}
	if depth < 1 || len(candles) < 2*depth+1 {
		return a
	}

	var pivots []pivot
	for i := depth; i < len(candles)-depth; i++ {
		isHigh, isLow := true, true
		for j := i - depth; j <= i+depth; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			pivots = append(pivots, pivot{price: candles[i].High, high: true})
		} else if isLow {
			pivots = append(pivots, pivot{price: candles[i].Low, high: false})
		}
	}

	// Coalesce consecutive same-kind pivots, keeping the more extreme one
	var clean []pivot
	for _, p := range pivots {
		n := len(clean)
		if n > 0 && clean[n-1].high == p.high {
			if (p.high && p.price > clean[n-1].price) || (!p.high && p.price < clean[n-1].price) {
				clean[n-1] = p
			}
			continue
		}
		clean = append(clean, p)
	}

	var highs, lows []float64
	for _, p := range clean {
		if p.high {
			highs = append(highs, p.price)
		} else {
			lows = append(lows, p.price)
		}
	}

	if len(highs) > 0 {
		a.LastHigh = highs[len(highs)-1]
	}
	if len(lows) > 0 {
		a.LastLow = lows[len(lows)-1]
	}

	higherHigh, lowerHigh := false, false
	if len(highs) >= 2 {
		higherHigh = highs[len(highs)-1] > highs[len(highs)-2]
		lowerHigh = highs[len(highs)-1] < highs[len(highs)-2]
	}
	higherLow, lowerLow := false, false
	if len(lows) >= 2 {
		higherLow = lows[len(lows)-1] > lows[len(lows)-2]
		lowerLow = lows[len(lows)-1] < lows[len(lows)-2]
	}

	a.LowerHigh = lowerHigh
	a.HigherLow = higherLow

	switch {
	case higherHigh && higherLow:
		a.Pattern = PatternBullish
	case lowerHigh && lowerLow:
		a.Pattern = PatternBearish
	default:
		a.Pattern = PatternRanging
	}

	return a
}
