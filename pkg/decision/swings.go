package decision

import "leveltrader/pkg/market"

// ExtractSwings scans the candle window for local extrema using a
// symmetric half-window of depth candles on each side. Candles within
// depth of either boundary are skipped; a window shorter than 2*depth+1
// yields empty slices, which is a valid insufficient-data result.
func ExtractSwings(candles []market.Candle, depth int) (highs, lows []SwingPoint) {
	if depth < 1 || len(candles) < 2*depth+1 {
		return nil, nil
	}

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
			highs = append(highs, SwingPoint{
				Price:     candles[i].High,
				Timestamp: candles[i].Timestamp,
				Kind:      SwingHigh,
			})
		}
		if isLow {
			lows = append(lows, SwingPoint{
				Price:     candles[i].Low,
				Timestamp: candles[i].Timestamp,
				Kind:      SwingLow,
			})
		}
	}

	return highs, lows
}
