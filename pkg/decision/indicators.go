package decision

import (
	"leveltrader/pkg/market"
)

// IndicatorPeriods are the lookback periods used to derive the indicator
// scalars from a candle window.
type IndicatorPeriods struct {
	EMAFast int
	EMASlow int
	RSI     int
	ATR     int
}

// DefaultIndicatorPeriods returns the standard period set
func DefaultIndicatorPeriods() IndicatorPeriods {
	return IndicatorPeriods{
		EMAFast: 9,
		EMASlow: 21,
		RSI:     14,
		ATR:     14,
	}
}

// ComputeIndicators derives the indicator scalars from the candle window.
// Callers with their own indicator source can populate IndicatorSet
// directly instead.
func ComputeIndicators(candles []market.Candle, periods IndicatorPeriods) IndicatorSet {
	closes := market.Closes(candles)
	return IndicatorSet{
		RSI:        market.CalculateRSI(closes, periods.RSI),
		EMAFast:    market.LastEMA(closes, periods.EMAFast),
		EMASlow:    market.LastEMA(closes, periods.EMASlow),
		ATRPercent: market.ATRPercent(candles, periods.ATR),
	}
}
