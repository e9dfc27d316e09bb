package market

// Indicator helpers used to fill IndicatorSet for the CLIs and tests.
// The decision core consumes the resulting scalars; it never computes
// indicators itself.

// CalculateEMA computes the Exponential Moving Average series.
func CalculateEMA(data []float64, period int) []float64 {
	ema := make([]float64, len(data))
	if len(data) < period || period <= 0 {
		return ema
	}

	k := 2.0 / (float64(period) + 1.0)

	// Simple MA seeds the first EMA
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(data); i++ {
		ema[i] = (data[i] * k) + (ema[i-1] * (1 - k))
	}

	return ema
}

// LastEMA returns the final EMA value for the series, or 0 when the
// series is shorter than the period.
func LastEMA(data []float64, period int) float64 {
	ema := CalculateEMA(data, period)
	if len(ema) == 0 {
		return 0
	}
	return ema[len(ema)-1]
}

// CalculateRSI computes the Relative Strength Index using Wilder smoothing.
// Returns 50 (neutral) when there is not enough data.
func CalculateRSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// CalculateATR computes the Average True Range over the window.
func CalculateATR(candles []Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}

	trSum := 0.0
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		tr := candles[i].High - candles[i].Low
		prevClose := candles[i-1].Close
		if hc := abs(candles[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := abs(candles[i].Low - prevClose); lc > tr {
			tr = lc
		}
		trSum += tr
	}
	return trSum / float64(period)
}

// ATRPercent computes ATR expressed as a percentage of the latest close.
func ATRPercent(candles []Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return 0
	}
	return CalculateATR(candles, period) / last * 100
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
