package market

import (
	"fmt"
	"time"
)

// Candle represents OHLCV data for a single time period
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Bullish reports whether the candle closed above its open
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Bearish reports whether the candle closed below its open
func (c Candle) Bearish() bool {
	return c.Close < c.Open
}

// Range returns the high-low span of the candle
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body returns the absolute open-close span of the candle
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// UpperWick returns the distance from the body top to the high
func (c Candle) UpperWick() float64 {
	top := c.Close
	if c.Open > top {
		top = c.Open
	}
	return c.High - top
}

// LowerWick returns the distance from the low to the body bottom
func (c Candle) LowerWick() float64 {
	bottom := c.Close
	if c.Open < bottom {
		bottom = c.Open
	}
	return bottom - c.Low
}

// ValidateWindow checks the caller contract for a candle window:
// non-empty and strictly ascending timestamps.
func ValidateWindow(candles []Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("candle window is empty")
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return fmt.Errorf("candle timestamps not ascending at index %d (%s >= %s)",
				i, candles[i-1].Timestamp.Format(time.RFC3339), candles[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes extracts the close series from a candle window
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series from a candle window
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series from a candle window
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}
