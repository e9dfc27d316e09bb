package structure

import (
	"testing"
	"time"

	"leveltrader/pkg/market"
)

func candleSeries(ohlc [][4]float64) []market.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, len(ohlc))
	for i, v := range ohlc {
		candles[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:      v[0],
			High:      v[1],
			Low:       v[2],
			Close:     v[3],
			Volume:    1000,
		}
	}
	return candles
}

func TestAnalyzeBullishStructure(t *testing.T) {
	// Two peaks with the second higher, two troughs with the second higher
	candles := candleSeries([][4]float64{
		{100, 100.5, 99.5, 100},
		{100, 102.0, 99.8, 101.5}, // swing high 1
		{101, 101.2, 99.0, 99.5},
		{99.5, 99.8, 98.0, 98.5}, // swing low 1
		{98.5, 100.5, 98.3, 100},
		{100, 103.0, 99.9, 102.5}, // swing high 2 (higher)
		{102, 102.2, 100.5, 101},
		{101, 101.2, 99.5, 100}, // swing low 2 (higher)
		{100, 101.8, 99.8, 101.5},
		{101.5, 101.9, 100.8, 101},
	})

	a := Analyze(candles, 1)
	if a.Pattern != PatternBullish {
		t.Errorf("expected pattern %s, got %s", PatternBullish, a.Pattern)
	}
	if a.LowerHigh {
		t.Error("bullish structure must not report a lower high")
	}
	if !a.HigherLow {
		t.Error("bullish structure must report a higher low")
	}
}

func TestAnalyzeShortWindowIsRanging(t *testing.T) {
	candles := candleSeries([][4]float64{{100, 101, 99, 100}})
	a := Analyze(candles, 3)
	if a.Pattern != PatternRanging {
		t.Errorf("expected %s for short window, got %s", PatternRanging, a.Pattern)
	}
}

func TestDetectSweepLow(t *testing.T) {
	// Flat range around 100 with one candle wicking below the prior low
	// and closing back inside
	series := [][4]float64{}
	for i := 0; i < 12; i++ {
		series = append(series, [4]float64{100, 100.5, 99.5, 100})
	}
	series = append(series, [4]float64{100, 100.2, 98.8, 100.1}) // sweep candle

	candles := candleSeries(series)
	sweeps := DetectSweeps(candles, DefaultSweepConfig())

	var found *Sweep
	for i := range sweeps {
		if sweeps[i].Kind == SweepLow {
			found = &sweeps[i]
		}
	}
	if found == nil {
		t.Fatal("expected a low sweep")
	}
	if found.ExtremePrice != 98.8 {
		t.Errorf("expected sweep extreme 98.8, got %.2f", found.ExtremePrice)
	}
	if found.SweptPrice != 99.5 {
		t.Errorf("expected swept prior low 99.5, got %.2f", found.SweptPrice)
	}
}

func TestLatestSweepRespectsMaxAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeps := []Sweep{
		{Kind: SweepLow, ExtremePrice: 98, Timestamp: now.Add(-2 * time.Hour)},
		{Kind: SweepLow, ExtremePrice: 99, Timestamp: now.Add(-10 * time.Minute)},
	}

	got := LatestSweep(sweeps, SweepLow, now, 30*time.Minute)
	if got == nil || got.ExtremePrice != 99 {
		t.Fatalf("expected the recent sweep at 99, got %+v", got)
	}

	if LatestSweep(sweeps, SweepLow, now, 5*time.Minute) != nil {
		t.Error("sweeps older than maxAge must be ignored")
	}
	if LatestSweep(sweeps, SweepHigh, now, time.Hour) != nil {
		t.Error("kind mismatch must yield nil")
	}
}

func TestDetectOrderBlockBullish(t *testing.T) {
	// A bearish candle followed by a 3-candle impulse up
	candles := candleSeries([][4]float64{
		{100, 100.5, 99.5, 100},
		{100, 100.3, 99.4, 99.5}, // bearish: the order block
		{99.5, 101.0, 99.4, 100.8},
		{100.8, 102.0, 100.5, 101.8},
		{101.8, 102.5, 101.5, 102.2},
		{102.2, 102.6, 101.9, 102.3},
	})

	blocks := DetectOrderBlocks(candles, 102.0, DefaultOrderBlockConfig())

	var bullish *OrderBlock
	for i := range blocks {
		if blocks[i].Kind == OrderBlockBullish {
			bullish = &blocks[i]
		}
	}
	if bullish == nil {
		t.Fatal("expected a bullish order block")
	}
	if bullish.Low != 99.4 || bullish.High != 100.3 {
		t.Errorf("expected zone [99.4, 100.3], got [%.2f, %.2f]", bullish.Low, bullish.High)
	}
	if bullish.Mitigated {
		t.Error("price above the zone must leave the block unmitigated")
	}
	if bullish.Strength <= 0 || bullish.Strength > 1 {
		t.Errorf("strength %f outside (0, 1]", bullish.Strength)
	}
}

func TestNearestUnmitigatedPrefersStronger(t *testing.T) {
	blocks := []OrderBlock{
		{Kind: OrderBlockBullish, Low: 99.5, High: 100.0, Strength: 0.4},
		{Kind: OrderBlockBullish, Low: 99.0, High: 99.4, Strength: 0.9},
		{Kind: OrderBlockBullish, Low: 95.0, High: 95.5, Strength: 1.0}, // too far
		{Kind: OrderBlockBullish, Low: 99.8, High: 100.2, Strength: 1.0, Mitigated: true},
	}

	got := NearestUnmitigated(blocks, OrderBlockBullish, 100.0, 2.0)
	if got == nil {
		t.Fatal("expected a block")
	}
	if got.Strength != 0.9 {
		t.Errorf("expected the strongest admissible block (0.9), got %.2f", got.Strength)
	}
}
