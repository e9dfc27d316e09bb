package decision

import (
	"testing"
	"time"

	"leveltrader/pkg/market"
)

func candlesFromCloses(closes []float64) []market.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
		}
	}
	return candles
}

func TestExtractSwingsFindsLocalExtrema(t *testing.T) {
	// Rising into a peak at index 3, falling into a trough at index 6
	closes := []float64{100, 101, 102, 105, 103, 101, 98, 100, 101, 102}
	candles := candlesFromCloses(closes)

	highs, lows := ExtractSwings(candles, 2)

	if len(highs) != 1 {
		t.Fatalf("expected 1 swing high, got %d", len(highs))
	}
	if highs[0].Price != 105.5 {
		t.Errorf("expected swing high at 105.5, got %.2f", highs[0].Price)
	}
	if highs[0].Kind != SwingHigh {
		t.Errorf("expected kind %s, got %s", SwingHigh, highs[0].Kind)
	}

	if len(lows) != 1 {
		t.Fatalf("expected 1 swing low, got %d", len(lows))
	}
	if lows[0].Price != 97.5 {
		t.Errorf("expected swing low at 97.5, got %.2f", lows[0].Price)
	}
}

func TestExtractSwingsShortWindow(t *testing.T) {
	candles := candlesFromCloses([]float64{100, 101, 102})

	highs, lows := ExtractSwings(candles, 2)
	if highs != nil || lows != nil {
		t.Errorf("expected nil slices for window shorter than 2*depth+1, got %d/%d", len(highs), len(lows))
	}
}

func TestExtractSwingsFlatPlateauIsNotASwing(t *testing.T) {
	// Equal highs on the plateau: ties disqualify both candidates
	closes := []float64{100, 102, 102, 102, 100, 99, 100, 101}
	candles := candlesFromCloses(closes)

	highs, _ := ExtractSwings(candles, 1)
	for _, h := range highs {
		if h.Price == 102.5 {
			t.Errorf("plateau candle must not qualify as a swing high")
		}
	}
}
