package decision

import (
	"testing"

	"github.com/rs/zerolog"
)

func testSelector() *LevelSelector {
	return NewLevelSelector(DefaultConfig().Selector, zerolog.Nop())
}

func supportAt(price float64, touches int, strength float64) Level {
	return Level{Price: price, Kind: LevelSupport, Touches: touches, Strength: strength}
}

func resistanceAt(price float64, touches int, strength float64) Level {
	return Level{Price: price, Kind: LevelResistance, Touches: touches, Strength: strength}
}

func TestSelectSupportBelowPriceInUptrend(t *testing.T) {
	s := testSelector()
	levels := Levels{Support: []Level{supportAt(99.5, 3, 0.8)}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 1.0}

	cand, code, _ := s.Select(levels, 100.0, tc, IndicatorSet{ATRPercent: 1.0})
	if cand == nil {
		t.Fatalf("expected a candidate, got rejection %s", code)
	}
	if cand.Direction != DirectionLong {
		t.Errorf("expected LONG, got %s", cand.Direction)
	}
	if cand.Level.Price != 99.5 {
		t.Errorf("expected level 99.5, got %.2f", cand.Level.Price)
	}
}

func TestSelectNeverPicksSupportAbovePrice(t *testing.T) {
	s := testSelector()

	// Price has already broken below the level: a bounce entry off it
	// makes no sense, whatever the trend says.
	levels := Levels{Support: []Level{supportAt(95.0, 5, 1.0)}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 1.0}

	cand, code, _ := s.Select(levels, 92.0, tc, IndicatorSet{ATRPercent: 1.0})
	if cand != nil {
		t.Fatalf("support above price must never be selected, got %s at %.2f",
			cand.Direction, cand.Level.Price)
	}
	if code != CodeNoLevelsWithinDistance {
		t.Errorf("expected code %s, got %s", CodeNoLevelsWithinDistance, code)
	}
}

func TestSelectShortBlockedInUptrendFallsBackToSupport(t *testing.T) {
	cfg := DefaultConfig().Selector
	cfg.BlockShortInUptrend = true
	s := NewLevelSelector(cfg, zerolog.Nop())

	// Trend label is NEUTRAL (gap inside the band) but the fast EMA sits
	// above the slow one. Resistance is closer than support; the blocked
	// short must resolve to the support side instead.
	levels := Levels{
		Support:    []Level{supportAt(99.2, 3, 0.8)},
		Resistance: []Level{resistanceAt(100.3, 3, 0.8)},
	}
	tc := TrendContext{Trend: TrendNeutral, GapPercent: 0.2}
	ind := IndicatorSet{ATRPercent: 1.0, EMAFast: 100.2, EMASlow: 100.0}

	cand, _, _ := s.Select(levels, 100.0, tc, ind)
	if cand == nil {
		t.Fatal("expected a candidate")
	}
	if cand.Direction != DirectionLong {
		t.Errorf("blocked short must fall back to LONG, got %s", cand.Direction)
	}
	if cand.Level.Price != 99.2 {
		t.Errorf("fallback must pick the support at 99.2, got %.2f", cand.Level.Price)
	}
}

func TestSelectCloserResistanceWinsWithoutShortBlock(t *testing.T) {
	cfg := DefaultConfig().Selector
	cfg.BlockShortInUptrend = false
	s := NewLevelSelector(cfg, zerolog.Nop())

	levels := Levels{
		Support:    []Level{supportAt(99.2, 3, 0.8)},
		Resistance: []Level{resistanceAt(100.3, 3, 0.8)},
	}
	tc := TrendContext{Trend: TrendNeutral, GapPercent: 0.2}
	ind := IndicatorSet{ATRPercent: 1.0, EMAFast: 100.2, EMASlow: 100.0}

	cand, _, _ := s.Select(levels, 100.0, tc, ind)
	if cand == nil {
		t.Fatal("expected a candidate")
	}
	if cand.Direction != DirectionShort {
		t.Errorf("with the block disabled the closer resistance wins, got %s", cand.Direction)
	}
}

func TestSelectMinTouchesEnforced(t *testing.T) {
	cfg := DefaultConfig().Selector
	cfg.MinTouchesLong = 3
	s := NewLevelSelector(cfg, zerolog.Nop())

	levels := Levels{Support: []Level{supportAt(99.5, 2, 0.9)}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 1.0}

	cand, _, _ := s.Select(levels, 100.0, tc, IndicatorSet{ATRPercent: 1.0})
	if cand != nil {
		t.Errorf("level with too few touches must not be selected")
	}
}

func TestSelectDistanceWidensWithATR(t *testing.T) {
	cfg := DefaultConfig().Selector
	cfg.MaxDistancePercent = 1.0
	cfg.TrendDistanceMultiplier = 1.0
	cfg.ATRDistanceMultiplier = 1.5
	s := NewLevelSelector(cfg, zerolog.Nop())

	// Support 2% away: outside the static band, inside the ATR-widened one
	levels := Levels{Support: []Level{supportAt(98.0, 3, 0.8)}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 1.0}

	cand, _, _ := s.Select(levels, 100.0, tc, IndicatorSet{ATRPercent: 0.5})
	if cand != nil {
		t.Fatalf("level outside effective distance must not be selected")
	}

	cand, _, _ = s.Select(levels, 100.0, tc, IndicatorSet{ATRPercent: 2.0})
	if cand == nil {
		t.Fatal("high ATR must widen the admissible distance")
	}
}

func TestSelectBreakoutFallback(t *testing.T) {
	cfg := DefaultConfig().Selector
	cfg.Breakout.Enabled = true
	s := NewLevelSelector(cfg, zerolog.Nop())

	tc := TrendContext{Trend: TrendUp, GapPercent: 1.5}
	ind := IndicatorSet{ATRPercent: 1.0, RSI: 55}

	cand, _, _ := s.Select(Levels{}, 100.0, tc, ind)
	if cand == nil {
		t.Fatal("expected breakout fallback candidate")
	}
	if !cand.Breakout || cand.Direction != DirectionLong {
		t.Errorf("expected LONG breakout candidate, got %+v", cand)
	}
	if cand.Level != nil {
		t.Errorf("breakout candidate must carry no level")
	}
}
