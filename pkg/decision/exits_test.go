package decision

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testExits(cfg ExitConfig) *ExitConstructor {
	return NewExitConstructor(cfg, zerolog.Nop())
}

func atrOnlyContext(direction Direction, entry, atrPercent float64) *exitContext {
	return &exitContext{
		direction:  direction,
		entry:      entry,
		atrPercent: atrPercent,
		now:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		candleStep: 5 * time.Minute,
	}
}

func TestATRStopClampedToMinimumDistance(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.MethodOrder = []ExitMethod{ExitATR}
	cfg.MinDistancePercent = 1.0
	cfg.MaxDistancePercent = 3.0
	cfg.ATRBufferMultiplier = 0.5
	cfg.ATRFixedMultiplier = 1.0
	e := testExits(cfg)

	// ATR 1.2% * 0.5 = 0.6%, below the 1% floor: the stop lands at the
	// floor, 99.0 for a long entered at 100.
	calc := e.StopLoss(atrOnlyContext(DirectionLong, 100.0, 1.2))

	if calc.Method != ExitATR {
		t.Fatalf("expected method %s, got %s", ExitATR, calc.Method)
	}
	if math.Abs(calc.Price-99.0) > 1e-9 {
		t.Errorf("expected stop 99.0, got %.4f", calc.Price)
	}
	if math.Abs(calc.DistancePercent-1.0) > 1e-9 {
		t.Errorf("expected distance 1.0%%, got %.4f", calc.DistancePercent)
	}
	if calc.Emergency {
		t.Error("clamped ATR stop is not an emergency fallback")
	}
}

func TestATRStopClampedToMaximumDistance(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.MethodOrder = []ExitMethod{ExitATR}
	e := testExits(cfg)

	calc := e.StopLoss(atrOnlyContext(DirectionLong, 100.0, 20.0))
	if calc.DistancePercent != cfg.MaxDistancePercent {
		t.Errorf("expected distance capped at %.1f%%, got %.4f",
			cfg.MaxDistancePercent, calc.DistancePercent)
	}
}

func TestSwingStopWithinBand(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.MethodOrder = []ExitMethod{ExitSwing, ExitATR}
	e := testExits(cfg)

	ectx := atrOnlyContext(DirectionLong, 100.0, 1.0)
	ectx.lows = []SwingPoint{{Price: 99.0, Kind: SwingLow, Timestamp: ectx.now.Add(-time.Hour)}}

	calc := e.StopLoss(ectx)
	if calc.Method != ExitSwing {
		t.Fatalf("expected method %s, got %s (%s)", ExitSwing, calc.Method, calc.Reason)
	}
	if calc.Price >= 99.0 {
		t.Errorf("long stop must sit below the swing low, got %.4f", calc.Price)
	}
	if calc.StructurePrice != 99.0 {
		t.Errorf("expected structure price 99.0, got %.4f", calc.StructurePrice)
	}
	if calc.DistancePercent < cfg.MinDistancePercent || calc.DistancePercent > cfg.MaxDistancePercent {
		t.Errorf("distance %.4f%% outside band [%.1f, %.1f]",
			calc.DistancePercent, cfg.MinDistancePercent, cfg.MaxDistancePercent)
	}
}

func TestStructureStopOutsideBandFallsThrough(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.MethodOrder = []ExitMethod{ExitSwing, ExitATR}
	e := testExits(cfg)

	// Swing low 10% away is outside the band; the chain must advance to ATR
	ectx := atrOnlyContext(DirectionLong, 100.0, 1.0)
	ectx.lows = []SwingPoint{{Price: 90.0, Kind: SwingLow, Timestamp: ectx.now.Add(-time.Hour)}}

	calc := e.StopLoss(ectx)
	if calc.Method != ExitATR {
		t.Errorf("expected fallthrough to %s, got %s", ExitATR, calc.Method)
	}
}

func TestEmergencyFallbackIsFlagged(t *testing.T) {
	cfg := DefaultConfig().Exit
	// Only structure methods configured and no structure available
	cfg.MethodOrder = []ExitMethod{ExitSweep, ExitSwing}
	cfg.EmergencyPercent = 1.5
	e := testExits(cfg)

	calc := e.StopLoss(atrOnlyContext(DirectionLong, 100.0, 1.0))
	if !calc.Emergency {
		t.Fatal("exhausted chain must flag the emergency fallback")
	}
	if math.Abs(calc.Price-98.5) > 1e-9 {
		t.Errorf("expected emergency stop 98.5, got %.4f", calc.Price)
	}
}

func TestShortStopSitsAboveEntry(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.MethodOrder = []ExitMethod{ExitATR}
	e := testExits(cfg)

	calc := e.StopLoss(atrOnlyContext(DirectionShort, 100.0, 2.0))
	if calc.Price <= 100.0 {
		t.Errorf("short stop must sit above entry, got %.4f", calc.Price)
	}
}

func TestTakeProfitLadderSizesAndOrder(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.FlatMarketCollapse = false
	e := testExits(cfg)

	ectx := atrOnlyContext(DirectionLong, 100.0, 1.5)
	stop := ExitCalculation{Method: ExitATR, Price: 99.0, DistancePercent: 1.0}

	targets := e.TakeProfits(ectx, stop, 1.0)
	if len(targets) != 3 {
		t.Fatalf("expected 3 ladder rungs, got %d", len(targets))
	}

	totalSize := 0.0
	prev := 100.0
	for i, tp := range targets {
		totalSize += tp.SizePercent
		if tp.Level != i+1 {
			t.Errorf("rung %d has level %d", i, tp.Level)
		}
		if tp.Price <= prev {
			t.Errorf("long targets must ascend, rung %d at %.4f after %.4f", i, tp.Price, prev)
		}
		prev = tp.Price
	}
	if math.Abs(totalSize-100.0) > 1e-9 {
		t.Errorf("ladder sizes must sum to 100%%, got %.2f", totalSize)
	}
}

func TestFlatMarketCollapsesLadder(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.FlatMarketCollapse = true
	cfg.FlatEMAGapPercent = 0.15
	e := testExits(cfg)

	ectx := atrOnlyContext(DirectionLong, 100.0, 1.5)
	stop := ExitCalculation{Method: ExitATR, Price: 99.0, DistancePercent: 1.0}

	targets := e.TakeProfits(ectx, stop, 0.05)
	if len(targets) != 1 {
		t.Fatalf("flat market must collapse to a single target, got %d", len(targets))
	}
	if targets[0].SizePercent != 100 {
		t.Errorf("collapsed target must close the whole position, got %.1f%%", targets[0].SizePercent)
	}
}

func TestRRTargetMode(t *testing.T) {
	cfg := DefaultConfig().Exit
	cfg.UseRRTarget = true
	cfg.RRTargetRatio = 2.0
	e := testExits(cfg)

	ectx := atrOnlyContext(DirectionLong, 100.0, 1.5)
	stop := ExitCalculation{Method: ExitATR, Price: 99.0, DistancePercent: 1.0}

	targets := e.TakeProfits(ectx, stop, 1.0)
	if len(targets) != 1 {
		t.Fatalf("R:R mode emits one target, got %d", len(targets))
	}
	if math.Abs(targets[0].Price-102.0) > 1e-9 {
		t.Errorf("2R target from 1%% risk must sit at 102.0, got %.4f", targets[0].Price)
	}
}

func TestRiskRewardGate(t *testing.T) {
	stop := ExitCalculation{Price: 99.0}
	targets := []TakeProfit{{Price: 101.0}}

	rr := RiskReward(100.0, stop, targets)
	if math.Abs(rr-1.0) > 1e-9 {
		t.Errorf("expected R:R 1.0, got %.4f", rr)
	}

	if RiskReward(100.0, ExitCalculation{Price: 100.0}, targets) != 0 {
		t.Error("degenerate zero-risk stop must yield R:R 0")
	}
}
