package decision

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testPipeline() *FilterPipeline {
	cfg := DefaultConfig().Filters
	cfg.Pattern.Enabled = false
	cfg.HigherTF.Enabled = false
	return NewFilterPipeline(cfg, zerolog.Nop())
}

func longCandidate() *Candidate {
	level := supportAt(99.5, 3, 0.8)
	return &Candidate{Direction: DirectionLong, Level: &level, Distance: 0.5}
}

func TestRSIAboveLongMaxIsRejectedWithBothValues(t *testing.T) {
	p := testPipeline()

	md := MarketData{Indicators: IndicatorSet{RSI: 75, EMAFast: 100.5, EMASlow: 100}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 0.5}

	result := p.Run(md, longCandidate(), tc)
	if result.Passed {
		t.Fatal("RSI 75 must fail the long band with max 70")
	}
	if result.BlockedBy != CodeRSIOutOfRange {
		t.Errorf("expected code %s, got %s", CodeRSIOutOfRange, result.BlockedBy)
	}
	if !strings.Contains(result.Reason, "75.0") || !strings.Contains(result.Reason, "70.0") {
		t.Errorf("reason must name observed and threshold values, got %q", result.Reason)
	}
}

func TestFlatMarketRejectedWithoutStrongLevel(t *testing.T) {
	p := testPipeline()

	level := supportAt(99.5, 2, 0.5)
	weak := &Candidate{Direction: DirectionLong, Level: &level, Distance: 0.5}

	md := MarketData{Indicators: IndicatorSet{RSI: 50, EMAFast: 100.01, EMASlow: 100}}
	tc := TrendContext{Trend: TrendNeutral, GapPercent: 0.01}

	result := p.Run(md, weak, tc)
	if result.Passed {
		t.Fatal("flat market must be rejected")
	}
	if result.BlockedBy != CodeNoTrend {
		t.Errorf("expected code %s, got %s", CodeNoTrend, result.BlockedBy)
	}
}

func TestFlatMarketBypassedByStrongLevel(t *testing.T) {
	p := testPipeline()

	level := supportAt(99.5, 5, 0.9)
	cand := &Candidate{Direction: DirectionLong, Level: &level, Distance: 0.5}

	md := MarketData{Indicators: IndicatorSet{RSI: 50, EMAFast: 100.01, EMASlow: 100}}
	tc := TrendContext{Trend: TrendNeutral, GapPercent: 0.01}

	result := p.Run(md, cand, tc)
	if !result.Passed {
		t.Fatalf("strength 0.9 must bypass the flat-market veto, blocked by %s: %s",
			result.BlockedBy, result.Reason)
	}
}

func TestStrongTrendBypassesRSIBand(t *testing.T) {
	p := testPipeline()

	// RSI 75 would fail the band, but the 2% EMA gap bypasses it. The
	// later structure stages must still pass for the run to succeed.
	md := MarketData{Indicators: IndicatorSet{RSI: 75, EMAFast: 102, EMASlow: 100}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 2.0}

	result := p.Run(md, longCandidate(), tc)
	if !result.Passed {
		t.Fatalf("strong trend must bypass the RSI band, blocked by %s: %s",
			result.BlockedBy, result.Reason)
	}
}

func TestEveryEvaluatedStageIsRecorded(t *testing.T) {
	p := testPipeline()

	md := MarketData{Indicators: IndicatorSet{RSI: 75, EMAFast: 100.5, EMASlow: 100}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 0.5}

	result := p.Run(md, longCandidate(), tc)

	// trend_existence, directional_trend pass; rsi_bounds fails and stops
	if len(result.Checks) != 3 {
		t.Fatalf("expected 3 recorded checks, got %d", len(result.Checks))
	}
	last := result.Checks[len(result.Checks)-1]
	if last.Name != "rsi_bounds" || last.Passed {
		t.Errorf("last check must be the failing rsi_bounds stage, got %+v", last)
	}
	for _, check := range result.Checks[:2] {
		if !check.Passed {
			t.Errorf("stage %s before the failure must be recorded as passed", check.Name)
		}
	}
}

func TestStructureSignatureVetoIsLongOnly(t *testing.T) {
	cfg := DefaultConfig().Filters
	cfg.Pattern.Enabled = false
	cfg.HigherTF.Enabled = false
	// Loosen the directional gate so the run actually reaches the
	// structure stage with a hot RSI and a wide positive gap.
	cfg.UptrendStrongRSI = 80
	cfg.LargeEMAGapPercent = 10
	p := NewFilterPipeline(cfg, zerolog.Nop())

	level := resistanceAt(100.5, 3, 0.8)
	short := &Candidate{Direction: DirectionShort, Level: &level, Distance: 0.5}

	// RSI 70 with a +2% gap: the mirrored short-side signature does not
	// exist, so only the structure label could veto, and none is set.
	md := MarketData{Indicators: IndicatorSet{RSI: 70, EMAFast: 102, EMASlow: 100}}
	tc := TrendContext{Trend: TrendUp, GapPercent: 2.0}

	result := p.Run(md, short, tc)
	if !result.Passed {
		t.Fatalf("short must not be vetoed by an uptrend signature, blocked by %s: %s",
			result.BlockedBy, result.Reason)
	}
}

func TestLongRejectedInConfirmedDowntrend(t *testing.T) {
	p := testPipeline()

	// Fast EMA below slow with weak RSI: confirmed downtrend, no longs
	md := MarketData{Indicators: IndicatorSet{RSI: 40, EMAFast: 99, EMASlow: 100}}
	tc := TrendContext{Trend: TrendDown, GapPercent: -1.0}

	result := p.Run(md, longCandidate(), tc)
	if result.Passed {
		t.Fatal("long in a confirmed downtrend must be rejected")
	}
	if result.BlockedBy != CodeTrendFilter {
		t.Errorf("expected code %s, got %s", CodeTrendFilter, result.BlockedBy)
	}
}
