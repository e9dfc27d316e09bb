package decision

import (
	"testing"

	"github.com/rs/zerolog"
)

func testScorer(cfg ConfidenceConfig) *ConfidenceScorer {
	analyzer := NewLevelAnalyzer(testLevelConfig(), zerolog.Nop())
	return NewConfidenceScorer(cfg, PatternConfig{}, 3, analyzer, zerolog.Nop())
}

func TestConfidenceNeverBelowFloor(t *testing.T) {
	cfg := DefaultConfig().Confidence
	cfg.Mode = ConfidenceLegacy
	cfg.Base = 0.0
	s := testScorer(cfg)

	level := supportAt(99.5, 1, 0.0)
	cand := &Candidate{Direction: DirectionLong, Level: &level, Distance: 2.0}

	got := s.Score(MarketData{}, cand, TrendContext{Trend: TrendDown}, 0)
	if got < confidenceFloor {
		t.Errorf("confidence %f below floor %f", got, confidenceFloor)
	}
}

func TestConfidenceNeverAboveCeiling(t *testing.T) {
	cfg := DefaultConfig().Confidence
	cfg.Mode = ConfidenceLegacy
	cfg.Base = 0.9
	cfg.StrengthBoost = 0.5
	cfg.TrendAlignmentBoost = 0.5
	s := testScorer(cfg)

	level := supportAt(99.9, 8, 1.0)
	cand := &Candidate{Direction: DirectionLong, Level: &level, Distance: 0.1}

	got := s.Score(MarketData{}, cand, TrendContext{Trend: TrendUp, GapPercent: 2.0}, 10)
	if got > confidenceCeil {
		t.Errorf("confidence %f above ceiling %f", got, confidenceCeil)
	}
}

func TestLegacyScoreRewardsStrengthAndAlignment(t *testing.T) {
	cfg := DefaultConfig().Confidence
	cfg.Mode = ConfidenceLegacy
	s := testScorer(cfg)

	weak := supportAt(99.5, 1, 0.1)
	strong := supportAt(99.5, 5, 0.9)
	dist := 1.0 // outside both the close-boost and far-penalty bands

	weakScore := s.Score(MarketData{},
		&Candidate{Direction: DirectionLong, Level: &weak, Distance: dist},
		TrendContext{Trend: TrendNeutral}, 4)
	strongScore := s.Score(MarketData{},
		&Candidate{Direction: DirectionLong, Level: &strong, Distance: dist},
		TrendContext{Trend: TrendUp, GapPercent: 1.0}, 4)

	if strongScore <= weakScore {
		t.Errorf("strong aligned candidate (%f) must outscore weak unaligned one (%f)",
			strongScore, weakScore)
	}
}

func TestWeightedScoreIgnoresMissingFactors(t *testing.T) {
	cfg := DefaultConfig().Confidence
	cfg.Mode = ConfidenceWeighted
	s := testScorer(cfg)

	level := supportAt(99.5, 3, 0.8)
	cand := &Candidate{Direction: DirectionLong, Level: &level, Distance: 0.5}

	// No optional indicators supplied: score must still be in range,
	// normalized over the available factors only.
	md := MarketData{Indicators: IndicatorSet{RSI: 45, EMAFast: 101, EMASlow: 100, ATRPercent: 1.5}}
	got := s.Score(md, cand, TrendContext{Trend: TrendUp, GapPercent: 1.0}, 6)

	if got < confidenceFloor || got > confidenceCeil {
		t.Errorf("weighted score %f outside [%f, %f]", got, confidenceFloor, confidenceCeil)
	}
}

func TestDeriveTrendNeutralBand(t *testing.T) {
	cases := []struct {
		fast, slow float64
		want       Trend
	}{
		{101.0, 100.0, TrendUp},
		{99.0, 100.0, TrendDown},
		{100.2, 100.0, TrendNeutral},
		{0, 0, TrendNeutral},
	}

	for _, tc := range cases {
		got := DeriveTrend(IndicatorSet{EMAFast: tc.fast, EMASlow: tc.slow}, 0.5)
		if got.Trend != tc.want {
			t.Errorf("fast %.1f slow %.1f: expected %s, got %s", tc.fast, tc.slow, tc.want, got.Trend)
		}
	}
}
