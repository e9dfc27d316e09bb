package decision

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"leveltrader/pkg/market"
)

// FilterPipeline is a short-circuiting ordered sequence of independent
// veto rules. Every evaluated stage is recorded, pass or fail; the first
// failing stage aborts the evaluation with its reason.
type FilterPipeline struct {
	cfg    FilterConfig
	logger zerolog.Logger
}

// NewFilterPipeline creates the pipeline with the given configuration
func NewFilterPipeline(cfg FilterConfig, logger zerolog.Logger) *FilterPipeline {
	return &FilterPipeline{cfg: cfg, logger: logger}
}

type filterContext struct {
	md        MarketData
	candidate *Candidate
	trend     TrendContext
}

type filterStage struct {
	name string
	code RejectionCode
	fn   func(*filterContext) (bool, string)
}

// Run evaluates the pipeline for the candidate
func (p *FilterPipeline) Run(md MarketData, candidate *Candidate, tc TrendContext) FilterResult {
	fctx := &filterContext{md: md, candidate: candidate, trend: tc}

	stages := []filterStage{
		{"trend_existence", CodeNoTrend, p.trendExistence},
		{"directional_trend", CodeTrendFilter, p.directionalTrend},
		{"rsi_bounds", CodeRSIOutOfRange, p.rsiBounds},
		{"structure", CodeStructureFilter, p.structureFilter},
		{"trend_alignment", CodeTrendAlignment, p.trendAlignment},
		{"entry_confirmation", CodeEntryConfirmation, p.entryConfirmation},
		{"higher_timeframe", CodeHigherTimeframe, p.higherTimeframe},
	}

	result := FilterResult{Passed: true}
	for _, stage := range stages {
		passed, reason := stage.fn(fctx)
		result.Checks = append(result.Checks, FilterCheck{
			Name:   stage.name,
			Passed: passed,
			Reason: reason,
		})
		if !passed {
			result.Passed = false
			result.BlockedBy = stage.code
			result.Reason = reason
			p.logger.Debug().
				Str("stage", stage.name).
				Str("reason", reason).
				Msg("Candidate vetoed")
			return result
		}
	}

	return result
}

// trendExistence rejects flat markets, unless the candidate level is
// strong enough to trade without a trend.
func (p *FilterPipeline) trendExistence(fctx *filterContext) (bool, string) {
	gap := math.Abs(fctx.trend.GapPercent)
	if gap >= p.cfg.MinEMAGapPercent {
		return true, ""
	}
	if fctx.candidate.Level != nil && fctx.candidate.Level.Strength >= p.cfg.StrengthBypass {
		return true, fmt.Sprintf("flat market bypassed by level strength %.2f", fctx.candidate.Level.Strength)
	}
	return false, fmt.Sprintf("EMA gap %.3f%% below flat-market floor %.3f%%", gap, p.cfg.MinEMAGapPercent)
}

// directionalTrend rejects longs in a confirmed downtrend and shorts in a
// confirmed uptrend.
func (p *FilterPipeline) directionalTrend(fctx *filterContext) (bool, string) {
	ind := fctx.md.Indicators
	gap := fctx.trend.GapPercent

	if fctx.candidate.Direction == DirectionLong && ind.EMAFast < ind.EMASlow {
		if ind.RSI < p.cfg.DowntrendWeakRSI || math.Abs(gap) > p.cfg.LargeEMAGapPercent {
			return false, fmt.Sprintf("long rejected in confirmed downtrend (RSI %.1f, EMA gap %.2f%%)", ind.RSI, gap)
		}
	}
	if fctx.candidate.Direction == DirectionShort && ind.EMAFast > ind.EMASlow {
		if ind.RSI > p.cfg.UptrendStrongRSI || math.Abs(gap) > p.cfg.LargeEMAGapPercent {
			return false, fmt.Sprintf("short rejected in confirmed uptrend (RSI %.1f, EMA gap %.2f%%)", ind.RSI, gap)
		}
	}
	return true, ""
}

// rsiBounds enforces the direction-specific RSI band, with an optional
// strong-trend bypass.
func (p *FilterPipeline) rsiBounds(fctx *filterContext) (bool, string) {
	ind := fctx.md.Indicators

	if p.cfg.StrongTrendBypass && math.Abs(fctx.trend.GapPercent) >= p.cfg.StrongTrendEMAGap {
		return true, fmt.Sprintf("RSI band bypassed by strong trend (gap %.2f%%)", fctx.trend.GapPercent)
	}

	min, max := p.cfg.RSILongMin, p.cfg.RSILongMax
	if fctx.candidate.Direction == DirectionShort {
		min, max = p.cfg.RSIShortMin, p.cfg.RSIShortMax
	}

	side := "long"
	if fctx.candidate.Direction == DirectionShort {
		side = "short"
	}
	if ind.RSI > max {
		return false, fmt.Sprintf("RSI %.1f above %s maximum %.1f", ind.RSI, side, max)
	}
	if ind.RSI < min {
		return false, fmt.Sprintf("RSI %.1f below %s minimum %.1f", ind.RSI, side, min)
	}
	return true, ""
}

// structureFilter rejects longs showing a strong downtrend signature and
// trades against the market-structure label when one is present.
func (p *FilterPipeline) structureFilter(fctx *filterContext) (bool, string) {
	ind := fctx.md.Indicators
	gap := fctx.trend.GapPercent

	// The signature veto is long-only: weak RSI inside a wide negative
	// EMA gap marks a market still falling. There is no mirrored check
	// for shorts.
	if fctx.candidate.Direction == DirectionLong &&
		ind.RSI < p.cfg.StructureWeakRSI && gap < -p.cfg.StructureEMAGap {
		return false, fmt.Sprintf("long rejected by downtrend signature (RSI %.1f, EMA gap %.2f%%)", ind.RSI, gap)
	}

	if st := fctx.md.Structure; st != nil {
		if fctx.candidate.Direction == DirectionLong && st.LowerHigh {
			return false, "long rejected by lower-high market structure"
		}
		if fctx.candidate.Direction == DirectionShort && st.HigherLow {
			return false, "short rejected by higher-low market structure"
		}
	}
	return true, ""
}

// trendAlignment optionally requires the signal direction to match the
// coarse trend label exactly.
func (p *FilterPipeline) trendAlignment(fctx *filterContext) (bool, string) {
	if !p.cfg.StrictTrendAlignment {
		return true, ""
	}
	if fctx.candidate.Direction == DirectionLong && fctx.trend.Trend != TrendUp {
		return false, fmt.Sprintf("long requires uptrend, trend is %s", fctx.trend.Trend)
	}
	if fctx.candidate.Direction == DirectionShort && fctx.trend.Trend != TrendDown {
		return false, fmt.Sprintf("short requires downtrend, trend is %s", fctx.trend.Trend)
	}
	return true, ""
}

// entryConfirmation validates the most recent candle's body and wick
// ratios against direction-specific shapes.
func (p *FilterPipeline) entryConfirmation(fctx *filterContext) (bool, string) {
	if !p.cfg.Pattern.Enabled {
		return true, ""
	}
	if len(fctx.md.Candles) == 0 {
		return true, ""
	}
	last := fctx.md.Candles[len(fctx.md.Candles)-1]
	if confirmsEntry(last, fctx.candidate.Direction, p.cfg.Pattern) {
		return true, ""
	}
	return false, fmt.Sprintf("last candle does not confirm %s entry (body %.4f, range %.4f)",
		fctx.candidate.Direction, last.Body(), last.Range())
}

// higherTimeframe rejects entries opposing a higher-timeframe EMA trend
// whose gap exceeds its own floor.
func (p *FilterPipeline) higherTimeframe(fctx *filterContext) (bool, string) {
	htf := p.cfg.HigherTF
	if !htf.Enabled || len(fctx.md.HigherTimeframes) == 0 {
		return true, ""
	}

	for tf, candles := range fctx.md.HigherTimeframes {
		gap, ok := emaGapPercent(candles, htf.FastPeriod, htf.SlowPeriod)
		if !ok {
			continue
		}
		if fctx.candidate.Direction == DirectionLong && gap <= -htf.MinEMAGapPercent {
			return false, fmt.Sprintf("long opposes %s downtrend (EMA gap %.2f%%)", tf, gap)
		}
		if fctx.candidate.Direction == DirectionShort && gap >= htf.MinEMAGapPercent {
			return false, fmt.Sprintf("short opposes %s uptrend (EMA gap %.2f%%)", tf, gap)
		}
	}
	return true, ""
}

// confirmsEntry checks the candle for a directional body or a rejection
// shape: bullish body or hammer for longs, bearish body or shooting star
// for shorts.
func confirmsEntry(c market.Candle, direction Direction, cfg PatternConfig) bool {
	rng := c.Range()
	if rng <= 0 {
		return false
	}
	bodyRatio := c.Body() / rng

	if direction == DirectionLong {
		if c.Bullish() && bodyRatio >= cfg.MinBodyRatio {
			return true
		}
		// Hammer: long lower rejection wick, close in the upper half
		if c.LowerWick() >= c.Body()*cfg.HammerWickRatio && c.Close >= c.Low+rng/2 {
			return true
		}
		return false
	}

	if c.Bearish() && bodyRatio >= cfg.MinBodyRatio {
		return true
	}
	// Shooting star: long upper rejection wick, close in the lower half
	if c.UpperWick() >= c.Body()*cfg.HammerWickRatio && c.Close <= c.High-rng/2 {
		return true
	}
	return false
}

// emaGapPercent computes the signed fast/slow EMA gap for a candle window.
// Returns ok=false when the window is too short for the slow period.
func emaGapPercent(candles []market.Candle, fastPeriod, slowPeriod int) (float64, bool) {
	if len(candles) < slowPeriod {
		return 0, false
	}
	closes := market.Closes(candles)
	fast := market.LastEMA(closes, fastPeriod)
	slow := market.LastEMA(closes, slowPeriod)
	if slow <= 0 {
		return 0, false
	}
	return (fast - slow) / slow * 100, true
}
