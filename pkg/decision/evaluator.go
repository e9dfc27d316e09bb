package decision

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"leveltrader/pkg/logging"
	"leveltrader/pkg/market"
	"leveltrader/pkg/regime"
	"leveltrader/pkg/structure"
)

// Evaluator is the decision core. One Evaluate call per closed candle;
// the evaluator keeps no per-symbol state besides the volatility regime
// history, so one instance serves one symbol.
type Evaluator struct {
	cfg    Config
	logger zerolog.Logger

	analyzer *LevelAnalyzer
	selector *LevelSelector
	pipeline *FilterPipeline
	scorer   *ConfidenceScorer
	exits    *ExitConstructor
	regime   *regime.Classifier

	obConfig    structure.OrderBlockConfig
	sweepConfig structure.SweepConfig
}

// NewEvaluator constructs an evaluator from a validated configuration.
// The volatility classifier is a caller-owned collaborator so its ATR
// history can outlive evaluator reconfiguration; a nil classifier gets a
// private default.
func NewEvaluator(cfg Config, vol *regime.Classifier) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decision config: %w", err)
	}
	if vol == nil {
		vol = regime.NewClassifier(500)
	}

	logger := logging.GetLogger("decision")
	analyzer := NewLevelAnalyzer(cfg.Level, logger)

	return &Evaluator{
		cfg:         cfg,
		logger:      logger,
		analyzer:    analyzer,
		selector:    NewLevelSelector(cfg.Selector, logger),
		pipeline:    NewFilterPipeline(cfg.Filters, logger),
		scorer:      NewConfidenceScorer(cfg.Confidence, cfg.Filters.Pattern, cfg.Swing.Depth, analyzer, logger),
		exits:       NewExitConstructor(cfg.Exit, logger),
		regime:      vol,
		obConfig:    structure.DefaultOrderBlockConfig(),
		sweepConfig: structure.DefaultSweepConfig(),
	}, nil
}

// Evaluate runs the full decision sequence for one closed candle.
// A no-signal result is the expected majority case, not an error.
func (ev *Evaluator) Evaluate(md MarketData) EvaluationResult {
	if err := market.ValidateWindow(md.Candles); err != nil {
		return ev.reject(CodeInvalidMarketData, err.Error(), nil)
	}
	if md.CurrentPrice <= 0 {
		return ev.reject(CodeInvalidMarketData,
			fmt.Sprintf("current price must be positive, got %.4f", md.CurrentPrice), nil)
	}

	ev.regime.Observe(md.Indicators.ATRPercent)
	tc := DeriveTrend(md.Indicators, ev.cfg.NeutralBandPercent)

	highs, lows := ExtractSwings(md.Candles, ev.cfg.Swing.Depth)
	if len(highs) < 2 || len(lows) < 2 {
		return ev.reject(CodeNotEnoughSwingPoints,
			fmt.Sprintf("need at least 2 swing highs and lows, got %d/%d", len(highs), len(lows)), nil)
	}

	levels := ev.analyzer.BuildLevels(md.Candles, highs, lows, md.Indicators.ATRPercent, md.OrderBook)

	candidate, code, reason := ev.selector.Select(levels, md.CurrentPrice, tc, md.Indicators)
	if candidate == nil {
		return ev.reject(code, reason, nil)
	}

	if md.Structure == nil {
		analysis := structure.Analyze(md.Candles, ev.cfg.Swing.Depth)
		md.Structure = &analysis
	}

	filtered := ev.pipeline.Run(md, candidate, tc)
	if !filtered.Passed {
		return ev.reject(filtered.BlockedBy, filtered.Reason, filtered.Checks)
	}

	confidence := ev.scorer.Score(md, candidate, tc, len(highs)+len(lows))
	threshold := ev.cfg.Confidence.MinThreshold + ev.regime.ConfidenceAdjustment()
	if confidence < threshold {
		return ev.reject(CodeConfidenceTooLow,
			fmt.Sprintf("confidence %.2f below threshold %.2f (margin %.2f)",
				confidence, threshold, threshold-confidence), filtered.Checks)
	}

	ectx := ev.exitContext(md, candidate, highs, lows, levels)
	stop := ev.exits.StopLoss(ectx)
	targets := ev.exits.TakeProfits(ectx, stop, tc.GapPercent)

	if ev.cfg.Exit.MinRiskReward > 0 {
		rr := RiskReward(md.CurrentPrice, stop, targets)
		if rr < ev.cfg.Exit.MinRiskReward {
			return ev.reject(CodeRiskRewardTooLow,
				fmt.Sprintf("risk/reward %.2f below minimum %.2f", rr, ev.cfg.Exit.MinRiskReward),
				filtered.Checks)
		}
	}

	signal := &Signal{
		Direction:   candidate.Direction,
		Confidence:  confidence,
		EntryPrice:  md.CurrentPrice,
		StopLoss:    stop.Price,
		StopMethod:  stop.Method,
		TakeProfits: targets,
		Reason:      ev.signalReason(candidate, tc, confidence),
		Timestamp:   md.Timestamp,
	}

	ev.logger.Info().
		Str("symbol", md.Symbol).
		Str("direction", string(signal.Direction)).
		Float64("confidence", signal.Confidence).
		Float64("entry", signal.EntryPrice).
		Float64("stop", signal.StopLoss).
		Str("stop_method", string(signal.StopMethod)).
		Msg("Signal emitted")

	return EvaluationResult{
		Valid:        true,
		Signal:       signal,
		StrategyName: ev.cfg.StrategyName,
		Priority:     ev.cfg.Priority,
		Checks:       filtered.Checks,
	}
}

// exitContext assembles everything the exit constructor may inspect,
// including freshly detected order blocks and liquidity sweeps.
func (ev *Evaluator) exitContext(md MarketData, candidate *Candidate, highs, lows []SwingPoint, levels Levels) *exitContext {
	return &exitContext{
		direction:  candidate.Direction,
		entry:      md.CurrentPrice,
		atrPercent: md.Indicators.ATRPercent,
		candles:    md.Candles,
		highs:      highs,
		lows:       lows,
		levels:     levels,
		blocks:     structure.DetectOrderBlocks(md.Candles, md.CurrentPrice, ev.obConfig),
		sweeps:     structure.DetectSweeps(md.Candles, ev.sweepConfig),
		book:       md.OrderBook,
		now:        md.Timestamp,
		candleStep: candleStep(md.Candles),
	}
}

func (ev *Evaluator) signalReason(candidate *Candidate, tc TrendContext, confidence float64) string {
	if candidate.Breakout {
		return fmt.Sprintf("%s breakout continuation in %s (confidence %.2f)",
			candidate.Direction, tc.Trend, confidence)
	}
	return fmt.Sprintf("%s bounce off %s %.4f (strength %.2f, distance %.2f%%, confidence %.2f)",
		candidate.Direction, candidate.Level.Kind, candidate.Level.Price,
		candidate.Level.Strength, candidate.Distance, confidence)
}

func (ev *Evaluator) reject(code RejectionCode, reason string, checks []FilterCheck) EvaluationResult {
	ev.logger.Debug().
		Str("code", string(code)).
		Str("reason", reason).
		Msg("No signal")
	return EvaluationResult{
		Valid:        false,
		Code:         code,
		Reason:       reason,
		StrategyName: ev.cfg.StrategyName,
		Priority:     ev.cfg.Priority,
		Checks:       checks,
	}
}

// candleStep infers the candle interval from the last two timestamps.
// Falls back to one minute for degenerate windows.
func candleStep(candles []market.Candle) time.Duration {
	if len(candles) < 2 {
		return time.Minute
	}
	step := candles[len(candles)-1].Timestamp.Sub(candles[len(candles)-2].Timestamp)
	if step <= 0 {
		return time.Minute
	}
	return step
}
