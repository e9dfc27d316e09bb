package decision

import (
	"time"

	"leveltrader/pkg/market"
	"leveltrader/pkg/structure"
)

// Direction is the side of a trade candidate
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Trend is the coarse trend label derived from the fast/slow EMA pair
type Trend string

const (
	TrendUp      Trend = "UPTREND"
	TrendDown    Trend = "DOWNTREND"
	TrendNeutral Trend = "NEUTRAL"
)

// SwingKind tags a swing point as a local high or low
type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// LevelKind tags a level as support or resistance
type LevelKind string

const (
	LevelSupport    LevelKind = "SUPPORT"
	LevelResistance LevelKind = "RESISTANCE"
)

// ExitMethod names the stop-loss derivation method that produced a price
type ExitMethod string

const (
	ExitSweep      ExitMethod = "SWEEP"
	ExitOrderBlock ExitMethod = "ORDER_BLOCK"
	ExitSwing      ExitMethod = "SWING"
	ExitLevel      ExitMethod = "LEVEL"
	ExitATR        ExitMethod = "ATR"
	ExitPercent    ExitMethod = "PERCENT"
)

// RejectionCode is a machine-distinguishable no-signal reason
type RejectionCode string

const (
	CodeInvalidMarketData      RejectionCode = "INVALID_MARKET_DATA"
	CodeNotEnoughSwingPoints   RejectionCode = "NOT_ENOUGH_SWING_POINTS"
	CodeNoLevelsWithinDistance RejectionCode = "NO_LEVELS_WITHIN_DISTANCE"
	CodeNoTrend                RejectionCode = "NO_TREND"
	CodeTrendFilter            RejectionCode = "TREND_FILTER"
	CodeRSIOutOfRange          RejectionCode = "RSI_OUT_OF_RANGE"
	CodeStructureFilter        RejectionCode = "STRUCTURE_FILTER"
	CodeTrendAlignment         RejectionCode = "TREND_ALIGNMENT"
	CodeEntryConfirmation      RejectionCode = "ENTRY_CONFIRMATION"
	CodeHigherTimeframe        RejectionCode = "HIGHER_TF_CONFLICT"
	CodeConfidenceTooLow       RejectionCode = "CONFIDENCE_TOO_LOW"
	CodeRiskRewardTooLow       RejectionCode = "RR_BELOW_MINIMUM"
)

// SwingPoint is a local price extremum over a symmetric candle window
type SwingPoint struct {
	Price     float64
	Timestamp time.Time
	Kind      SwingKind
}

// Level is a clustered support or resistance price. Levels are rebuilt on
// every evaluation from the current candle window; they are not persisted.
type Level struct {
	Price     float64
	Kind      LevelKind
	Strength  float64 // [0,1]
	Touches   int
	LastTouch time.Time
}

// Levels partitions the built levels by kind
type Levels struct {
	Support    []Level
	Resistance []Level
}

// FilterCheck records one evaluated filter stage, pass or fail
type FilterCheck struct {
	Name   string
	Passed bool
	Reason string
}

// FilterResult is the outcome of the whole filter pipeline
type FilterResult struct {
	Passed    bool
	BlockedBy RejectionCode
	Reason    string
	Checks    []FilterCheck
}

// ExitCalculation is one stop-loss decision produced by the fallback chain
type ExitCalculation struct {
	Method          ExitMethod
	Price           float64
	DistancePercent float64
	Reason          string
	StructurePrice  float64 // 0 when no structure anchored the stop
	Buffer          float64 // price buffer beyond the structure level
	Emergency       bool    // every chain method was exhausted
}

// TakeProfit is one rung of the profit-taking ladder. Hit is toggled by
// the execution collaborator as targets are reached.
type TakeProfit struct {
	Level       int
	Price       float64
	SizePercent float64
	Percent     float64
	Hit         bool
}

// Signal is the terminal output of a successful evaluation
type Signal struct {
	Direction   Direction
	Confidence  float64 // [0.3, 1.0]
	EntryPrice  float64
	StopLoss    float64
	StopMethod  ExitMethod
	TakeProfits []TakeProfit
	Reason      string
	Timestamp   time.Time
}

// EvaluationResult is the single public output of the decision core.
// Absence of a signal is the expected majority case, not a failure.
type EvaluationResult struct {
	Valid        bool
	Signal       *Signal
	Code         RejectionCode
	Reason       string
	StrategyName string
	Priority     int
	Checks       []FilterCheck // filter stages evaluated, pass or fail
}

// IndicatorSet carries upstream indicator scalars. Optional inputs are
// pointers; nil means the producer did not supply them.
type IndicatorSet struct {
	RSI        float64
	EMAFast    float64
	EMASlow    float64
	ATRPercent float64 // ATR as percentage of price

	Stochastic        *float64
	BollingerPosition *float64 // 0 = lower band, 1 = upper band
	VolumeRatio       *float64 // current volume vs rolling average
	OrderFlowDelta    *float64 // normalized [-1, 1]
}

// MarketData is the full input for one evaluation call. Every field is
// owned by the caller and read-only for the duration of the call.
type MarketData struct {
	Symbol       string
	Candles      []market.Candle
	CurrentPrice float64
	Timestamp    time.Time
	Indicators   IndicatorSet

	// Optional collaborators
	OrderBook        *market.OrderBookSnapshot
	HigherTimeframes map[string][]market.Candle // e.g. "15m", "30m", "1h"
	Structure        *structure.Analysis        // computed internally when nil
}

// TrendContext is the derived trend label plus the signed EMA gap
type TrendContext struct {
	Trend      Trend
	GapPercent float64 // (fast-slow)/slow * 100, signed
}

// Candidate is a selected level (or synthesized breakout entry) awaiting
// the filter pipeline and scoring
type Candidate struct {
	Direction Direction
	Level     *Level // nil for breakout-mode candidates
	Distance  float64
	Breakout  bool
}

// DeriveTrend classifies the trend from the EMA pair using a symmetric
// neutral band in percent of the slow EMA.
func DeriveTrend(ind IndicatorSet, neutralBandPercent float64) TrendContext {
	tc := TrendContext{Trend: TrendNeutral}
	if ind.EMASlow <= 0 {
		return tc
	}
	tc.GapPercent = (ind.EMAFast - ind.EMASlow) / ind.EMASlow * 100
	if tc.GapPercent > neutralBandPercent {
		tc.Trend = TrendUp
	} else if tc.GapPercent < -neutralBandPercent {
		tc.Trend = TrendDown
	}
	return tc
}
