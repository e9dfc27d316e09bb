package decision

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SwingConfig controls swing point extraction
type SwingConfig struct {
	Depth int // symmetric half-window; a swing needs 2*Depth+1 candles
}

// LevelConfig controls level clustering and strength
type LevelConfig struct {
	ClusterThresholdPercent float64 // max relative gap within a cluster
	ATRScaledClustering     bool    // scale threshold by ATR%
	ATRClusterFactor        float64 // threshold += ATR% * factor
	StrongLevelTouchCount   int     // touches mapping to strength 1.0

	// Level exhaustion: breakouts through the level drain strength
	BreakoutPiercePercent float64 // pierce beyond this % counts as breakout
	ExhaustionLookback    int     // candles scanned for breakouts
	ExhaustionPenalty     float64 // strength penalty per breakout
	ExhaustionMaxPenalty  float64 // cumulative penalty cap

	// Order book confirmation: a resting wall near the level boosts it
	WallDistancePercent float64
	WallMinSize         float64
	WallBoost           float64
	WallBoostCap        float64
}

// BreakoutConfig controls the level-less trend-following fallback entry
type BreakoutConfig struct {
	Enabled          bool
	MinEMAGapPercent float64 // trend strength floor
	MinATRPercent    float64 // volatility floor
	RSIRoomLong      float64 // LONG requires RSI at or below this
	RSIRoomShort     float64 // SHORT requires RSI at or above this
}

// SelectorConfig controls nearest-level selection
type SelectorConfig struct {
	MaxDistancePercent      float64 // base admissible distance per side
	ATRDistanceMultiplier   float64 // dynamic distance = ATR% * multiplier
	TrendDistanceMultiplier float64 // widens the trend-aligned side
	MinTouchesLong          int
	MinTouchesShort         int
	MinStrength             float64 // floor applied in the neutral branch
	BlockShortInUptrend     bool
	Breakout                BreakoutConfig
}

// PatternConfig controls the candle-pattern entry confirmation
type PatternConfig struct {
	Enabled         bool
	MinBodyRatio    float64 // directional body / range floor
	HammerWickRatio float64 // rejection wick vs body for hammer/star shapes
}

// HigherTimeframeConfig controls the multi-timeframe context filter
type HigherTimeframeConfig struct {
	Enabled          bool
	FastPeriod       int
	SlowPeriod       int
	MinEMAGapPercent float64 // opposing gap beyond this floor rejects
}

// FilterConfig controls the veto pipeline
type FilterConfig struct {
	MinEMAGapPercent     float64 // trend-existence floor (flat market)
	StrengthBypass       float64 // level strength that bypasses flat market
	RSILongMin           float64
	RSILongMax           float64
	RSIShortMin          float64
	RSIShortMax          float64
	StrongTrendBypass    bool
	StrongTrendEMAGap    float64
	DowntrendWeakRSI     float64 // LONG blocked below this in a downtrend
	UptrendStrongRSI     float64 // SHORT blocked above this in an uptrend
	LargeEMAGapPercent   float64 // EMA divergence confirming a trend
	StructureWeakRSI     float64
	StructureEMAGap      float64
	StrictTrendAlignment bool
	Pattern              PatternConfig
	HigherTF             HigherTimeframeConfig
}

// ConfidenceMode selects the scoring strategy
type ConfidenceMode string

const (
	ConfidenceWeighted ConfidenceMode = "weighted"
	ConfidenceLegacy   ConfidenceMode = "legacy"
)

// ConfidenceWeights are the factor weights for the weighted scorer.
// A factor whose input is unavailable drops out of the normalization.
type ConfidenceWeights struct {
	RSI            float64
	Stochastic     float64
	EMADivergence  float64
	Bollinger      float64
	ATRRegime      float64
	VolumeRatio    float64
	OrderFlowDelta float64
	LevelStrength  float64
	LevelDistance  float64
	SwingQuality   float64
	HigherTF       float64
}

// ConfidenceConfig controls scoring and the emission threshold
type ConfidenceConfig struct {
	Mode ConfidenceMode

	// Legacy additive scorer
	Base                 float64
	StrengthBoost        float64
	TrendAlignmentBoost  float64
	CloseDistancePercent float64 // distance below this multiplies by 1+CloseBoost
	CloseBoost           float64
	FarDistancePercent   float64 // distance above this multiplies by 1-FarPenalty
	FarPenalty           float64
	PatternBonus         float64
	MTFLevelBonus        float64
	MTFTolerancePercent  float64

	// Weighted scorer
	Weights          ConfidenceWeights
	StrongGapPercent float64 // EMA gap mapping to full divergence sub-score
	IdealATRPercent  float64

	// Emission gate; the regime collaborator adjusts the threshold
	MinThreshold float64
}

// TakeProfitLevelConfig is one configured ladder rung
type TakeProfitLevelConfig struct {
	Percent     float64 // distance from entry in percent
	SizePercent float64 // portion of the position closed at this rung
}

// ExitConfig controls the stop-loss chain and take-profit ladder
type ExitConfig struct {
	MethodOrder        []ExitMethod
	MinDistancePercent float64
	MaxDistancePercent float64

	// Buffer placed beyond the chosen structure price
	ATRBufferMultiplier float64
	BufferMinPercent    float64
	BufferMaxPercent    float64

	// Per-method parameters
	SweepMaxAgeCandles           int
	OrderBlockMaxDistancePercent float64
	SwingLookback                int
	SwingMaxDistancePercent      float64
	LevelMinScore                float64 // touches * strength floor

	ATRFixedMultiplier float64
	PercentDistance    float64
	EmergencyPercent   float64

	// Take profits
	TakeProfits        []TakeProfitLevelConfig
	UseRRTarget        bool
	RRTargetRatio      float64
	ATRScaleTargets    bool
	ReferenceATR       float64 // ATR% at which targets are unscaled
	SessionFactor      float64 // scales targets for thin sessions; 1 = off
	WallCapMinSize     float64 // order book wall size that caps targets; 0 disables
	FlatMarketCollapse bool
	FlatEMAGapPercent  float64
	MinRiskReward      float64 // 0 disables the R:R gate
}

// Config is the full, validated configuration of the decision core.
// Defaults are resolved once at construction, never per call.
type Config struct {
	StrategyName       string
	Priority           int
	NeutralBandPercent float64 // trend label neutral band

	Swing      SwingConfig
	Level      LevelConfig
	Selector   SelectorConfig
	Filters    FilterConfig
	Confidence ConfidenceConfig
	Exit       ExitConfig
}

// DefaultConfig returns the default decision configuration
func DefaultConfig() Config {
	return Config{
		StrategyName:       "LevelBounce",
		Priority:           50,
		NeutralBandPercent: 0.5,
		Swing: SwingConfig{
			Depth: 3,
		},
		Level: LevelConfig{
			ClusterThresholdPercent: 0.3,
			ATRScaledClustering:     true,
			ATRClusterFactor:        0.1,
			StrongLevelTouchCount:   4,
			BreakoutPiercePercent:   0.5,
			ExhaustionLookback:      30,
			ExhaustionPenalty:       0.15,
			ExhaustionMaxPenalty:    0.45,
			WallDistancePercent:     0.2,
			WallMinSize:             0,
			WallBoost:               0.1,
			WallBoostCap:            0.2,
		},
		Selector: SelectorConfig{
			MaxDistancePercent:      1.0,
			ATRDistanceMultiplier:   1.5,
			TrendDistanceMultiplier: 1.5,
			MinTouchesLong:          2,
			MinTouchesShort:         2,
			MinStrength:             0.3,
			BlockShortInUptrend:     true,
			Breakout: BreakoutConfig{
				Enabled:          false,
				MinEMAGapPercent: 1.0,
				MinATRPercent:    0.8,
				RSIRoomLong:      65,
				RSIRoomShort:     35,
			},
		},
		Filters: FilterConfig{
			MinEMAGapPercent:     0.1,
			StrengthBypass:       0.75,
			RSILongMin:           35,
			RSILongMax:           70,
			RSIShortMin:          30,
			RSIShortMax:          65,
			StrongTrendBypass:    true,
			StrongTrendEMAGap:    1.5,
			DowntrendWeakRSI:     45,
			UptrendStrongRSI:     55,
			LargeEMAGapPercent:   2.0,
			StructureWeakRSI:     40,
			StructureEMAGap:      1.0,
			StrictTrendAlignment: false,
			Pattern: PatternConfig{
				Enabled:         true,
				MinBodyRatio:    0.5,
				HammerWickRatio: 2.0,
			},
			HigherTF: HigherTimeframeConfig{
				Enabled:          true,
				FastPeriod:       9,
				SlowPeriod:       21,
				MinEMAGapPercent: 0.5,
			},
		},
		Confidence: ConfidenceConfig{
			Mode:                 ConfidenceLegacy,
			Base:                 0.5,
			StrengthBoost:        0.3,
			TrendAlignmentBoost:  0.1,
			CloseDistancePercent: 0.3,
			CloseBoost:           0.1,
			FarDistancePercent:   1.5,
			FarPenalty:           0.15,
			PatternBonus:         0.05,
			MTFLevelBonus:        0.1,
			MTFTolerancePercent:  0.3,
			Weights: ConfidenceWeights{
				RSI:            1.0,
				Stochastic:     0.5,
				EMADivergence:  1.0,
				Bollinger:      0.5,
				ATRRegime:      0.5,
				VolumeRatio:    0.75,
				OrderFlowDelta: 0.75,
				LevelStrength:  1.5,
				LevelDistance:  1.0,
				SwingQuality:   0.5,
				HigherTF:       1.0,
			},
			StrongGapPercent: 2.0,
			IdealATRPercent:  1.5,
			MinThreshold:     0.55,
		},
		Exit: ExitConfig{
			MethodOrder: []ExitMethod{
				ExitSweep, ExitOrderBlock, ExitSwing, ExitLevel, ExitATR, ExitPercent,
			},
			MinDistancePercent:           0.4,
			MaxDistancePercent:           3.0,
			ATRBufferMultiplier:          0.5,
			BufferMinPercent:             0.05,
			BufferMaxPercent:             0.3,
			SweepMaxAgeCandles:           15,
			OrderBlockMaxDistancePercent: 2.0,
			SwingLookback:                30,
			SwingMaxDistancePercent:      2.5,
			LevelMinScore:                0.8,
			ATRFixedMultiplier:           1.0,
			PercentDistance:              1.0,
			EmergencyPercent:             1.5,
			TakeProfits: []TakeProfitLevelConfig{
				{Percent: 1.0, SizePercent: 40},
				{Percent: 2.0, SizePercent: 35},
				{Percent: 3.5, SizePercent: 25},
			},
			UseRRTarget:        false,
			RRTargetRatio:      2.0,
			ATRScaleTargets:    false,
			ReferenceATR:       1.5,
			SessionFactor:      1.0,
			WallCapMinSize:     0,
			FlatMarketCollapse: true,
			FlatEMAGapPercent:  0.15,
			MinRiskReward:      1.2,
		},
	}
}

// ConfigFromEnv returns the default configuration overridden by
// environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.StrategyName = getEnvString("LT_STRATEGY_NAME", cfg.StrategyName)
	cfg.Priority = getEnvInt("LT_PRIORITY", cfg.Priority)
	cfg.NeutralBandPercent = getEnvFloat("LT_NEUTRAL_BAND", cfg.NeutralBandPercent)

	cfg.Swing.Depth = getEnvInt("LT_SWING_DEPTH", cfg.Swing.Depth)

	cfg.Level.ClusterThresholdPercent = getEnvFloat("LT_CLUSTER_THRESHOLD", cfg.Level.ClusterThresholdPercent)
	cfg.Level.StrongLevelTouchCount = getEnvInt("LT_STRONG_TOUCHES", cfg.Level.StrongLevelTouchCount)

	cfg.Selector.MaxDistancePercent = getEnvFloat("LT_MAX_DISTANCE", cfg.Selector.MaxDistancePercent)
	cfg.Selector.BlockShortInUptrend = getEnvBool("LT_BLOCK_SHORT_IN_UPTREND", cfg.Selector.BlockShortInUptrend)
	cfg.Selector.Breakout.Enabled = getEnvBool("LT_BREAKOUT_MODE", cfg.Selector.Breakout.Enabled)

	cfg.Filters.RSILongMax = getEnvFloat("LT_RSI_LONG_MAX", cfg.Filters.RSILongMax)
	cfg.Filters.RSILongMin = getEnvFloat("LT_RSI_LONG_MIN", cfg.Filters.RSILongMin)
	cfg.Filters.RSIShortMax = getEnvFloat("LT_RSI_SHORT_MAX", cfg.Filters.RSIShortMax)
	cfg.Filters.RSIShortMin = getEnvFloat("LT_RSI_SHORT_MIN", cfg.Filters.RSIShortMin)
	cfg.Filters.StrictTrendAlignment = getEnvBool("LT_STRICT_ALIGNMENT", cfg.Filters.StrictTrendAlignment)

	if mode := os.Getenv("LT_CONFIDENCE_MODE"); mode != "" {
		cfg.Confidence.Mode = ConfidenceMode(strings.ToLower(mode))
	}
	cfg.Confidence.MinThreshold = getEnvFloat("LT_MIN_CONFIDENCE", cfg.Confidence.MinThreshold)

	cfg.Exit.MinDistancePercent = getEnvFloat("LT_SL_MIN_DISTANCE", cfg.Exit.MinDistancePercent)
	cfg.Exit.MaxDistancePercent = getEnvFloat("LT_SL_MAX_DISTANCE", cfg.Exit.MaxDistancePercent)
	cfg.Exit.ATRBufferMultiplier = getEnvFloat("LT_SL_ATR_MULTIPLIER", cfg.Exit.ATRBufferMultiplier)
	cfg.Exit.MinRiskReward = getEnvFloat("LT_MIN_RISK_REWARD", cfg.Exit.MinRiskReward)

	return cfg
}

// Validate checks internal consistency of the configuration
func (c Config) Validate() error {
	if c.Swing.Depth < 1 {
		return fmt.Errorf("swing depth must be >= 1, got %d", c.Swing.Depth)
	}
	if c.Level.ClusterThresholdPercent <= 0 {
		return fmt.Errorf("cluster threshold must be positive, got %f", c.Level.ClusterThresholdPercent)
	}
	if c.Level.StrongLevelTouchCount < 1 {
		return fmt.Errorf("strong level touch count must be >= 1, got %d", c.Level.StrongLevelTouchCount)
	}
	if c.Exit.MinDistancePercent <= 0 || c.Exit.MaxDistancePercent <= c.Exit.MinDistancePercent {
		return fmt.Errorf("exit distance band [%f, %f] is invalid",
			c.Exit.MinDistancePercent, c.Exit.MaxDistancePercent)
	}
	if len(c.Exit.MethodOrder) == 0 {
		return fmt.Errorf("exit method order must not be empty")
	}
	if c.Confidence.MinThreshold < confidenceFloor || c.Confidence.MinThreshold > confidenceCeil {
		return fmt.Errorf("minimum confidence %f outside [%f, %f]",
			c.Confidence.MinThreshold, confidenceFloor, confidenceCeil)
	}
	if !c.Exit.UseRRTarget && len(c.Exit.TakeProfits) == 0 {
		return fmt.Errorf("take-profit ladder is empty and R:R target mode is off")
	}
	return nil
}

// Helper functions for reading environment variables

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
