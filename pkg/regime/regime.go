package regime

import "gonum.org/v1/gonum/stat"

// Regime classifies the current volatility environment
type Regime string

const (
	RegimeLow     Regime = "low"
	RegimeNormal  Regime = "normal"
	RegimeHigh    Regime = "high"
	RegimeExtreme Regime = "extreme"
)

// Classifier tracks a rolling history of ATR% samples and classifies the
// latest observation against the distribution. It is owned by the caller
// and treated as read-only for the duration of an evaluation.
type Classifier struct {
	history    []float64
	maxHistory int
}

// NewClassifier creates a classifier keeping up to maxHistory samples.
func NewClassifier(maxHistory int) *Classifier {
	if maxHistory < 10 {
		maxHistory = 10
	}
	return &Classifier{maxHistory: maxHistory}
}

// Observe appends an ATR% sample, evicting the oldest beyond capacity.
func (c *Classifier) Observe(atrPercent float64) {
	c.history = append(c.history, atrPercent)
	if len(c.history) > c.maxHistory {
		c.history = c.history[1:]
	}
}

// Classify returns the regime of the most recent sample relative to the
// rolling mean and standard deviation. With fewer than 10 samples the
// distribution is not trustworthy and the regime is normal.
func (c *Classifier) Classify() Regime {
	if len(c.history) < 10 {
		return RegimeNormal
	}

	mean, std := stat.MeanStdDev(c.history, nil)
	latest := c.history[len(c.history)-1]

	if std <= 0 {
		return RegimeNormal
	}

	z := (latest - mean) / std
	switch {
	case z >= 2.0:
		return RegimeExtreme
	case z >= 1.0:
		return RegimeHigh
	case z <= -1.0:
		return RegimeLow
	default:
		return RegimeNormal
	}
}

// ConfidenceAdjustment returns the additive adjustment applied to the
// minimum confidence threshold for the current regime. Volatile regimes
// demand more conviction before a signal is emitted.
func (c *Classifier) ConfidenceAdjustment() float64 {
	switch c.Classify() {
	case RegimeExtreme:
		return 0.10
	case RegimeHigh:
		return 0.05
	case RegimeLow:
		return -0.05
	default:
		return 0
	}
}
