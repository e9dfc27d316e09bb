package regime

import "testing"

func TestClassifyNeedsHistory(t *testing.T) {
	c := NewClassifier(100)
	c.Observe(5.0)

	if got := c.Classify(); got != RegimeNormal {
		t.Errorf("expected %s with sparse history, got %s", RegimeNormal, got)
	}
	if c.ConfidenceAdjustment() != 0 {
		t.Errorf("sparse history must not adjust the threshold")
	}
}

func TestClassifySpikes(t *testing.T) {
	c := NewClassifier(100)
	for i := 0; i < 30; i++ {
		c.Observe(1.0 + float64(i%3)*0.1)
	}

	c.Observe(5.0)
	if got := c.Classify(); got != RegimeExtreme {
		t.Errorf("expected %s after a volatility spike, got %s", RegimeExtreme, got)
	}
	if c.ConfidenceAdjustment() != 0.10 {
		t.Errorf("extreme regime must raise the threshold by 0.10, got %f", c.ConfidenceAdjustment())
	}
}

func TestClassifyCalm(t *testing.T) {
	c := NewClassifier(100)
	for i := 0; i < 30; i++ {
		c.Observe(1.0 + float64(i%5)*0.5)
	}

	c.Observe(0.2)
	if got := c.Classify(); got != RegimeLow {
		t.Errorf("expected %s after volatility collapse, got %s", RegimeLow, got)
	}
	if c.ConfidenceAdjustment() != -0.05 {
		t.Errorf("low regime must lower the threshold by 0.05, got %f", c.ConfidenceAdjustment())
	}
}

func TestObserveEvictsOldest(t *testing.T) {
	c := NewClassifier(10)
	for i := 0; i < 25; i++ {
		c.Observe(float64(i))
	}
	if len(c.history) != 10 {
		t.Errorf("expected history capped at 10, got %d", len(c.history))
	}
	if c.history[0] != 15 {
		t.Errorf("expected oldest retained sample 15, got %f", c.history[0])
	}
}
