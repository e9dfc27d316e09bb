package feed

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// HistoricalFeed replays stored candles in chronological order across
// symbols, for offline evaluation runs.
type HistoricalFeed struct {
	provider  CandleProvider
	symbols   []string
	timeframe string
	startDate time.Time
	endDate   time.Time

	// Internal state
	allBars     []Bar
	currentIdx  int
	initialized bool
}

// NewHistoricalFeed creates a new historical candle feed
func NewHistoricalFeed(provider CandleProvider, symbols []string, timeframe string, start, end time.Time) *HistoricalFeed {
	return &HistoricalFeed{
		provider:  provider,
		symbols:   symbols,
		timeframe: timeframe,
		startDate: start,
		endDate:   end,
	}
}

// Initialize loads all candles and sorts them by timestamp
func (hf *HistoricalFeed) Initialize() error {
	if hf.initialized {
		return nil
	}

	for _, symbol := range hf.symbols {
		candles, err := hf.provider.GetCandles(symbol, hf.timeframe, hf.startDate, hf.endDate)
		if err != nil {
			return fmt.Errorf("failed to load candles for symbol %s: %w", symbol, err)
		}
		for _, c := range candles {
			hf.allBars = append(hf.allBars, Bar{Symbol: symbol, Timeframe: hf.timeframe, Candle: c})
		}
	}

	sort.Slice(hf.allBars, func(i, j int) bool {
		return hf.allBars[i].Candle.Timestamp.Before(hf.allBars[j].Candle.Timestamp)
	})

	hf.initialized = true
	return nil
}

// Next returns the next chronological bar from any symbol
func (hf *HistoricalFeed) Next(ctx context.Context) (*Bar, error) {
	if !hf.initialized {
		if err := hf.Initialize(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if hf.currentIdx >= len(hf.allBars) {
		return nil, nil // No more data
	}

	bar := hf.allBars[hf.currentIdx]
	hf.currentIdx++

	return &bar, nil
}

// HasMoreData returns true if there's more data available
func (hf *HistoricalFeed) HasMoreData() bool {
	if !hf.initialized {
		return true // Assume there's data until we try to initialize
	}
	return hf.currentIdx < len(hf.allBars)
}

// Reset resets the feed to the beginning
func (hf *HistoricalFeed) Reset() error {
	hf.currentIdx = 0
	return nil
}

// Close closes the feed (no-op for historical replay)
func (hf *HistoricalFeed) Close() error {
	return nil
}

// Symbols returns the symbols in this feed
func (hf *HistoricalFeed) Symbols() []string {
	return hf.symbols
}

// Timeframe returns the timeframe of the data
func (hf *HistoricalFeed) Timeframe() string {
	return hf.timeframe
}

// TotalBars returns the total number of bars loaded
func (hf *HistoricalFeed) TotalBars() int {
	return len(hf.allBars)
}

// Progress returns replay progress as a percentage
func (hf *HistoricalFeed) Progress() float64 {
	if len(hf.allBars) == 0 {
		return 0
	}
	return float64(hf.currentIdx) / float64(len(hf.allBars)) * 100
}

// DateRange returns the actual date range of the loaded data
func (hf *HistoricalFeed) DateRange() (time.Time, time.Time) {
	if len(hf.allBars) == 0 {
		return time.Time{}, time.Time{}
	}
	return hf.allBars[0].Candle.Timestamp, hf.allBars[len(hf.allBars)-1].Candle.Timestamp
}
