package feed

import (
	"context"
	"time"

	"leveltrader/pkg/market"
)

// Bar is one symbol-tagged candle delivered by a feed
type Bar struct {
	Symbol    string
	Timeframe string
	Candle    market.Candle
}

// CandleFeed defines the interface for delivering closed candles to the
// evaluation loop.
type CandleFeed interface {
	// Initialize sets up the feed
	Initialize() error

	// Next returns the next closed bar, or nil when no more data
	Next(ctx context.Context) (*Bar, error)

	// HasMoreData returns true if there's more data available
	HasMoreData() bool

	// Close closes the feed
	Close() error

	// Symbols returns the symbols available in this feed
	Symbols() []string

	// Timeframe returns the timeframe of the data
	Timeframe() string
}

// CandleProvider defines the interface for historical candle sources
type CandleProvider interface {
	// GetCandles retrieves OHLCV data for the given range
	GetCandles(symbol string, timeframe string, start time.Time, end time.Time) ([]market.Candle, error)

	// GetLastCandle gets the most recent candle for a symbol
	GetLastCandle(symbol string, timeframe string) (*market.Candle, error)

	// GetCandlesLimit gets the last N candles in chronological order
	GetCandlesLimit(symbol string, timeframe string, limit int) ([]market.Candle, error)
}
