package data

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"leveltrader/pkg/feed"
	"leveltrader/pkg/market"
)

// TimescaleDBProvider provides historical candles from TimescaleDB
type TimescaleDBProvider struct {
	db *sql.DB
}

// NewTimescaleDBProvider creates a new TimescaleDB candle provider
func NewTimescaleDBProvider(connectionString string) (*TimescaleDBProvider, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &TimescaleDBProvider{
		db: db,
	}, nil
}

// GetCandles retrieves OHLCV data for the given range
func (p *TimescaleDBProvider) GetCandles(symbol string, timeframe string, start time.Time, end time.Time) ([]market.Candle, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM ohlcv_data
		WHERE symbol = $1 AND timeframe = $2 AND timestamp >= $3 AND timestamp <= $4
		ORDER BY timestamp ASC
	`

	rows, err := p.db.Query(query, symbol, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query ohlcv_data: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// GetLastCandle gets the most recent candle for a symbol
func (p *TimescaleDBProvider) GetLastCandle(symbol string, timeframe string) (*market.Candle, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM ohlcv_data
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY timestamp DESC
		LIMIT 1
	`

	row := p.db.QueryRow(query, symbol, timeframe)

	var c market.Candle
	err := row.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no data found for symbol %s timeframe %s", symbol, timeframe)
		}
		return nil, fmt.Errorf("failed to get last candle: %w", err)
	}

	return &c, nil
}

// GetCandlesLimit gets the last N candles in chronological order
func (p *TimescaleDBProvider) GetCandlesLimit(symbol string, timeframe string, limit int) ([]market.Candle, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume
		FROM ohlcv_data
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY timestamp DESC
		LIMIT $3
	`

	rows, err := p.db.Query(query, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ohlcv_data: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}

	// Reverse the slice to get chronological order (oldest first)
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// Close closes the database connection
func (p *TimescaleDBProvider) Close() error {
	return p.db.Close()
}

func scanCandles(rows *sql.Rows) ([]market.Candle, error) {
	var candles []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return candles, nil
}

// Verify that TimescaleDBProvider implements the CandleProvider interface
var _ feed.CandleProvider = (*TimescaleDBProvider)(nil)
