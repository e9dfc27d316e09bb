package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"leveltrader/pkg/logging"
	"leveltrader/pkg/market"
)

const (
	binanceWSBase     = "wss://stream.binance.com:9443/stream"
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
)

// klineEvent matches the Binance kline stream payload. Only closed
// candles (k.x == true) are forwarded.
// See: https://developers.binance.com/docs/binance-spot-api-docs/web-socket-streams#klinecandlestick-streams
type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		Kline     struct {
			StartTime int64  `json:"t"`
			Interval  string `json:"i"`
			Open      string `json:"o"`
			Close     string `json:"c"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// BinanceFeed streams closed klines from the Binance combined websocket
// endpoint, reconnecting with exponential backoff on any error.
type BinanceFeed struct {
	symbols   []string
	timeframe string
	logger    zerolog.Logger

	bars   chan Bar
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBinanceFeed creates a live kline feed for the given symbols
func NewBinanceFeed(symbols []string, timeframe string) *BinanceFeed {
	return &BinanceFeed{
		symbols:   symbols,
		timeframe: timeframe,
		logger:    logging.GetLogger("binance-feed"),
		bars:      make(chan Bar, 256),
		done:      make(chan struct{}),
	}
}

// Initialize starts the websocket consumer
func (bf *BinanceFeed) Initialize() error {
	if len(bf.symbols) == 0 {
		return fmt.Errorf("binance feed requires at least one symbol")
	}
	ctx, cancel := context.WithCancel(context.Background())
	bf.cancel = cancel
	go bf.loop(ctx)
	return nil
}

// Next blocks until the next closed candle arrives or the context ends
func (bf *BinanceFeed) Next(ctx context.Context) (*Bar, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case bar, ok := <-bf.bars:
		if !ok {
			return nil, nil
		}
		return &bar, nil
	}
}

// HasMoreData is always true for a live feed until Close is called
func (bf *BinanceFeed) HasMoreData() bool {
	select {
	case <-bf.done:
		return false
	default:
		return true
	}
}

// Close stops the consumer and releases the connection
func (bf *BinanceFeed) Close() error {
	if bf.cancel != nil {
		bf.cancel()
	}
	return nil
}

// Symbols returns the subscribed symbols
func (bf *BinanceFeed) Symbols() []string {
	return bf.symbols
}

// Timeframe returns the kline interval
func (bf *BinanceFeed) Timeframe() string {
	return bf.timeframe
}

func (bf *BinanceFeed) loop(ctx context.Context) {
	defer close(bf.done)
	defer close(bf.bars)

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := bf.connectAndConsume(ctx)
		if err == nil {
			delay = reconnectDelay
			continue
		}
		if ctx.Err() != nil {
			return
		}

		bf.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Websocket dropped, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (bf *BinanceFeed) connectAndConsume(ctx context.Context) error {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, bf.streamURL(), nil)
	if err != nil {
		return err
	}
	defer c.Close()

	bf.logger.Info().
		Strs("symbols", bf.symbols).
		Str("interval", bf.timeframe).
		Msg("Connected to Binance kline stream")

	var event klineEvent
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.ReadJSON(&event); err != nil {
			return err
		}
		k := event.Data.Kline
		if !k.Closed {
			continue
		}

		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bar := Bar{
			Symbol:    event.Data.Symbol,
			Timeframe: k.Interval,
			Candle: market.Candle{
				Timestamp: time.UnixMilli(k.StartTime).UTC(),
				Open:      open,
				High:      high,
				Low:       low,
				Close:     closePrice,
				Volume:    volume,
			},
		}

		select {
		case bf.bars <- bar:
		default:
			bf.logger.Warn().Str("symbol", bar.Symbol).Msg("Bar channel full, dropping candle")
		}
	}
}

func (bf *BinanceFeed) streamURL() string {
	streams := make([]string, 0, len(bf.symbols))
	for _, s := range bf.symbols {
		streams = append(streams, fmt.Sprintf("%s@kline_%s", strings.ToLower(s), bf.timeframe))
	}
	return binanceWSBase + "?streams=" + strings.Join(streams, "/")
}
