package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"leveltrader/pkg/decision"
	"leveltrader/pkg/feed"
	"leveltrader/pkg/logging"
	"leveltrader/pkg/market"
	"leveltrader/pkg/regime"
)

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	// Command line flags
	var (
		symbolsFlag = flag.String("symbols", "BTCUSDT", "Symbols to watch (comma-separated, e.g., BTCUSDT,ETHUSDT)")
		timeframe   = flag.String("timeframe", "5m", "Kline interval (1m, 5m, 15m, 1h)")
		window      = flag.Int("window", 200, "Candle window length per evaluation")
	)
	flag.Parse()

	// Get logging configuration from environment variables
	logLevel := getEnv("LOG_LEVEL", "info")
	logPretty := getEnvBool("LOG_PRETTY", true)
	logToFile := getEnvBool("LOG_TO_FILE", true)
	logDir := getEnv("LOG_DIR", "logs")
	logFileName := getEnv("LOG_FILE", "livewatch.log")

	// Initialize logging
	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.LogLevel(logLevel)
	logConfig.Pretty = logPretty
	logConfig.EnableFile = logToFile
	logConfig.LogDir = logDir
	logConfig.LogFileName = logFileName
	logging.Initialize(logConfig)

	logger := logging.GetLogger("main")

	if envErr != nil {
		logger.Warn().Err(envErr).Msg("Could not load .env file, using system environment variables")
	} else {
		logger.Debug().Msg("Successfully loaded .env file")
	}

	logger.Info().Msg("LevelTrader Live Watch")
	logger.Info().Msg("======================")

	symbols := strings.Split(strings.TrimSpace(*symbolsFlag), ",")
	for i, symbol := range symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(symbol))
	}

	cfg := decision.ConfigFromEnv()
	periods := decision.DefaultIndicatorPeriods()

	evaluators := make(map[string]*decision.Evaluator, len(symbols))
	windows := make(map[string][]market.Candle, len(symbols))
	for _, symbol := range symbols {
		ev, err := decision.NewEvaluator(cfg, regime.NewClassifier(500))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create evaluator")
		}
		evaluators[symbol] = ev
	}

	candleFeed := feed.NewBinanceFeed(symbols, *timeframe)
	if err := candleFeed.Initialize(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start live feed")
	}
	defer candleFeed.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Strs("symbols", symbols).
		Str("timeframe", *timeframe).
		Msg("Watching live candles")

	for {
		bar, err := candleFeed.Next(ctx)
		if err != nil {
			logger.Info().Err(err).Msg("Shutting down")
			return
		}
		if bar == nil {
			logger.Info().Msg("Feed closed")
			return
		}

		w := append(windows[bar.Symbol], bar.Candle)
		if len(w) > *window {
			w = w[len(w)-*window:]
		}
		windows[bar.Symbol] = w
		if len(w) < *window {
			logger.Debug().
				Str("symbol", bar.Symbol).
				Int("have", len(w)).
				Int("need", *window).
				Msg("Warming up candle window")
			continue
		}

		result := evaluators[bar.Symbol].Evaluate(decision.MarketData{
			Symbol:       bar.Symbol,
			Candles:      w,
			CurrentPrice: bar.Candle.Close,
			Timestamp:    bar.Candle.Timestamp,
			Indicators:   decision.ComputeIndicators(w, periods),
		})

		if result.Valid {
			s := result.Signal
			logger.Info().
				Str("symbol", bar.Symbol).
				Str("direction", string(s.Direction)).
				Float64("entry", s.EntryPrice).
				Float64("stop", s.StopLoss).
				Str("stop_method", string(s.StopMethod)).
				Int("targets", len(s.TakeProfits)).
				Float64("confidence", s.Confidence).
				Msg("SIGNAL")
		} else {
			logger.Debug().
				Str("symbol", bar.Symbol).
				Str("code", string(result.Code)).
				Str("reason", result.Reason).
				Msg("No signal")
		}
	}
}

// Helper function to get environment variable with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get boolean environment variable with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
