package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"leveltrader/internal/data"
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
		symbolsFlag = flag.String("symbols", "BTCUSDT", "Symbols to evaluate (comma-separated, e.g., BTCUSDT,ETHUSDT)")
		startDate   = flag.String("start", "2024-01-01", "Start date (YYYY-MM-DD)")
		endDate     = flag.String("end", "2024-12-31", "End date (YYYY-MM-DD)")
		timeframe   = flag.String("timeframe", "5m", "Timeframe (1m, 5m, 15m, 1h, 1d)")
		window      = flag.Int("window", 200, "Candle window length per evaluation")
	)
	flag.Parse()

	// Get logging configuration from environment variables
	logLevel := getEnv("LOG_LEVEL", "info")
	logPretty := getEnvBool("LOG_PRETTY", true)
	logToFile := getEnvBool("LOG_TO_FILE", true)
	logDir := getEnv("LOG_DIR", "logs")
	logFileName := getEnv("LOG_FILE", "evaluate.log")

	// Initialize logging
	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.LogLevel(logLevel)
	logConfig.Pretty = logPretty
	logConfig.EnableFile = logToFile
	logConfig.LogDir = logDir
	logConfig.LogFileName = logFileName
	logging.Initialize(logConfig)

	logger := logging.GetLogger("main")

	// Log environment loading status
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("Could not load .env file, using system environment variables")
	} else {
		logger.Debug().Msg("Successfully loaded .env file")
	}

	logger.Info().Msg("LevelTrader Historical Evaluation")
	logger.Info().Msg("=================================")

	// Parse dates
	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		logger.Fatal().Err(err).Str("start_date", *startDate).Msg("Invalid start date")
	}

	// For end date, add 24 hours to include the entire day
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		logger.Fatal().Err(err).Str("end_date", *endDate).Msg("Invalid end date")
	}
	end = end.Add(24 * time.Hour)

	// Parse symbols from comma-delimited string
	symbols := parseSymbols(*symbolsFlag)
	logger.Debug().Strs("symbols", symbols).Msg("Parsed symbols from input")

	// Get database configuration from environment variables
	dbHost := getEnv("POSTGRES_HOST", "localhost")
	dbPort := getEnv("POSTGRES_PORT", "5432")
	dbUser := getEnv("POSTGRES_USER", "postgres")
	dbPassword := getEnv("POSTGRES_PASSWORD", "trading_password_2025")
	dbName := getEnv("POSTGRES_DB", "trading_data")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	logger.Info().Msg("Connecting to database...")
	provider, err := data.NewTimescaleDBProvider(connStr)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create candle provider")
	}
	defer provider.Close()

	candleFeed := feed.NewHistoricalFeed(provider, symbols, *timeframe, start, end)
	if err := candleFeed.Initialize(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load historical candles")
	}

	cfg := decision.ConfigFromEnv()
	periods := decision.DefaultIndicatorPeriods()

	// One evaluator, classifier and rolling window per symbol
	evaluators := make(map[string]*decision.Evaluator, len(symbols))
	windows := make(map[string][]market.Candle, len(symbols))
	for _, symbol := range symbols {
		ev, err := decision.NewEvaluator(cfg, regime.NewClassifier(500))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create evaluator")
		}
		evaluators[symbol] = ev
	}

	logger.Info().
		Strs("symbols", symbols).
		Str("timeframe", *timeframe).
		Int("total_bars", candleFeed.TotalBars()).
		Msg("Running historical evaluation")

	ctx := context.Background()
	signals, rejections := 0, 0

	for candleFeed.HasMoreData() {
		bar, err := candleFeed.Next(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Feed error")
		}
		if bar == nil {
			break
		}

		w := append(windows[bar.Symbol], bar.Candle)
		if len(w) > *window {
			w = w[len(w)-*window:]
		}
		windows[bar.Symbol] = w
		if len(w) < *window {
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
			signals++
			s := result.Signal
			logger.Info().
				Str("symbol", bar.Symbol).
				Time("at", s.Timestamp).
				Str("direction", string(s.Direction)).
				Float64("entry", s.EntryPrice).
				Float64("stop", s.StopLoss).
				Str("stop_method", string(s.StopMethod)).
				Float64("confidence", s.Confidence).
				Str("reason", s.Reason).
				Msg("Signal")
		} else {
			rejections++
		}
	}

	logger.Info().
		Int("signals", signals).
		Int("rejections", rejections).
		Msg("Evaluation complete")
}

func parseSymbols(input string) []string {
	parts := strings.Split(strings.TrimSpace(input), ",")
	for i, symbol := range parts {
		parts[i] = strings.TrimSpace(symbol)
	}
	return parts
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
