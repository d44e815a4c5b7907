package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/quantkit/sigbench/internal/annotate"
	"github.com/quantkit/sigbench/internal/backtest"
	"github.com/quantkit/sigbench/internal/binance"
	"github.com/quantkit/sigbench/internal/config"
	"github.com/quantkit/sigbench/internal/export"
	"github.com/quantkit/sigbench/internal/signal"
	"github.com/quantkit/sigbench/internal/store"
	"github.com/quantkit/sigbench/internal/types"
)

func main() {
	app, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	sigCfg := config.Default()
	if err := sigCfg.Validate(); err != nil {
		slog.Error("Invalid signal configuration", "error", err)
		os.Exit(1)
	}

	client := binance.NewService(app.BinanceAPIKey, app.BinanceSecretKey)
	resolver := signal.VolatilityResolver{Base: sigCfg, Classifier: signal.ATRClassifier{}}
	detector := signal.NewEngine(sigCfg, resolver)

	from := time.Now().AddDate(0, 0, -app.LookbackDays)
	to := time.Now()

	history := make(map[string][]types.Candle, len(app.Symbols))
	var events []signal.Event
	var records []types.SignalRecord

	ctx := context.Background()
	for _, symbol := range app.Symbols {
		candles, err := client.FetchCandles(ctx, symbol, app.Interval, from, to)
		if err != nil {
			slog.Error("Failed to fetch candles", "symbol", symbol, "error", err)
			os.Exit(1)
		}

		annotated := annotate.Series(candles)
		history[symbol] = annotated
		slog.Info("Loaded candles", "symbol", symbol, "count", len(annotated))

		// Replay the stream one candle at a time, the way a live feed
		// would deliver it, and collect created signals for the backtest.
		for _, c := range annotated {
			detector.UpdateCandles(symbol, []types.Candle{c})
			ev := detector.ProcessSymbol(symbol, app.Interval)
			if ev == nil {
				continue
			}
			events = append(events, *ev)
			if ev.Action == signal.ActionCreated {
				records = append(records, ev.Signal.Record())
			}
		}
	}

	slog.Info("Signal replay complete", "events", len(events), "signals", len(records))

	engine := backtest.NewEngine(app.InitialCapital, app.PositionSize, app.MaxPositions)
	results := engine.Run(history, records)

	metrics := results.Calculate()
	metrics.Print()
	results.PrintTrades()

	if app.ExportDir != "" {
		if err := export.WriteResults(app.ExportDir, results); err != nil {
			slog.Error("Failed to export results", "error", err)
			os.Exit(1)
		}
		slog.Info("Exported results", "dir", app.ExportDir)
	}

	if app.DatabaseDSN != "" {
		st, err := store.Open(app.DatabaseDSN)
		if err != nil {
			slog.Error("Failed to open store", "error", err)
			os.Exit(1)
		}
		for i := range events {
			if err := st.SaveEvent(&events[i]); err != nil {
				slog.Error("Failed to save signal event", "error", err)
				os.Exit(1)
			}
		}
		runID, err := st.SaveRun(results, app.PositionSize, app.MaxPositions)
		if err != nil {
			slog.Error("Failed to save backtest run", "error", err)
			os.Exit(1)
		}
		slog.Info("Persisted backtest run", "runID", runID, "events", len(events))
	}
}
