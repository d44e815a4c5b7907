// Package store persists detection events and backtest results to Postgres.
// It is entirely optional: the engines never depend on it.
package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quantkit/sigbench/internal/backtest"
	"github.com/quantkit/sigbench/internal/signal"
)

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&SignalEvent{}, &BacktestRun{}, &BacktestTrade{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm connection, primarily for tests.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveEvent persists one detection-engine lifecycle event.
func (s *Store) SaveEvent(ev *signal.Event) error {
	if ev == nil {
		return errors.New("event cannot be nil")
	}
	row := SignalEvent{
		Action:      ev.Action,
		Reason:      ev.Reason,
		SignalID:    ev.Signal.ID,
		Symbol:      ev.Signal.Symbol,
		Direction:   string(ev.Signal.Direction),
		Timeframe:   ev.Signal.Timeframe,
		EntryPrice:  ev.Signal.EntryPrice.InexactFloat64(),
		StopLoss:    ev.Signal.StopLoss.InexactFloat64(),
		TakeProfit:  ev.Signal.TakeProfit.InexactFloat64(),
		Confidence:  ev.Signal.Confidence,
		Description: ev.Signal.Description,
		SignalTime:  ev.Signal.UpdatedAt,
	}
	return s.db.Create(&row).Error
}

// SaveRun persists a backtest run summary together with its closed trades.
func (s *Store) SaveRun(results *backtest.Results, positionSize float64, maxPositions int) (uint, error) {
	if results == nil {
		return 0, errors.New("results cannot be nil")
	}
	m := results.Calculate()

	run := BacktestRun{
		InitialCapital:     results.InitialCapital.InexactFloat64(),
		PositionSize:       positionSize,
		MaxPositions:       maxPositions,
		TotalTrades:        m.TotalTrades,
		WinningTrades:      m.WinningTrades,
		LosingTrades:       m.LosingTrades,
		WinRate:            m.WinRate,
		TotalPnL:           m.TotalPnL.InexactFloat64(),
		ROIPercent:         m.ROIPercent,
		MaxDrawdown:        m.MaxDrawdown.InexactFloat64(),
		MaxDrawdownPercent: m.MaxDrawdownPercent,
		ProfitFactor:       m.ProfitFactor,
		SharpeRatio:        m.SharpeRatio,
	}
	for _, t := range results.Trades {
		run.Trades = append(run.Trades, BacktestTrade{
			Symbol:       t.Symbol,
			Direction:    string(t.Direction),
			EntryPrice:   t.EntryPrice.InexactFloat64(),
			ExitPrice:    t.ExitPrice.InexactFloat64(),
			PositionSize: t.PositionSize.InexactFloat64(),
			PnL:          t.PnL.InexactFloat64(),
			PnLPercent:   t.PnLPercent.InexactFloat64(),
			Confidence:   t.Confidence,
			CloseReason:  t.CloseReason,
			EntryTime:    t.EntryTime,
			ExitTime:     t.ExitTime,
		})
	}

	if err := s.db.Create(&run).Error; err != nil {
		return 0, fmt.Errorf("failed to save backtest run: %w", err)
	}
	return run.ID, nil
}

// RecentEvents returns the newest persisted events for a symbol.
func (s *Store) RecentEvents(symbol string, limit int) ([]SignalEvent, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	var events []SignalEvent
	err := s.db.Where("symbol = ?", symbol).
		Order("signal_time DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
