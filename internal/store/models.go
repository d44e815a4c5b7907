package store

import "time"

// SignalEvent is a persisted detection-engine lifecycle event.
type SignalEvent struct {
	ID     uint   `gorm:"primaryKey"`
	Action string `gorm:"index;not null"`
	Reason string

	SignalID   string  `gorm:"index;not null"`
	Symbol     string  `gorm:"index;not null"`
	Direction  string  `gorm:"not null"`
	Timeframe  string  `gorm:"not null"`
	EntryPrice float64 `gorm:"type:decimal(20,8);not null"`
	StopLoss   float64 `gorm:"type:decimal(20,8);not null"`
	TakeProfit float64 `gorm:"type:decimal(20,8);not null"`
	Confidence float64 `gorm:"type:decimal(20,8);not null"`

	Description string
	SignalTime  time.Time `gorm:"index;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BacktestRun is the persisted summary of one backtest invocation.
type BacktestRun struct {
	ID uint `gorm:"primaryKey"`

	InitialCapital float64 `gorm:"type:decimal(20,8);not null"`
	PositionSize   float64 `gorm:"type:decimal(20,8);not null"`
	MaxPositions   int     `gorm:"not null"`

	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64 `gorm:"type:decimal(20,8)"`
	TotalPnL           float64 `gorm:"type:decimal(20,8)"`
	ROIPercent         float64 `gorm:"type:decimal(20,8)"`
	MaxDrawdown        float64 `gorm:"type:decimal(20,8)"`
	MaxDrawdownPercent float64 `gorm:"type:decimal(20,8)"`
	ProfitFactor       float64 `gorm:"type:decimal(20,8)"`
	SharpeRatio        float64 `gorm:"type:decimal(20,8)"`

	Trades []BacktestTrade `gorm:"foreignKey:RunID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BacktestTrade is a persisted closed-trade record belonging to a run.
type BacktestTrade struct {
	ID    uint `gorm:"primaryKey"`
	RunID uint `gorm:"index;not null"`

	Symbol       string  `gorm:"index;not null"`
	Direction    string  `gorm:"not null"`
	EntryPrice   float64 `gorm:"type:decimal(20,8);not null"`
	ExitPrice    float64 `gorm:"type:decimal(20,8);not null"`
	PositionSize float64 `gorm:"type:decimal(20,8);not null"`
	PnL          float64 `gorm:"type:decimal(20,8)"`
	PnLPercent   float64 `gorm:"type:decimal(20,8)"`
	Confidence   float64 `gorm:"type:decimal(20,8)"`
	CloseReason  string  `gorm:"not null"`

	EntryTime time.Time `gorm:"index;not null"`
	ExitTime  time.Time `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
