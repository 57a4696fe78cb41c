package types

import "time"

// TradeRecord is one entry of the append-only trade log. It is created by the
// executor's result callback for every settled trade, successful or not.
type TradeRecord struct {
	ID             string
	Timestamp      time.Time
	Pair           Pair
	BuyVenue       string
	SellVenue      string
	TradeAmount    float64 // quote-asset amount committed to the buy leg
	BuyPrice       float64
	SellPrice      float64
	RealizedProfit float64 // quote-asset, negative on losses
	Success        bool
	Error          *TradeError // nil on success
}

// StatusSnapshot is a pure read of current engine state, safe to serve
// concurrently with trading.
type StatusSnapshot struct {
	Status         string        `json:"status"` // lifecycle label, e.g. "running"
	Running        bool          `json:"running"`
	Mode           string        `json:"mode"`
	TradingEnabled bool          `json:"trading_enabled"`
	PortfolioValue float64       `json:"portfolio_value"`
	TotalPnL       float64       `json:"total_pnl"`
	Uptime         string        `json:"uptime"`
	TradesExecuted int           `json:"trades_executed"`
	SuccessRatePct float64       `json:"success_rate_pct"`
	MinProfitPct   float64       `json:"min_profit_pct"`
	RecentTrades   []TradeRecord `json:"recent_trades"`
}

// ErrorReport is delivered to error subscribers for every failed cycle or
// trade, so the operator always sees why nothing traded.
type ErrorReport struct {
	Stage   string // "feed", "detect", "execute"
	Kind    ErrorKind
	Message string
	At      time.Time
}
