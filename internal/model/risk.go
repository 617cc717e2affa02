package model

import (
	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// OrderRiskContext carries everything one risk evaluation needs. It is
// built fresh per call from a ledger snapshot and never persisted.
type OrderRiskContext struct {
	WalletID string
	Symbol   string
	Side     enum.Side

	Notional     decimal.Decimal
	WalletEquity decimal.Decimal

	OpenPositions           int
	WalletDailyPnLPct       decimal.Decimal
	GlobalDailyPnLPct       decimal.Decimal
	ConsecutiveLosingTrades int
}

// RiskDecision is the synchronous answer to one evaluation.
type RiskDecision struct {
	Action           enum.RiskAction
	ApprovedNotional decimal.Decimal
	Reason           string
}
