package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// TradeRequest is what the strategy layer proposes for execution.
type TradeRequest struct {
	WalletID  string
	Symbol    string
	Side      enum.Side
	Notional  decimal.Decimal
	Timestamp time.Time
}

// PriceTick is one market data update from the feed.
type PriceTick struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

// ExecutedTrade describes a fill reported back by the execution layer. The
// position book opens a position from it.
type ExecutedTrade struct {
	WalletID   string
	Symbol     string
	Side       enum.Side
	EntryPrice decimal.Decimal
	Size       decimal.Decimal
	Timestamp  time.Time
}
