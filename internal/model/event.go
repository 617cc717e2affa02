package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// PositionEvent is one lifecycle event emitted by the position state
// machine. The settlement path consumes each event exactly once.
type PositionEvent struct {
	PositionID string
	WalletID   string
	Symbol     string
	Kind       enum.EventKind

	Price     decimal.Decimal
	CloseQty  decimal.Decimal
	PnL       decimal.Decimal
	Fees      decimal.Decimal
	Timestamp time.Time
}

// PositionID derives the book key for a wallet/symbol pair. At most one
// open position exists per pair, so the pair is the identity.
func PositionID(walletID, symbol string) string {
	return walletID + ":" + symbol
}
