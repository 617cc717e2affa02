package risk

import (
	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// WalletLimit overrides the ledger-configured limits for one wallet and
// adds the absolute per-asset notional cap.
type WalletLimit struct {
	MaxPctBalancePerTrade decimal.Decimal
	MaxDailyLossPct       decimal.Decimal
	MaxOpenPositions      int
	MaxNotionalPerAsset   decimal.Decimal
}

// Config holds the engine-wide thresholds.
type Config struct {
	MaxGlobalDailyLossPct      decimal.Decimal
	MaxConsecutiveLosingTrades int
	SafetyProfile              enum.SafetyProfile

	// KillSwitchManualOnly keeps the kill switch off the EJECT path;
	// only operator trips halt trading.
	KillSwitchManualOnly bool

	// Wallets maps wallet id to a limit override. Wallets absent here use
	// the limits carried on their ledger configuration.
	Wallets map[string]WalletLimit
}

// scaled returns a copy with every percentage limit multiplied by the
// safety-profile factor. Counters and absolute caps stay untouched.
func (c Config) scaled() Config {
	factor := c.SafetyProfile.Factor()
	if factor.Equal(decimal.NewFromInt(1)) {
		return c
	}

	out := c
	out.MaxGlobalDailyLossPct = c.MaxGlobalDailyLossPct.Mul(factor)
	out.Wallets = make(map[string]WalletLimit, len(c.Wallets))
	for id, limit := range c.Wallets {
		limit.MaxPctBalancePerTrade = limit.MaxPctBalancePerTrade.Mul(factor)
		limit.MaxDailyLossPct = limit.MaxDailyLossPct.Mul(factor)
		out.Wallets[id] = limit
	}
	return out
}
