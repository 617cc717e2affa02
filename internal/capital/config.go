package capital

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitSplitRule routes a share of a wallet's profit above its tracked
// baseline to a target wallet once the profit percentage clears the
// trigger. Rules are immutable after load.
type ProfitSplitRule struct {
	SourceWalletID  string
	TargetWalletID  string
	TriggerPct      decimal.Decimal
	PercentOfProfit decimal.Decimal
}

// Config is the capital-flow policy, immutable after load.
type Config struct {
	// FeeReserveWalletID receives auto-fee skims. Empty falls back to the
	// first wallet with the AUTO_FEES role.
	FeeReserveWalletID string

	// Auto-fee skim targets the midpoint of [AutoFeeMinPct, AutoFeeMaxPct]
	// of each wallet's positive realized PnL today.
	AutoFeeMinPct decimal.Decimal
	AutoFeeMaxPct decimal.Decimal

	// The fee reserve keeps at least FeeReserveMinBuffer; above
	// FeeReserveMaxEquityPct of total equity the excess is swept out.
	FeeReserveMinBuffer    decimal.Decimal
	FeeReserveMaxEquityPct decimal.Decimal

	// FeeOverflowSweepTarget takes the sweep. Empty falls back to the
	// first VAULT-role wallet; without either the sweep is a no-op.
	FeeOverflowSweepTarget string

	ProfitSplitRules []ProfitSplitRule

	// Compounding redistributes part of the vault's balance above
	// CompoundVaultMinBalance back into the trading wallets, at most once
	// per CompoundingInterval. Empty CompoundWeights distributes uniformly
	// across trading-role wallets.
	CompoundingEnabled      bool
	CompoundingInterval     time.Duration
	CompoundPctFromVault    decimal.Decimal
	CompoundVaultMinBalance decimal.Decimal
	MaxCompoundPerRun       decimal.Decimal
	CompoundWeights         map[string]decimal.Decimal
}

// AutoFeeTargetPct is the effective skim percentage.
func (c Config) AutoFeeTargetPct() decimal.Decimal {
	return c.AutoFeeMinPct.Add(c.AutoFeeMaxPct).Div(decimal.NewFromInt(2))
}
