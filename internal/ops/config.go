// Package ops loads and validates the startup configuration. Every
// cross-reference (rule wallets, fee reserve, sweep target) is checked
// here so nothing downstream ever sees a dangling wallet id.
package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/capital"
	"main/internal/ledger"
	"main/internal/model/enum"
	"main/internal/position"
	"main/internal/risk"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Wallets []WalletConfig      `json:"wallets"`
	Risk    RiskConfig          `json:"risk"`
	Capital CapitalConfig       `json:"capital"`
	Exit    position.ExitConfig `json:"exit"`
	Runtime RuntimeConfig       `json:"runtime"`
	Store   StoreConfig         `json:"store"`
}

// WalletConfig defines one wallet entry.
type WalletConfig struct {
	ID                 string          `json:"id"`
	Role               string          `json:"role"`
	Chain              string          `json:"chain"`
	InitialBalance     decimal.Decimal `json:"initial_balance"`
	MinBalance         decimal.Decimal `json:"min_balance"`
	MaxRiskPctPerTrade decimal.Decimal `json:"max_risk_pct_per_trade"`
	MaxDailyLossPct    decimal.Decimal `json:"max_daily_loss_pct"`
	MaxOpenPositions   int             `json:"max_open_positions"`
	AllowOutflows      bool            `json:"allow_outflows"`
	IsFeeReserve       bool            `json:"is_fee_reserve"`
}

// RiskConfig defines the global thresholds and per-wallet overrides.
type RiskConfig struct {
	MaxGlobalDailyLossPct      decimal.Decimal              `json:"max_global_daily_loss_pct"`
	MaxConsecutiveLosingTrades int                          `json:"max_consecutive_losing_trades"`
	SafetyProfile              string                       `json:"safety_profile"`
	KillSwitchManualOnly       bool                         `json:"kill_switch_manual_only"`
	Wallets                    map[string]WalletLimitConfig `json:"wallets"`
}

// WalletLimitConfig overrides one wallet's risk limits.
type WalletLimitConfig struct {
	MaxPctBalancePerTrade decimal.Decimal `json:"max_pct_balance_per_trade"`
	MaxDailyLossPct       decimal.Decimal `json:"max_daily_loss_pct"`
	MaxOpenPositions      int             `json:"max_open_positions"`
	MaxNotionalPerAsset   decimal.Decimal `json:"max_notional_per_asset"`
}

// CapitalConfig defines the capital-flow policy.
type CapitalConfig struct {
	FeeReserveWalletID     string            `json:"fee_reserve_wallet_id"`
	AutoFeeMinPct          decimal.Decimal   `json:"auto_fee_min_pct"`
	AutoFeeMaxPct          decimal.Decimal   `json:"auto_fee_max_pct"`
	FeeReserveMinBuffer    decimal.Decimal   `json:"fee_reserve_min_buffer"`
	FeeReserveMaxEquityPct decimal.Decimal   `json:"fee_reserve_max_equity_pct"`
	FeeOverflowSweepTarget string            `json:"fee_overflow_sweep_target"`
	ProfitSplits           []ProfitSplitRule `json:"profit_splits"`

	CompoundingEnabled      bool                       `json:"compounding_enabled"`
	CompoundingIntervalMin  int                        `json:"compounding_interval_minutes"`
	CompoundPctFromVault    decimal.Decimal            `json:"compound_pct_from_vault"`
	CompoundVaultMinBalance decimal.Decimal            `json:"compound_vault_min_balance"`
	MaxCompoundPerRun       decimal.Decimal            `json:"max_compound_per_run"`
	CompoundWeights         map[string]decimal.Decimal `json:"compound_weights"`
}

// ProfitSplitRule defines one source-to-target profit route.
type ProfitSplitRule struct {
	Source          string          `json:"source"`
	Target          string          `json:"target"`
	TriggerPct      decimal.Decimal `json:"trigger_pct"`
	PercentOfProfit decimal.Decimal `json:"percent_of_profit"`
}

// RuntimeConfig captures scheduler and snapshot settings.
type RuntimeConfig struct {
	SnapshotPath  string `json:"snapshot_path"`
	QueueCapacity int    `json:"queue_capacity"`
}

// StoreConfig configures the optional Postgres trade journal.
type StoreConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Wallets []ledger.WalletConfig
	Risk    risk.Config
	Capital capital.Config
	Exit    position.ExitConfig
	Runtime RuntimeConfig
	Store   StoreConfig
}

// Load reads a JSON config file and resolves it. Any malformed value or
// dangling wallet reference fails here, before anything runs.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve validates a decoded FileConfig and builds the typed configs.
func Resolve(cfg FileConfig) (Loaded, error) {
	if len(cfg.Wallets) == 0 {
		return Loaded{}, fmt.Errorf("no wallets configured")
	}

	known := make(map[string]struct{}, len(cfg.Wallets))
	wallets := make([]ledger.WalletConfig, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		role, ok := enum.ParseWalletRole(w.Role)
		if !ok {
			return Loaded{}, fmt.Errorf("wallet %s: unknown role %q", w.ID, w.Role)
		}
		if w.MaxRiskPctPerTrade.IsNegative() || w.MaxDailyLossPct.IsNegative() || w.MaxOpenPositions < 0 {
			return Loaded{}, fmt.Errorf("wallet %s: negative limit", w.ID)
		}
		wallets = append(wallets, ledger.WalletConfig{
			ID:                 w.ID,
			Role:               role,
			Chain:              w.Chain,
			InitialBalance:     w.InitialBalance,
			MinBalance:         w.MinBalance,
			MaxRiskPctPerTrade: w.MaxRiskPctPerTrade,
			MaxDailyLossPct:    w.MaxDailyLossPct,
			MaxOpenPositions:   w.MaxOpenPositions,
			AllowOutflows:      w.AllowOutflows,
			IsFeeReserve:       w.IsFeeReserve,
		})
		known[w.ID] = struct{}{}
	}

	riskCfg, err := resolveRisk(cfg.Risk, known)
	if err != nil {
		return Loaded{}, err
	}
	capitalCfg, err := resolveCapital(cfg.Capital, known)
	if err != nil {
		return Loaded{}, err
	}
	if err := validateExit(cfg.Exit); err != nil {
		return Loaded{}, err
	}

	runtime := cfg.Runtime
	if runtime.QueueCapacity <= 0 {
		runtime.QueueCapacity = 1024
	}

	return Loaded{
		Wallets: wallets,
		Risk:    riskCfg,
		Capital: capitalCfg,
		Exit:    cfg.Exit,
		Runtime: runtime,
		Store:   cfg.Store,
	}, nil
}

func resolveRisk(cfg RiskConfig, known map[string]struct{}) (risk.Config, error) {
	if cfg.MaxGlobalDailyLossPct.IsNegative() {
		return risk.Config{}, fmt.Errorf("risk: max_global_daily_loss_pct must be >= 0")
	}
	if cfg.MaxConsecutiveLosingTrades < 0 {
		return risk.Config{}, fmt.Errorf("risk: max_consecutive_losing_trades must be >= 0")
	}
	limits := make(map[string]risk.WalletLimit, len(cfg.Wallets))
	for id, l := range cfg.Wallets {
		if _, ok := known[id]; !ok {
			return risk.Config{}, fmt.Errorf("risk: limit references unknown wallet %q", id)
		}
		if l.MaxPctBalancePerTrade.IsNegative() || l.MaxDailyLossPct.IsNegative() ||
			l.MaxNotionalPerAsset.IsNegative() || l.MaxOpenPositions < 0 {
			return risk.Config{}, fmt.Errorf("risk: negative limit for wallet %q", id)
		}
		limits[id] = risk.WalletLimit{
			MaxPctBalancePerTrade: l.MaxPctBalancePerTrade,
			MaxDailyLossPct:       l.MaxDailyLossPct,
			MaxOpenPositions:      l.MaxOpenPositions,
			MaxNotionalPerAsset:   l.MaxNotionalPerAsset,
		}
	}
	return risk.Config{
		MaxGlobalDailyLossPct:      cfg.MaxGlobalDailyLossPct,
		MaxConsecutiveLosingTrades: cfg.MaxConsecutiveLosingTrades,
		SafetyProfile:              enum.ParseSafetyProfile(cfg.SafetyProfile),
		KillSwitchManualOnly:       cfg.KillSwitchManualOnly,
		Wallets:                    limits,
	}, nil
}

var hundred = decimal.NewFromInt(100)

func resolveCapital(cfg CapitalConfig, known map[string]struct{}) (capital.Config, error) {
	if cfg.AutoFeeMinPct.IsNegative() || cfg.AutoFeeMaxPct.GreaterThan(hundred) ||
		cfg.AutoFeeMinPct.GreaterThan(cfg.AutoFeeMaxPct) {
		return capital.Config{}, fmt.Errorf("capital: auto fee pct range [%s, %s] invalid",
			cfg.AutoFeeMinPct, cfg.AutoFeeMaxPct)
	}
	if cfg.FeeReserveMinBuffer.IsNegative() || cfg.FeeReserveMaxEquityPct.IsNegative() {
		return capital.Config{}, fmt.Errorf("capital: fee reserve buffer and cap must be >= 0")
	}
	if cfg.FeeReserveWalletID != "" {
		if _, ok := known[cfg.FeeReserveWalletID]; !ok {
			return capital.Config{}, fmt.Errorf("capital: fee reserve references unknown wallet %q", cfg.FeeReserveWalletID)
		}
	}
	if cfg.FeeOverflowSweepTarget != "" {
		if _, ok := known[cfg.FeeOverflowSweepTarget]; !ok {
			return capital.Config{}, fmt.Errorf("capital: sweep target references unknown wallet %q", cfg.FeeOverflowSweepTarget)
		}
	}

	rules := make([]capital.ProfitSplitRule, 0, len(cfg.ProfitSplits))
	for i, r := range cfg.ProfitSplits {
		if _, ok := known[r.Source]; !ok {
			return capital.Config{}, fmt.Errorf("capital: split rule %d references unknown source %q", i, r.Source)
		}
		if _, ok := known[r.Target]; !ok {
			return capital.Config{}, fmt.Errorf("capital: split rule %d references unknown target %q", i, r.Target)
		}
		if r.Source == r.Target {
			return capital.Config{}, fmt.Errorf("capital: split rule %d routes wallet %q to itself", i, r.Source)
		}
		if r.TriggerPct.IsNegative() || r.PercentOfProfit.IsNegative() {
			return capital.Config{}, fmt.Errorf("capital: split rule %d has a negative percentage", i)
		}
		rules = append(rules, capital.ProfitSplitRule{
			SourceWalletID:  r.Source,
			TargetWalletID:  r.Target,
			TriggerPct:      r.TriggerPct,
			PercentOfProfit: r.PercentOfProfit,
		})
	}

	if cfg.CompoundPctFromVault.IsNegative() || cfg.CompoundPctFromVault.GreaterThan(hundred) {
		return capital.Config{}, fmt.Errorf("capital: compound_pct_from_vault %s out of [0, 100]", cfg.CompoundPctFromVault)
	}
	for id, w := range cfg.CompoundWeights {
		if _, ok := known[id]; !ok {
			return capital.Config{}, fmt.Errorf("capital: compound weight references unknown wallet %q", id)
		}
		if w.IsNegative() {
			return capital.Config{}, fmt.Errorf("capital: negative compound weight for wallet %q", id)
		}
	}

	return capital.Config{
		FeeReserveWalletID:     cfg.FeeReserveWalletID,
		AutoFeeMinPct:          cfg.AutoFeeMinPct,
		AutoFeeMaxPct:          cfg.AutoFeeMaxPct,
		FeeReserveMinBuffer:    cfg.FeeReserveMinBuffer,
		FeeReserveMaxEquityPct: cfg.FeeReserveMaxEquityPct,
		FeeOverflowSweepTarget: cfg.FeeOverflowSweepTarget,
		ProfitSplitRules:       rules,

		CompoundingEnabled:      cfg.CompoundingEnabled,
		CompoundingInterval:     time.Duration(cfg.CompoundingIntervalMin) * time.Minute,
		CompoundPctFromVault:    cfg.CompoundPctFromVault,
		CompoundVaultMinBalance: cfg.CompoundVaultMinBalance,
		MaxCompoundPerRun:       cfg.MaxCompoundPerRun,
		CompoundWeights:         cfg.CompoundWeights,
	}, nil
}

func validateExit(cfg position.ExitConfig) error {
	for name, v := range map[string]decimal.Decimal{
		"tp1_pct":      cfg.TP1Pct,
		"tp2_pct":      cfg.TP2Pct,
		"tp1_size_pct": cfg.TP1SizePct,
		"tp2_size_pct": cfg.TP2SizePct,
		"sl_pct":       cfg.SLPct,
	} {
		if !v.IsPositive() {
			return fmt.Errorf("exit: %s must be > 0", name)
		}
	}
	one := decimal.NewFromInt(1)
	if cfg.TP1SizePct.GreaterThan(one) || cfg.TP2SizePct.GreaterThan(one) {
		return fmt.Errorf("exit: size fractions must be <= 1")
	}
	if cfg.SLPct.GreaterThanOrEqual(one) {
		return fmt.Errorf("exit: sl_pct must be < 1")
	}
	if cfg.TrailingActivationPct.IsNegative() || cfg.TrailingPct.IsNegative() {
		return fmt.Errorf("exit: trailing percentages must be >= 0")
	}
	return nil
}
