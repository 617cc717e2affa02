// Package capital owns all ledger mutation. It settles realized PnL,
// gates trade notionals against wallet floors, and runs the periodic
// money-moving policy (daily reset, auto-fee skim, profit split,
// fee-reserve cap sweep) on top of the ledger's atomic transfer
// primitive. Nothing here raises across its boundary; every operation
// clamps or skips with a logged reason.
package capital

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/ledger"
	"main/internal/model/enum"
	"main/internal/obs"
)

var hundred = decimal.NewFromInt(100)

// TransferJournal receives a copy of every transfer that moved funds.
// Implementations must not block the policy pass for long.
type TransferJournal interface {
	RecordTransfer(sourceID, targetID, reason string, res ledger.TransferResult)
}

// Engine wraps the ledger with policy state: per-day skim tracking and
// per-wallet profit baselines. One mutex serializes policy runs so the
// interval gate and the skim bookkeeping stay consistent.
type Engine struct {
	led *ledger.Ledger
	cfg Config

	mu           sync.Mutex
	skimmedToday map[string]decimal.Decimal
	baselines    map[string]decimal.Decimal
	lastCompound time.Time

	metrics *obs.Metrics
	journal TransferJournal
}

// NewEngine builds the capital flow engine. Profit baselines initialize
// to each source wallet's current (starting) balance.
func NewEngine(led *ledger.Ledger, cfg Config) *Engine {
	e := &Engine{
		led:          led,
		cfg:          cfg,
		skimmedToday: make(map[string]decimal.Decimal),
		baselines:    make(map[string]decimal.Decimal),
	}
	snap := led.Snapshot()
	for _, rule := range cfg.ProfitSplitRules {
		if _, ok := e.baselines[rule.SourceWalletID]; ok {
			continue
		}
		if v, ok := snap.Wallets[rule.SourceWalletID]; ok {
			e.baselines[rule.SourceWalletID] = v.Balance
		}
	}
	return e
}

// SetMetrics attaches optional counters. Nil is fine.
func (e *Engine) SetMetrics(m *obs.Metrics) { e.metrics = m }

// SetJournal attaches an optional transfer journal.
func (e *Engine) SetJournal(j TransferJournal) { e.journal = j }

// Ledger exposes the wrapped ledger for read-only snapshot consumers.
func (e *Engine) Ledger() *ledger.Ledger { return e.led }

// ApplyRealizedPnL settles a closed trade's result into its wallet.
// Unknown wallets are logged no-ops, never errors.
func (e *Engine) ApplyRealizedPnL(walletID string, pnl, fees decimal.Decimal) ledger.ApplyOutcome {
	out := e.led.ApplyPnL(walletID, pnl, fees)
	e.metrics.IncSettlement(out)
	return out
}

// EvaluateTradeRequest gates a proposed notional against the wallet's
// floor and risk budget. It fails closed: a breached floor or daily-loss
// cap approves nothing. The daily-loss figure only gates while now is
// still inside the wallet's accounting day; after a day rollover that
// the periodic reset has not caught up with yet, yesterday's loss does
// not block today's first trade.
func (e *Engine) EvaluateTradeRequest(walletID string, requested decimal.Decimal, now time.Time) (bool, decimal.Decimal, string) {
	w, ok := e.led.Wallet(walletID)
	if !ok {
		return false, decimal.Zero, fmt.Sprintf("unknown wallet %q", walletID)
	}
	if w.Balance.LessThanOrEqual(w.MinBalance) {
		return false, decimal.Zero, fmt.Sprintf(
			"balance %s at or below floor %s", w.Balance, w.MinBalance)
	}
	if w.MaxDailyLossPct.IsPositive() && now.UTC().Truncate(24*time.Hour).Equal(w.LastReset) {
		pct := w.DailyPnLPct()
		if pct.LessThanOrEqual(w.MaxDailyLossPct.Neg()) {
			return false, decimal.Zero, fmt.Sprintf(
				"daily pnl %s%% at or below -%s%%", pct.StringFixed(2), w.MaxDailyLossPct)
		}
	}

	maxNotional := w.Balance.Mul(w.MaxRiskPctPerTrade).Div(hundred)
	allowed := decimal.Min(requested, maxNotional)
	return true, allowed, fmt.Sprintf("allowed %s of requested %s (cap %s)", allowed, requested, maxNotional)
}

// Transfer moves value between wallets through the ledger primitive.
// Moved funds are journaled; skips only count in metrics.
func (e *Engine) Transfer(sourceID, targetID string, amount decimal.Decimal, reason string) ledger.TransferResult {
	res := e.led.Transfer(sourceID, targetID, amount, reason)
	e.metrics.IncTransfer(res.Skip)
	if e.journal != nil && res.Moved.IsPositive() {
		e.journal.RecordTransfer(sourceID, targetID, reason, res)
	}
	return res
}

// RunPeriodicTasks executes the policy pass: daily reset, compounding
// hook, auto-fee skim, profit split, then the fee-reserve cap sweep.
func (e *Engine) RunPeriodicTasks(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if reset := e.led.ResetDaily(now); len(reset) > 0 {
		for _, id := range reset {
			delete(e.skimmedToday, id)
		}
	}

	e.runCompounding(now)
	e.runAutoFeeSkim()
	e.runProfitSplit()
	e.runFeeCapSweep()
}

// runCompounding redistributes vault excess above its floor back into
// the trading wallets, interval-gated and capped per run.
func (e *Engine) runCompounding(now time.Time) {
	if !e.cfg.CompoundingEnabled || !e.cfg.CompoundPctFromVault.IsPositive() {
		return
	}
	if e.cfg.CompoundingInterval > 0 && now.Sub(e.lastCompound) < e.cfg.CompoundingInterval {
		return
	}

	snap := e.led.Snapshot()
	vault, ok := snap.FirstByRole(enum.RoleVault)
	if !ok {
		logs.Warnf("capital: compounding skipped, no vault wallet")
		return
	}
	e.lastCompound = now

	excess := vault.Balance.Sub(e.cfg.CompoundVaultMinBalance)
	if !excess.IsPositive() {
		return
	}
	total := excess.Mul(e.cfg.CompoundPctFromVault).Div(hundred)
	if e.cfg.MaxCompoundPerRun.IsPositive() {
		total = decimal.Min(total, e.cfg.MaxCompoundPerRun)
	}
	if !total.IsPositive() {
		return
	}

	weights := e.cfg.CompoundWeights
	if len(weights) == 0 {
		var targets []string
		for _, id := range snap.IDs {
			if id == vault.ID || !snap.Wallets[id].Role.IsTrading() {
				continue
			}
			targets = append(targets, id)
		}
		if len(targets) == 0 {
			return
		}
		weights = make(map[string]decimal.Decimal, len(targets))
		w := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(targets))))
		for _, id := range targets {
			weights[id] = w
		}
	}

	for _, id := range snap.IDs {
		w, ok := weights[id]
		if !ok || !w.IsPositive() {
			continue
		}
		amount := total.Mul(w)
		e.Transfer(vault.ID, id, amount, "compounding from vault")
	}
}
