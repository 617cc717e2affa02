// Package risk decides whether a proposed order may execute. The engine
// is stateless per call except for its circuit-breaker flags; it reads a
// ledger snapshot to gate the order and returns a decision value, never
// an error.
package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// Engine evaluates orders against wallet and global thresholds. The
// circuit breaker latches: after one EJECT every evaluation returns EJECT
// until Reset.
type Engine struct {
	cfg Config
	led *ledger.Ledger

	mu               sync.Mutex
	ejected          bool
	softStop         bool
	hardStop         bool
	dailyDrawdownPct decimal.Decimal
	lastReason       string
}

// NewEngine applies the safety-profile scaling once and binds the ledger.
func NewEngine(cfg Config, led *ledger.Ledger) *Engine {
	scaled := cfg.scaled()
	logs.Infof("risk: engine ready, profile=%s max_global_daily_loss_pct=%s max_losing_streak=%d",
		scaled.SafetyProfile, scaled.MaxGlobalDailyLossPct, scaled.MaxConsecutiveLosingTrades)
	return &Engine{cfg: scaled, led: led}
}

// EvaluateOrder returns the decision for one proposed order. Checks run
// in a fixed priority order and the first breach decides; at most one
// ADJUST path applies per evaluation.
func (e *Engine) EvaluateOrder(ctx model.OrderRiskContext) model.RiskDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.updateDrawdown(ctx.GlobalDailyPnLPct)

	if e.ejected {
		return eject("circuit breaker active: " + e.lastReason)
	}

	if e.cfg.MaxGlobalDailyLossPct.IsPositive() &&
		ctx.GlobalDailyPnLPct.LessThanOrEqual(e.cfg.MaxGlobalDailyLossPct.Neg()) {
		reason := fmt.Sprintf("global daily loss %s%% <= -%s%%",
			ctx.GlobalDailyPnLPct.StringFixed(2), e.cfg.MaxGlobalDailyLossPct)
		e.ejected = true
		e.hardStop = true
		e.lastReason = reason
		logs.Warnf("risk: EJECT: %s", reason)
		return eject(reason)
	}

	limit, walletView, ok := e.walletLimit(ctx.WalletID)
	if !ok {
		return reject(fmt.Sprintf("unknown wallet %q", ctx.WalletID))
	}

	if walletView.Balance.LessThanOrEqual(walletView.MinBalance) {
		return reject(fmt.Sprintf("wallet %s balance %s at or below floor %s",
			ctx.WalletID, walletView.Balance, walletView.MinBalance))
	}
	if limit.MaxDailyLossPct.IsPositive() &&
		ctx.WalletDailyPnLPct.LessThanOrEqual(limit.MaxDailyLossPct.Neg()) {
		return reject(fmt.Sprintf("wallet %s daily loss %s%% <= -%s%%",
			ctx.WalletID, ctx.WalletDailyPnLPct.StringFixed(2), limit.MaxDailyLossPct))
	}
	if limit.MaxOpenPositions > 0 && ctx.OpenPositions >= limit.MaxOpenPositions {
		return reject(fmt.Sprintf("wallet %s open positions %d >= max %d",
			ctx.WalletID, ctx.OpenPositions, limit.MaxOpenPositions))
	}

	if ctx.WalletEquity.IsPositive() && limit.MaxPctBalancePerTrade.IsPositive() {
		maxNotional := ctx.WalletEquity.Mul(limit.MaxPctBalancePerTrade).Div(hundred)
		if ctx.Notional.GreaterThan(maxNotional) {
			return adjust(maxNotional, fmt.Sprintf(
				"notional %s > %s%% of equity %s, capped to %s",
				ctx.Notional, limit.MaxPctBalancePerTrade, ctx.WalletEquity, maxNotional))
		}
	}
	if limit.MaxNotionalPerAsset.IsPositive() && ctx.Notional.GreaterThan(limit.MaxNotionalPerAsset) {
		return adjust(limit.MaxNotionalPerAsset, fmt.Sprintf(
			"notional %s > asset cap %s", ctx.Notional, limit.MaxNotionalPerAsset))
	}
	if e.cfg.MaxConsecutiveLosingTrades > 0 &&
		ctx.ConsecutiveLosingTrades >= e.cfg.MaxConsecutiveLosingTrades {
		return adjust(ctx.Notional.Mul(half), fmt.Sprintf(
			"losing streak %d >= %d, size halved",
			ctx.ConsecutiveLosingTrades, e.cfg.MaxConsecutiveLosingTrades))
	}

	return model.RiskDecision{
		Action:           enum.RiskAccept,
		ApprovedNotional: ctx.Notional,
		Reason:           "ok",
	}
}

// Reset clears the latched circuit breaker. Explicit operator action.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ejected {
		logs.Warnf("risk: circuit breaker reset (was: %s)", e.lastReason)
	}
	e.ejected = false
	e.hardStop = false
	e.lastReason = ""
}

// DailyDrawdownPct is today's global drawdown as a non-negative percent.
func (e *Engine) DailyDrawdownPct() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dailyDrawdownPct
}

// SoftStopActive reports the warning zone: drawdown at or past half the
// global limit without a hard stop.
func (e *Engine) SoftStopActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.softStop
}

// HardStopActive reports the latched (or threshold-breached) hard stop.
func (e *Engine) HardStopActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hardStop
}

// walletLimit resolves the effective limits for a wallet: the config
// override when present, otherwise the limits carried on the ledger
// wallet, scaled by the safety profile.
func (e *Engine) walletLimit(walletID string) (WalletLimit, ledger.WalletView, bool) {
	view, ok := e.led.Wallet(walletID)
	if !ok {
		return WalletLimit{}, ledger.WalletView{}, false
	}
	if limit, ok := e.cfg.Wallets[walletID]; ok {
		return limit, view, true
	}
	factor := e.cfg.SafetyProfile.Factor()
	return WalletLimit{
		MaxPctBalancePerTrade: view.MaxRiskPctPerTrade.Mul(factor),
		MaxDailyLossPct:       view.MaxDailyLossPct.Mul(factor),
		MaxOpenPositions:      view.MaxOpenPositions,
	}, view, true
}

// updateDrawdown maintains the observability flags from the latest
// global PnL figure. Soft stop arms at half the configured limit.
func (e *Engine) updateDrawdown(globalDailyPnLPct decimal.Decimal) {
	dd := decimal.Zero
	if globalDailyPnLPct.IsNegative() {
		dd = globalDailyPnLPct.Neg()
	}
	e.dailyDrawdownPct = dd

	maxLoss := e.cfg.MaxGlobalDailyLossPct
	if !maxLoss.IsPositive() {
		e.softStop = false
		e.hardStop = e.ejected
		return
	}
	e.hardStop = e.ejected || dd.GreaterThanOrEqual(maxLoss)
	e.softStop = !e.hardStop && dd.GreaterThanOrEqual(maxLoss.Mul(half))
}

func eject(reason string) model.RiskDecision {
	return model.RiskDecision{
		Action:           enum.RiskEject,
		ApprovedNotional: decimal.Zero,
		Reason:           reason,
	}
}

func reject(reason string) model.RiskDecision {
	logs.Warnf("risk: REJECT: %s", reason)
	return model.RiskDecision{
		Action:           enum.RiskReject,
		ApprovedNotional: decimal.Zero,
		Reason:           reason,
	}
}

func adjust(notional decimal.Decimal, reason string) model.RiskDecision {
	logs.Warnf("risk: ADJUST: %s", reason)
	return model.RiskDecision{
		Action:           enum.RiskAdjust,
		ApprovedNotional: notional,
		Reason:           reason,
	}
}
