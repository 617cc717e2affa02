package capital

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/ledger"
	"main/internal/model/enum"
)

// resolveFeeReserve picks the skim destination: the configured id first,
// then the first AUTO_FEES-role wallet.
func (e *Engine) resolveFeeReserve(snap ledger.Snapshot) (string, bool) {
	if e.cfg.FeeReserveWalletID != "" {
		if _, ok := snap.Wallets[e.cfg.FeeReserveWalletID]; ok {
			return e.cfg.FeeReserveWalletID, true
		}
	}
	if v, ok := snap.FirstByRole(enum.RoleAutoFees); ok {
		return v.ID, true
	}
	return "", false
}

// resolveSweepTarget picks where fee-reserve overflow goes: configured id
// first, then the first VAULT-role wallet.
func (e *Engine) resolveSweepTarget(snap ledger.Snapshot) (string, bool) {
	if e.cfg.FeeOverflowSweepTarget != "" {
		if _, ok := snap.Wallets[e.cfg.FeeOverflowSweepTarget]; ok {
			return e.cfg.FeeOverflowSweepTarget, true
		}
	}
	if v, ok := snap.FirstByRole(enum.RoleVault); ok {
		return v.ID, true
	}
	return "", false
}

// runAutoFeeSkim moves the target percentage of each trading wallet's
// positive realized PnL today into the fee reserve, tracking how much has
// already been skimmed per wallet per day. If realized PnL later shrinks
// below what was already skimmed, the remainder floors at zero; there is
// no claw-back.
func (e *Engine) runAutoFeeSkim() {
	targetPct := e.cfg.AutoFeeTargetPct()
	if !targetPct.IsPositive() {
		return
	}

	snap := e.led.Snapshot()
	reserveID, ok := e.resolveFeeReserve(snap)
	if !ok {
		logs.Warnf("capital: auto-fee skim skipped, no fee reserve wallet")
		return
	}

	for _, id := range snap.IDs {
		w := snap.Wallets[id]
		if id == reserveID || w.IsFeeReserve || !w.AllowOutflows {
			continue
		}
		if !w.RealizedPnLToday.IsPositive() {
			continue
		}

		ideal := w.RealizedPnLToday.Mul(targetPct).Div(hundred)
		already := e.skimmedToday[id]
		remaining := ideal.Sub(already)
		if !remaining.IsPositive() {
			continue
		}

		res := e.Transfer(id, reserveID, remaining, "auto-fee skim")
		if res.Moved.IsPositive() {
			e.skimmedToday[id] = already.Add(res.Moved)
		}
	}
}

// runProfitSplit distributes profit above each source wallet's baseline
// according to the eligible rules. When the eligible percentages sum over
// 100 they scale down proportionally. The baseline advances to the
// balance at the moment of computation after any successful transfer and
// never retreats.
func (e *Engine) runProfitSplit() {
	if len(e.cfg.ProfitSplitRules) == 0 {
		return
	}

	snap := e.led.Snapshot()
	rulesBySource := make(map[string][]ProfitSplitRule)
	for _, rule := range e.cfg.ProfitSplitRules {
		rulesBySource[rule.SourceWalletID] = append(rulesBySource[rule.SourceWalletID], rule)
	}

	for _, sourceID := range snap.IDs {
		rules := rulesBySource[sourceID]
		if len(rules) == 0 {
			continue
		}
		source := snap.Wallets[sourceID]

		baseline, ok := e.baselines[sourceID]
		if !ok || !baseline.IsPositive() {
			continue
		}
		profit := source.Balance.Sub(baseline)
		if !profit.IsPositive() {
			continue
		}
		profitPct := profit.Div(baseline).Mul(hundred)

		var eligible []ProfitSplitRule
		sumPct := decimal.Zero
		for _, rule := range rules {
			if rule.TriggerPct.LessThanOrEqual(profitPct) {
				eligible = append(eligible, rule)
				sumPct = sumPct.Add(rule.PercentOfProfit)
			}
		}
		if len(eligible) == 0 {
			continue
		}

		// over-subscribed rules share the profit proportionally
		denominator := hundred
		if sumPct.GreaterThan(hundred) {
			denominator = sumPct
		}

		moved := false
		for _, rule := range eligible {
			amount := profit.Mul(rule.PercentOfProfit).Div(denominator)
			res := e.Transfer(sourceID, rule.TargetWalletID, amount, "profit split")
			if res.Moved.IsPositive() {
				moved = true
			}
		}
		if moved && source.Balance.GreaterThan(baseline) {
			e.baselines[sourceID] = source.Balance
			logs.Infof("capital: profit baseline for %s advanced to %s", sourceID, source.Balance)
		}
	}
}

// runFeeCapSweep keeps the fee reserve at or below its share of total
// equity, sweeping the excess into the configured target. The reserve
// never drops below its minimum buffer.
func (e *Engine) runFeeCapSweep() {
	maxPct := e.cfg.FeeReserveMaxEquityPct
	if !maxPct.IsPositive() {
		return
	}

	snap := e.led.Snapshot()
	reserveID, ok := e.resolveFeeReserve(snap)
	if !ok {
		return
	}
	reserve := snap.Wallets[reserveID]

	capAmount := snap.TotalEquity().Mul(maxPct).Div(hundred)
	floor := decimal.Max(capAmount, e.cfg.FeeReserveMinBuffer)
	excess := reserve.Balance.Sub(floor)
	if !excess.IsPositive() {
		return
	}

	targetID, ok := e.resolveSweepTarget(snap)
	if !ok {
		logs.Warnf("capital: fee reserve %s over cap by %s but no sweep target configured",
			reserveID, excess)
		return
	}
	e.Transfer(reserveID, targetID, excess, "fee-reserve cap sweep")
}
