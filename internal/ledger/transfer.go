package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// SkipReason explains why a transfer moved nothing. Transfers never fail;
// they clamp or skip, and the reason stays attributable.
type SkipReason uint8

const (
	SkipNone SkipReason = iota
	SkipSameWallet
	SkipUnknownWallet
	SkipOutflowsDisabled
	SkipNoSurplus
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipSameWallet:
		return "same-wallet"
	case SkipUnknownWallet:
		return "unknown-wallet"
	case SkipOutflowsDisabled:
		return "outflows-disabled"
	case SkipNoSurplus:
		return "no-surplus"
	default:
		return "unknown"
	}
}

// TransferResult reports what a transfer actually did.
type TransferResult struct {
	Moved         decimal.Decimal
	SourceBalance decimal.Decimal
	TargetBalance decimal.Decimal
	Skip          SkipReason
}

// Transfer moves value between two wallets atomically. It is the only
// primitive that moves value; every policy is expressed through it.
//
// The amount is clamped to the source's surplus above its configured
// floor, so a transfer can never pull an outflow-enabled wallet below its
// min balance. Moving nothing is a skip, not an error.
func (l *Ledger) Transfer(sourceID, targetID string, amount decimal.Decimal, reason string) TransferResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sourceID == targetID {
		return l.skipTransfer(sourceID, targetID, reason, SkipSameWallet)
	}
	src, ok := l.wallets[sourceID]
	if !ok {
		return l.skipTransfer(sourceID, targetID, reason, SkipUnknownWallet)
	}
	dst, ok := l.wallets[targetID]
	if !ok {
		return l.skipTransfer(sourceID, targetID, reason, SkipUnknownWallet)
	}
	if !src.cfg.AllowOutflows {
		return l.skipTransfer(sourceID, targetID, reason, SkipOutflowsDisabled)
	}

	surplus := src.balance.Sub(src.cfg.MinBalance)
	if !surplus.IsPositive() || !amount.IsPositive() {
		return l.skipTransfer(sourceID, targetID, reason, SkipNoSurplus)
	}

	moved := decimal.Min(amount, surplus)
	src.balance = src.balance.Sub(moved)
	dst.balance = dst.balance.Add(moved)

	logs.Infof("ledger: transfer %s -> %s moved=%s reason=%q (source=%s target=%s)",
		sourceID, targetID, moved, reason, src.balance, dst.balance)
	return TransferResult{
		Moved:         moved,
		SourceBalance: src.balance,
		TargetBalance: dst.balance,
	}
}

func (l *Ledger) skipTransfer(sourceID, targetID, reason string, skip SkipReason) TransferResult {
	logs.Warnf("ledger: transfer %s -> %s skipped (%s) reason=%q",
		sourceID, targetID, skip, reason)
	res := TransferResult{Skip: skip}
	if src, ok := l.wallets[sourceID]; ok {
		res.SourceBalance = src.balance
	}
	if dst, ok := l.wallets[targetID]; ok {
		res.TargetBalance = dst.balance
	}
	return res
}
