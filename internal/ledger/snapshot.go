package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

var hundred = decimal.NewFromInt(100)

// WalletView is a read-only copy of one wallet's state.
type WalletView struct {
	ID    string          `json:"id"`
	Role  enum.WalletRole `json:"-"`
	Chain string          `json:"chain"`

	Balance          decimal.Decimal `json:"balance"`
	RealizedPnLToday decimal.Decimal `json:"realized_pnl_today"`
	GrossPnLToday    decimal.Decimal `json:"gross_pnl_today"`
	FeesPaidToday    decimal.Decimal `json:"fees_paid_today"`

	ConsecutiveLosses int       `json:"consecutive_losses"`
	LastReset         time.Time `json:"last_reset"`

	MinBalance         decimal.Decimal `json:"min_balance"`
	MaxRiskPctPerTrade decimal.Decimal `json:"max_risk_pct_per_trade"`
	MaxDailyLossPct    decimal.Decimal `json:"max_daily_loss_pct"`
	MaxOpenPositions   int             `json:"max_open_positions"`
	AllowOutflows      bool            `json:"allow_outflows"`
	IsFeeReserve       bool            `json:"is_fee_reserve"`
	RoleName           string          `json:"role"`
}

// Surplus is the balance available above the configured floor.
func (v WalletView) Surplus() decimal.Decimal {
	return v.Balance.Sub(v.MinBalance)
}

// DailyPnLPct is today's realized PnL relative to the start-of-day
// balance (current balance minus today's gross PnL). Same convention as
// GlobalDailyPnLPct on a non-positive base: a losing day reports -100, a
// flat or winning day reports zero.
func (v WalletView) DailyPnLPct() decimal.Decimal {
	base := v.Balance.Sub(v.GrossPnLToday)
	if !base.IsPositive() {
		if v.RealizedPnLToday.IsNegative() {
			return hundred.Neg()
		}
		return decimal.Zero
	}
	return v.RealizedPnLToday.Div(base).Mul(hundred)
}

// Snapshot is a consistent point-in-time view of the whole ledger.
type Snapshot struct {
	IDs     []string
	Wallets map[string]WalletView
}

// Snapshot copies every wallet under the ledger mutex.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		IDs:     append([]string(nil), l.ids...),
		Wallets: make(map[string]WalletView, len(l.wallets)),
	}
	for id, w := range l.wallets {
		snap.Wallets[id] = WalletView{
			ID:                 id,
			Role:               w.cfg.Role,
			RoleName:           w.cfg.Role.String(),
			Chain:              w.cfg.Chain,
			Balance:            w.balance,
			RealizedPnLToday:   w.realizedPnLToday,
			GrossPnLToday:      w.grossPnLToday,
			FeesPaidToday:      w.feesPaidToday,
			ConsecutiveLosses:  w.consecutiveLosses,
			LastReset:          w.lastReset,
			MinBalance:         w.cfg.MinBalance,
			MaxRiskPctPerTrade: w.cfg.MaxRiskPctPerTrade,
			MaxDailyLossPct:    w.cfg.MaxDailyLossPct,
			MaxOpenPositions:   w.cfg.MaxOpenPositions,
			AllowOutflows:      w.cfg.AllowOutflows,
			IsFeeReserve:       w.cfg.IsFeeReserve,
		}
	}
	return snap
}

// Wallet returns the view for one wallet id.
func (l *Ledger) Wallet(id string) (WalletView, bool) {
	snap := l.Snapshot()
	v, ok := snap.Wallets[id]
	return v, ok
}

// Has reports whether a wallet id is registered.
func (l *Ledger) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.wallets[id]
	return ok
}

// TotalEquity sums every wallet balance.
func (s Snapshot) TotalEquity() decimal.Decimal {
	total := decimal.Zero
	for _, id := range s.IDs {
		total = total.Add(s.Wallets[id].Balance)
	}
	return total
}

// GlobalPnLToday sums today's realized PnL across wallets.
func (s Snapshot) GlobalPnLToday() decimal.Decimal {
	total := decimal.Zero
	for _, id := range s.IDs {
		total = total.Add(s.Wallets[id].RealizedPnLToday)
	}
	return total
}

// GlobalDailyPnLPct is today's global PnL relative to start-of-day total
// equity (current equity minus today's net movement). A losing day on a
// non-positive base reports -100 (all trading margin gone), which trips
// the global circuit breaker downstream; a flat or winning day never
// reports as a loss, whatever the base.
func (s Snapshot) GlobalDailyPnLPct() decimal.Decimal {
	equity := s.TotalEquity()
	pnl := s.GlobalPnLToday()
	net := decimal.Zero
	for _, id := range s.IDs {
		net = net.Add(s.Wallets[id].GrossPnLToday)
	}
	base := equity.Sub(net)
	if !base.IsPositive() {
		if pnl.IsNegative() {
			return hundred.Neg()
		}
		return decimal.Zero
	}
	return pnl.Div(base).Mul(hundred)
}

// FirstByRole returns the first registered wallet carrying the role.
func (s Snapshot) FirstByRole(role enum.WalletRole) (WalletView, bool) {
	for _, id := range s.IDs {
		if s.Wallets[id].Role == role {
			return s.Wallets[id], true
		}
	}
	return WalletView{}, false
}
