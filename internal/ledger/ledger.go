// Package ledger holds the authoritative per-wallet balances and daily
// accounting figures. All mutation goes through the capital flow engine,
// which calls the primitives here; every primitive takes the one ledger
// mutex so risk reads never observe a half-applied update.
package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model/enum"
)

// WalletConfig is the static definition of one wallet, loaded once at
// startup. Wallets are never created or destroyed at runtime.
type WalletConfig struct {
	ID    string
	Role  enum.WalletRole
	Chain string

	InitialBalance decimal.Decimal
	MinBalance     decimal.Decimal

	MaxRiskPctPerTrade decimal.Decimal
	MaxDailyLossPct    decimal.Decimal // zero means no cap
	MaxOpenPositions   int             // zero means no cap

	AllowOutflows bool
	IsFeeReserve  bool
}

// wallet is the runtime state. Only this package touches the fields, and
// only under the ledger mutex.
type wallet struct {
	cfg WalletConfig

	balance           decimal.Decimal
	realizedPnLToday  decimal.Decimal
	grossPnLToday     decimal.Decimal
	feesPaidToday     decimal.Decimal
	consecutiveLosses int
	lastReset         time.Time
}

// Ledger is the registry of wallet states.
type Ledger struct {
	mu      sync.Mutex
	wallets map[string]*wallet
	ids     []string // registration order, for deterministic iteration
}

// New builds a ledger from wallet definitions. Duplicate or empty ids are
// configuration errors and abort startup.
func New(configs []WalletConfig) (*Ledger, error) {
	l := &Ledger{wallets: make(map[string]*wallet, len(configs))}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, errors.New("wallet with empty id")
		}
		if _, ok := l.wallets[cfg.ID]; ok {
			return nil, errors.New("duplicate wallet id").With("wallet", cfg.ID)
		}
		if !cfg.Role.IsAvailable() {
			return nil, errors.New("wallet with unknown role").With("wallet", cfg.ID)
		}
		if cfg.InitialBalance.IsNegative() || cfg.MinBalance.IsNegative() {
			return nil, errors.New("wallet with negative balance config").With("wallet", cfg.ID)
		}
		l.wallets[cfg.ID] = &wallet{cfg: cfg, balance: cfg.InitialBalance, lastReset: today}
		l.ids = append(l.ids, cfg.ID)
	}
	return l, nil
}

// ApplyOutcome is the tri-state result of a PnL application.
type ApplyOutcome uint8

const (
	Applied ApplyOutcome = iota + 1
	UnknownWallet
)

func (o ApplyOutcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case UnknownWallet:
		return "unknown-wallet"
	default:
		return "unknown"
	}
}

// ApplyPnL settles a realized trade result into a wallet:
// balance moves by pnl-fees, the daily accumulators advance, and the
// losing streak resets on a gain, grows on a loss, and holds on zero.
// An unknown wallet id is a logged no-op.
func (l *Ledger) ApplyPnL(walletID string, pnl, fees decimal.Decimal) ApplyOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[walletID]
	if !ok {
		logs.Warnf("ledger: apply pnl for unknown wallet %q ignored (pnl=%s fees=%s)",
			walletID, pnl, fees)
		return UnknownWallet
	}

	net := pnl.Sub(fees)
	w.balance = w.balance.Add(net)
	w.realizedPnLToday = w.realizedPnLToday.Add(pnl)
	w.grossPnLToday = w.grossPnLToday.Add(net)
	w.feesPaidToday = w.feesPaidToday.Add(fees)

	switch {
	case pnl.IsPositive():
		w.consecutiveLosses = 0
	case pnl.IsNegative():
		w.consecutiveLosses++
	}

	logs.Infof("ledger: %s pnl=%s fees=%s balance=%s streak=%d",
		walletID, pnl, fees, w.balance, w.consecutiveLosses)
	return Applied
}

// ResetDaily zeroes the daily accumulators and losing streak of every
// wallet whose last reset was before today. It returns the ids that were
// reset so policy state keyed per day (fee-skim tracking) can be cleared.
func (l *Ledger) ResetDaily(now time.Time) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := now.UTC().Truncate(24 * time.Hour)
	var reset []string
	for _, id := range l.ids {
		w := l.wallets[id]
		if w.lastReset.Equal(today) {
			continue
		}
		w.realizedPnLToday = decimal.Zero
		w.grossPnLToday = decimal.Zero
		w.feesPaidToday = decimal.Zero
		w.consecutiveLosses = 0
		w.lastReset = today
		reset = append(reset, id)
	}
	if len(reset) > 0 {
		logs.Infof("ledger: daily reset for %d wallets", len(reset))
	}
	return reset
}
