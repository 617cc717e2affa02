// Package runtime wires the trading loop together: kill switch, risk
// gate, position book, event queue and the periodic capital tasks. The
// components never call each other directly; everything flows through
// the manager.
package runtime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/capital"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/position"
	"main/internal/risk"
)

// Manager coordinates the capital-safety loop for one process.
type Manager struct {
	kill    *risk.KillSwitch
	riskEng *risk.Engine
	capEng  *capital.Engine
	book    *position.Book
	queue   *bus.Queue
	metrics *obs.Metrics

	exitCfg      position.ExitConfig
	snapshotPath string
}

// Options bundle the collaborators a manager needs.
type Options struct {
	Kill         *risk.KillSwitch
	Risk         *risk.Engine
	Capital      *capital.Engine
	Book         *position.Book
	Queue        *bus.Queue
	Metrics      *obs.Metrics
	Exit         position.ExitConfig
	SnapshotPath string
}

func NewManager(opt Options) *Manager {
	return &Manager{
		kill:         opt.Kill,
		riskEng:      opt.Risk,
		capEng:       opt.Capital,
		book:         opt.Book,
		queue:        opt.Queue,
		metrics:      opt.Metrics,
		exitCfg:      opt.Exit,
		snapshotPath: opt.SnapshotPath,
	}
}

// EvaluateTradeRequest gates one proposed trade. The kill switch blocks
// before the risk engine is consulted; an EJECT decision trips it.
func (m *Manager) EvaluateTradeRequest(req model.TradeRequest) model.RiskDecision {
	if m.kill.Active() {
		d := model.RiskDecision{
			Action:           enum.RiskReject,
			ApprovedNotional: decimal.Zero,
			Reason:           "kill switch active: " + m.kill.Reason(),
		}
		m.metrics.IncDecision(d.Action)
		return d
	}

	started := time.Now()
	d := m.riskEng.EvaluateOrder(m.buildContext(req))
	m.metrics.ObserveRiskEval(time.Since(started))
	m.metrics.IncDecision(d.Action)
	m.kill.Observe(d)
	return d
}

// buildContext snapshots the ledger once so every figure the decision
// uses comes from the same instant.
func (m *Manager) buildContext(req model.TradeRequest) model.OrderRiskContext {
	snap := m.capEng.Ledger().Snapshot()
	ctx := model.OrderRiskContext{
		WalletID:          req.WalletID,
		Symbol:            req.Symbol,
		Side:              req.Side,
		Notional:          req.Notional,
		GlobalDailyPnLPct: snap.GlobalDailyPnLPct(),
		OpenPositions:     m.book.OpenCount(req.WalletID),
	}
	if w, ok := snap.Wallets[req.WalletID]; ok {
		ctx.WalletEquity = w.Balance
		ctx.WalletDailyPnLPct = w.DailyPnLPct()
		ctx.ConsecutiveLosingTrades = w.ConsecutiveLosses
	}
	return ctx
}

// OnExecuted opens a position for a fill. The capital engine re-checks
// the allowance at execution time; a wallet that slipped below its
// floor between decision and fill refuses the position.
func (m *Manager) OnExecuted(trade model.ExecutedTrade) (*position.Position, error) {
	ok, _, reason := m.capEng.EvaluateTradeRequest(trade.WalletID, trade.EntryPrice.Mul(trade.Size), trade.Timestamp)
	if !ok {
		return nil, errors.New("fill refused: " + reason).
			With("wallet", trade.WalletID).
			With("symbol", trade.Symbol)
	}
	return m.book.Open(trade, m.exitCfg)
}

// OnPriceTick runs the exit state machines for the symbol and queues
// every emitted event for settlement.
func (m *Manager) OnPriceTick(tick model.PriceTick) {
	for _, ev := range m.book.Tick(tick.Symbol, tick.Price, tick.Timestamp) {
		m.publish(ev)
	}
}

// ClosePosition force-closes one position and queues its final event.
func (m *Manager) ClosePosition(walletID, symbol string, price decimal.Decimal, now time.Time) error {
	ev, err := m.book.Close(walletID, symbol, price, now)
	if err != nil {
		return err
	}
	m.publish(ev)
	return nil
}

func (m *Manager) publish(ev model.PositionEvent) {
	switch err := m.queue.TryPublish(ev); err {
	case nil:
	case bus.ErrQueueFull:
		m.metrics.IncQueueDrop()
		logs.Errorf("runtime: dropped %s for %s, queue full", ev.Kind, ev.PositionID)
	case bus.ErrQueueClosed:
		m.metrics.IncQueueClosed()
		logs.Warnf("runtime: dropped %s for %s, queue closed", ev.Kind, ev.PositionID)
	}
}

// OnTimer runs the periodic capital pass and persists a fresh snapshot.
func (m *Manager) OnTimer(now time.Time) {
	m.capEng.RunPeriodicTasks(now)
	if err := m.PersistSnapshot(now); err != nil {
		logs.Errorf("runtime: snapshot persist failed: %+v", err)
	}
}

// snapshotDoc is the on-disk layout consumed by the reporting side.
type snapshotDoc struct {
	UpdatedAt    time.Time                    `json:"updated_at"`
	Wallets      map[string]ledger.WalletView `json:"wallets"`
	WalletsCount int                          `json:"wallets_count"`
	EquityTotal  decimal.Decimal              `json:"equity_total"`
	PnLDay       decimal.Decimal              `json:"pnl_day"`
}

// PersistSnapshot writes the ledger state as JSON, atomically via a
// temp file rename so readers never see a torn document.
func (m *Manager) PersistSnapshot(now time.Time) error {
	if m.snapshotPath == "" {
		return nil
	}
	snap := m.capEng.Ledger().Snapshot()
	doc := snapshotDoc{
		UpdatedAt:    now.UTC(),
		Wallets:      snap.Wallets,
		WalletsCount: len(snap.IDs),
		EquityTotal:  snap.TotalEquity(),
		PnLDay:       snap.GlobalPnLToday(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	tmp := m.snapshotPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(m.snapshotPath), 0o755); err != nil {
		return errors.Wrap(err, "snapshot dir")
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		return errors.Wrap(err, "rename snapshot")
	}
	return nil
}

// Close stops the event queue. Pending events still drain.
func (m *Manager) Close() {
	m.queue.Close()
}
