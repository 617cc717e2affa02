// Package settle routes position lifecycle events into the capital
// engine. It is the only consumer of the event queue; each event
// settles exactly once.
package settle

import (
	"github.com/yanun0323/logs"

	"main/internal/capital"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/obs"
)

// Journal receives a copy of every size-closing event after it settles.
// Implementations must not block the settlement path for long.
type Journal interface {
	RecordEvent(e model.PositionEvent, out ledger.ApplyOutcome)
}

// Settler applies realized PnL from position events to the ledger
// through the capital engine.
type Settler struct {
	eng     *capital.Engine
	metrics *obs.Metrics
	journal Journal
}

func NewSettler(eng *capital.Engine) *Settler {
	return &Settler{eng: eng}
}

// SetMetrics attaches optional instrumentation.
func (s *Settler) SetMetrics(m *obs.Metrics) { s.metrics = m }

// SetJournal attaches an optional event journal.
func (s *Settler) SetJournal(j Journal) { s.journal = j }

// Handle settles one event. Informational events (trailing activation)
// count in metrics but touch no balances. Unknown wallets log and no-op.
func (s *Settler) Handle(e model.PositionEvent) {
	s.metrics.IncEvent(e.Kind)

	if !e.Kind.ClosesSize() {
		logs.Infof("settle: %s %s price=%s", e.PositionID, e.Kind, e.Price)
		return
	}

	out := s.eng.ApplyRealizedPnL(e.WalletID, e.PnL, e.Fees)
	switch out {
	case ledger.Applied:
		logs.Infof("settle: %s %s qty=%s pnl=%s fees=%s", e.PositionID, e.Kind, e.CloseQty, e.PnL, e.Fees)
	case ledger.UnknownWallet:
		logs.Warnf("settle: %s %s dropped, unknown wallet %q", e.PositionID, e.Kind, e.WalletID)
	}

	if s.journal != nil {
		s.journal.RecordEvent(e, out)
	}
}
