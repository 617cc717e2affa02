// Package obs collects lightweight in-process counters and latency
// stats. Every method is safe on a nil receiver so instrumentation can
// be left unwired in tests.
package obs

import (
	"sync/atomic"
	"time"

	"main/internal/ledger"
	"main/internal/model/enum"
)

const (
	maxRiskAction = int(enum.RiskEject)
	maxEventKind  = int(enum.EventTrailingStopHit)
	maxOutcome    = int(ledger.UnknownWallet)
	maxSkipReason = int(ledger.SkipNoSurplus)
)

// Metrics collects counters for risk decisions, position events,
// settlements and transfers, plus risk-evaluation latency.
type Metrics struct {
	decisionCounts   [maxRiskAction + 1]uint64
	eventCounts      [maxEventKind + 1]uint64
	settlementCounts [maxOutcome + 1]uint64
	transferCounts   [maxSkipReason + 1]uint64
	queueDrops       uint64
	queueClosed      uint64

	riskEvalLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	DecisionCounts   map[enum.RiskAction]uint64
	EventCounts      map[enum.EventKind]uint64
	SettlementCounts map[ledger.ApplyOutcome]uint64
	TransferCounts   map[ledger.SkipReason]uint64
	QueueDrops       uint64
	QueueClosed      uint64
	RiskEvalLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncDecision counts one risk decision by action.
func (m *Metrics) IncDecision(action enum.RiskAction) {
	if m == nil {
		return
	}
	idx := int(action)
	if idx >= 0 && idx < len(m.decisionCounts) {
		atomic.AddUint64(&m.decisionCounts[idx], 1)
	}
}

// IncEvent counts one position lifecycle event by kind.
func (m *Metrics) IncEvent(kind enum.EventKind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// IncSettlement counts one PnL application by outcome.
func (m *Metrics) IncSettlement(out ledger.ApplyOutcome) {
	if m == nil {
		return
	}
	idx := int(out)
	if idx >= 0 && idx < len(m.settlementCounts) {
		atomic.AddUint64(&m.settlementCounts[idx], 1)
	}
}

// IncTransfer counts one transfer attempt by skip reason; SkipNone
// means the transfer moved funds.
func (m *Metrics) IncTransfer(skip ledger.SkipReason) {
	if m == nil {
		return
	}
	idx := int(skip)
	if idx >= 0 && idx < len(m.transferCounts) {
		atomic.AddUint64(&m.transferCounts[idx], 1)
	}
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveRiskEval measures risk evaluation latency.
func (m *Metrics) ObserveRiskEval(d time.Duration) {
	if m == nil {
		return
	}
	m.riskEvalLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	decisions := make(map[enum.RiskAction]uint64)
	for i := range m.decisionCounts {
		if v := atomic.LoadUint64(&m.decisionCounts[i]); v > 0 {
			decisions[enum.RiskAction(i)] = v
		}
	}
	events := make(map[enum.EventKind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			events[enum.EventKind(i)] = v
		}
	}
	settlements := make(map[ledger.ApplyOutcome]uint64)
	for i := range m.settlementCounts {
		if v := atomic.LoadUint64(&m.settlementCounts[i]); v > 0 {
			settlements[ledger.ApplyOutcome(i)] = v
		}
	}
	transfers := make(map[ledger.SkipReason]uint64)
	for i := range m.transferCounts {
		if v := atomic.LoadUint64(&m.transferCounts[i]); v > 0 {
			transfers[ledger.SkipReason(i)] = v
		}
	}
	return Snapshot{
		DecisionCounts:   decisions,
		EventCounts:      events,
		SettlementCounts: settlements,
		TransferCounts:   transfers,
		QueueDrops:       atomic.LoadUint64(&m.queueDrops),
		QueueClosed:      atomic.LoadUint64(&m.queueClosed),
		RiskEvalLatency:  m.riskEvalLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
