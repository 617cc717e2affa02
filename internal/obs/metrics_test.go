package obs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"main/internal/ledger"
	"main/internal/model/enum"
)

func TestNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.IncDecision(enum.RiskAccept)
	m.IncEvent(enum.EventTP1Hit)
	m.IncSettlement(ledger.Applied)
	m.IncTransfer(ledger.SkipNone)
	m.IncQueueDrop()
	m.IncQueueClosed()
	m.ObserveRiskEval(time.Millisecond)
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.IncDecision(enum.RiskAccept)
	m.IncDecision(enum.RiskAccept)
	m.IncDecision(enum.RiskReject)
	m.IncEvent(enum.EventSLHit)
	m.IncSettlement(ledger.Applied)
	m.IncTransfer(ledger.SkipNoSurplus)
	m.IncQueueDrop()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.DecisionCounts[enum.RiskAccept])
	assert.Equal(t, uint64(1), snap.DecisionCounts[enum.RiskReject])
	assert.NotContains(t, snap.DecisionCounts, enum.RiskAdjust)
	assert.Equal(t, uint64(1), snap.EventCounts[enum.EventSLHit])
	assert.Equal(t, uint64(1), snap.SettlementCounts[ledger.Applied])
	assert.Equal(t, uint64(1), snap.TransferCounts[ledger.SkipNoSurplus])
	assert.Equal(t, uint64(1), snap.QueueDrops)
	assert.Zero(t, snap.QueueClosed)
}

func TestOutOfRangeValueIsIgnored(t *testing.T) {
	m := NewMetrics()
	m.IncDecision(enum.RiskAction(200))
	assert.Empty(t, m.Snapshot().DecisionCounts)
}

func TestLatencyStats(t *testing.T) {
	m := NewMetrics()
	m.ObserveRiskEval(2 * time.Millisecond)
	m.ObserveRiskEval(4 * time.Millisecond)
	m.ObserveRiskEval(6 * time.Millisecond)

	lat := m.Snapshot().RiskEvalLatency
	assert.Equal(t, uint64(3), lat.Count)
	assert.Equal(t, 2*time.Millisecond, lat.Min)
	assert.Equal(t, 6*time.Millisecond, lat.Max)
	assert.Equal(t, 4*time.Millisecond, lat.Avg)
}
