package settle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/capital"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
)

type journalSpy struct {
	events   []model.PositionEvent
	outcomes []ledger.ApplyOutcome
}

func (j *journalSpy) RecordEvent(e model.PositionEvent, out ledger.ApplyOutcome) {
	j.events = append(j.events, e)
	j.outcomes = append(j.outcomes, out)
}

func newTestSettler(t *testing.T) (*Settler, *capital.Engine) {
	t.Helper()
	led, err := ledger.New([]ledger.WalletConfig{
		{
			ID:             "main",
			Role:           enum.RoleMain,
			InitialBalance: decimal.NewFromInt(1000),
			AllowOutflows:  true,
		},
	})
	require.NoError(t, err)
	eng := capital.NewEngine(led, capital.Config{})
	return NewSettler(eng), eng
}

func tp1Event() model.PositionEvent {
	return model.PositionEvent{
		PositionID: "main:BTC-USDT",
		WalletID:   "main",
		Symbol:     "BTC-USDT",
		Kind:       enum.EventTP1Hit,
		Price:      decimal.NewFromInt(121),
		CloseQty:   decimal.NewFromInt(5),
		PnL:        decimal.NewFromInt(105),
		Fees:       decimal.NewFromInt(1),
		Timestamp:  time.Now(),
	}
}

func TestHandleSettlesClosingEvent(t *testing.T) {
	s, eng := newTestSettler(t)
	spy := &journalSpy{}
	s.SetJournal(spy)

	s.Handle(tp1Event())

	w, ok := eng.Ledger().Wallet("main")
	require.True(t, ok)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(1104)), "balance %s", w.Balance)
	assert.True(t, w.RealizedPnLToday.Equal(decimal.NewFromInt(105)))

	require.Len(t, spy.events, 1)
	assert.Equal(t, ledger.Applied, spy.outcomes[0])
}

func TestHandleInformationalEventTouchesNothing(t *testing.T) {
	s, eng := newTestSettler(t)
	spy := &journalSpy{}
	s.SetJournal(spy)

	ev := tp1Event()
	ev.Kind = enum.EventTrailingActivated
	ev.CloseQty = decimal.Zero
	ev.PnL = decimal.Zero
	s.Handle(ev)

	w, _ := eng.Ledger().Wallet("main")
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(1000)))
	assert.Empty(t, spy.events)
}

func TestHandleUnknownWalletIsNoOp(t *testing.T) {
	s, eng := newTestSettler(t)
	m := obs.NewMetrics()
	s.SetMetrics(m)

	ev := tp1Event()
	ev.WalletID = "ghost"
	s.Handle(ev)

	assert.True(t, eng.Ledger().Snapshot().TotalEquity().Equal(decimal.NewFromInt(1000)))
}
