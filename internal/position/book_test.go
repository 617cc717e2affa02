package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
)

func TestBookSinglePositionPerKey(t *testing.T) {
	b := NewBook()

	_, err := b.Open(longTrade(), tieredExit())
	require.NoError(t, err)

	_, err = b.Open(longTrade(), tieredExit())
	assert.ErrorIs(t, err, ErrPositionExists)

	// same symbol under another wallet is a different key
	other := longTrade()
	other.WalletID = "scalp"
	_, err = b.Open(other, tieredExit())
	require.NoError(t, err)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 1, b.OpenCount("main"))
}

func TestBookTickRoutesBySymbol(t *testing.T) {
	b := NewBook()
	_, err := b.Open(longTrade(), tieredExit())
	require.NoError(t, err)

	eth := longTrade()
	eth.Symbol = "ETH-USDT"
	_, err = b.Open(eth, tieredExit())
	require.NoError(t, err)

	events := b.Tick("BTC-USDT", decimal.NewFromInt(121), time.Now())
	require.Len(t, events, 1)
	assert.Equal(t, "main:BTC-USDT", events[0].PositionID)

	// the other symbol never saw the price
	p, ok := b.Get("main", "ETH-USDT")
	require.True(t, ok)
	assert.False(t, p.TP1Filled)
}

func TestBookRemovesTerminalAndReopens(t *testing.T) {
	b := NewBook()
	_, err := b.Open(longTrade(), tieredExit())
	require.NoError(t, err)

	events := b.Tick("BTC-USDT", decimal.NewFromInt(89), time.Now())
	require.Len(t, events, 1)
	assert.Equal(t, enum.EventSLHit, events[0].Kind)
	assert.Equal(t, 0, b.Len())

	// terminal means the key is free again
	_, err = b.Open(longTrade(), tieredExit())
	assert.NoError(t, err)
}

func TestBookClose(t *testing.T) {
	b := NewBook()
	_, err := b.Open(longTrade(), tieredExit())
	require.NoError(t, err)

	ev, err := b.Close("main", "BTC-USDT", decimal.NewFromInt(105), time.Now())
	require.NoError(t, err)
	assert.Equal(t, enum.EventRunnerClosed, ev.Kind)
	assert.True(t, ev.PnL.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 0, b.Len())

	_, err = b.Close("main", "BTC-USDT", decimal.NewFromInt(105), time.Now())
	assert.ErrorIs(t, err, ErrPositionNotFound)
}
