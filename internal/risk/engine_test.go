package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
)

func testLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New([]ledger.WalletConfig{
		{
			ID:                 "main",
			Role:               enum.RoleMain,
			Chain:              "SIM",
			InitialBalance:     decimal.NewFromInt(1000),
			MinBalance:         decimal.NewFromInt(100),
			MaxRiskPctPerTrade: decimal.NewFromInt(5),
			MaxDailyLossPct:    decimal.NewFromInt(10),
			MaxOpenPositions:   3,
			AllowOutflows:      true,
		},
	})
	require.NoError(t, err)
	return l
}

func baseContext() model.OrderRiskContext {
	return model.OrderRiskContext{
		WalletID:     "main",
		Symbol:       "BTC-USDT",
		Side:         enum.SideLong,
		Notional:     decimal.NewFromInt(30),
		WalletEquity: decimal.NewFromInt(1000),
	}
}

func TestEvaluateOrderAccept(t *testing.T) {
	e := NewEngine(Config{MaxGlobalDailyLossPct: decimal.NewFromInt(10)}, testLedger(t))

	d := e.EvaluateOrder(baseContext())
	assert.Equal(t, enum.RiskAccept, d.Action)
	assert.True(t, d.ApprovedNotional.Equal(decimal.NewFromInt(30)))
}

func TestEvaluateOrderGlobalEjectLatches(t *testing.T) {
	e := NewEngine(Config{MaxGlobalDailyLossPct: decimal.NewFromInt(10)}, testLedger(t))

	ctx := baseContext()
	ctx.GlobalDailyPnLPct = decimal.NewFromInt(-11)
	d := e.EvaluateOrder(ctx)
	assert.Equal(t, enum.RiskEject, d.Action)
	assert.True(t, d.ApprovedNotional.IsZero())
	assert.True(t, e.HardStopActive())

	// latched: a healthy context still ejects until reset
	d = e.EvaluateOrder(baseContext())
	assert.Equal(t, enum.RiskEject, d.Action)

	e.Reset()
	d = e.EvaluateOrder(baseContext())
	assert.Equal(t, enum.RiskAccept, d.Action)
}

func TestEvaluateOrderRejects(t *testing.T) {
	testCases := []struct {
		desc   string
		mutate func(*model.OrderRiskContext)
	}{
		{
			"unknown wallet",
			func(ctx *model.OrderRiskContext) { ctx.WalletID = "ghost" },
		},
		{
			"wallet daily loss breach",
			func(ctx *model.OrderRiskContext) { ctx.WalletDailyPnLPct = decimal.NewFromInt(-10) },
		},
		{
			"open position limit",
			func(ctx *model.OrderRiskContext) { ctx.OpenPositions = 3 },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			e := NewEngine(Config{MaxGlobalDailyLossPct: decimal.NewFromInt(10)}, testLedger(t))
			ctx := baseContext()
			tc.mutate(&ctx)
			d := e.EvaluateOrder(ctx)
			assert.Equal(t, enum.RiskReject, d.Action)
			assert.True(t, d.ApprovedNotional.IsZero())
		})
	}
}

func TestEvaluateOrderRejectsAtBalanceFloor(t *testing.T) {
	led := testLedger(t)
	led.ApplyPnL("main", decimal.NewFromInt(-900), decimal.Zero)
	e := NewEngine(Config{}, led)

	d := e.EvaluateOrder(baseContext())
	assert.Equal(t, enum.RiskReject, d.Action)
}

func TestEvaluateOrderAdjustsOversizedNotional(t *testing.T) {
	e := NewEngine(Config{}, testLedger(t))

	// 5% of 1000 equity caps at 50
	ctx := baseContext()
	ctx.Notional = decimal.NewFromInt(200)
	d := e.EvaluateOrder(ctx)
	assert.Equal(t, enum.RiskAdjust, d.Action)
	assert.True(t, d.ApprovedNotional.Equal(decimal.NewFromInt(50)),
		"approved %s", d.ApprovedNotional)
}

func TestEvaluateOrderAdjustsPerAssetCap(t *testing.T) {
	e := NewEngine(Config{
		Wallets: map[string]WalletLimit{
			"main": {
				MaxPctBalancePerTrade: decimal.NewFromInt(10),
				MaxNotionalPerAsset:   decimal.NewFromInt(40),
			},
		},
	}, testLedger(t))

	ctx := baseContext()
	ctx.Notional = decimal.NewFromInt(60)
	d := e.EvaluateOrder(ctx)
	assert.Equal(t, enum.RiskAdjust, d.Action)
	assert.True(t, d.ApprovedNotional.Equal(decimal.NewFromInt(40)))
}

func TestEvaluateOrderHalvesOnLosingStreak(t *testing.T) {
	e := NewEngine(Config{MaxConsecutiveLosingTrades: 3}, testLedger(t))

	ctx := baseContext()
	ctx.ConsecutiveLosingTrades = 3
	d := e.EvaluateOrder(ctx)
	assert.Equal(t, enum.RiskAdjust, d.Action)
	assert.True(t, d.ApprovedNotional.Equal(decimal.NewFromInt(15)),
		"approved %s", d.ApprovedNotional)
}

func TestSafetyProfileScalesLedgerLimits(t *testing.T) {
	// SAFE halves the 5% per-trade budget carried on the wallet
	e := NewEngine(Config{SafetyProfile: enum.SafetySafe}, testLedger(t))

	ctx := baseContext()
	ctx.Notional = decimal.NewFromInt(40)
	d := e.EvaluateOrder(ctx)
	assert.Equal(t, enum.RiskAdjust, d.Action)
	assert.True(t, d.ApprovedNotional.Equal(decimal.NewFromInt(25)),
		"approved %s", d.ApprovedNotional)
}

func TestSoftStopFlags(t *testing.T) {
	e := NewEngine(Config{MaxGlobalDailyLossPct: decimal.NewFromInt(10)}, testLedger(t))

	ctx := baseContext()
	ctx.GlobalDailyPnLPct = decimal.NewFromInt(-6)
	d := e.EvaluateOrder(ctx)
	assert.Equal(t, enum.RiskAccept, d.Action)
	assert.True(t, e.SoftStopActive())
	assert.False(t, e.HardStopActive())
	assert.True(t, e.DailyDrawdownPct().Equal(decimal.NewFromInt(6)))
}

func TestKillSwitch(t *testing.T) {
	var k KillSwitch
	assert.False(t, k.Active())

	k.Observe(model.RiskDecision{Action: enum.RiskAccept})
	assert.False(t, k.Active())

	k.Observe(model.RiskDecision{Action: enum.RiskEject, Reason: "drawdown"})
	assert.True(t, k.Active())
	assert.Equal(t, "drawdown", k.Reason())

	// first reason wins
	k.Trip("second")
	assert.Equal(t, "drawdown", k.Reason())

	k.Reset()
	assert.False(t, k.Active())
	assert.Empty(t, k.Reason())
}

func TestKillSwitchManualOnly(t *testing.T) {
	k := KillSwitch{ManualOnly: true}

	k.Observe(model.RiskDecision{Action: enum.RiskEject, Reason: "drawdown"})
	assert.False(t, k.Active())

	// operator trips still work
	k.Trip("halt for maintenance")
	assert.True(t, k.Active())
	assert.Equal(t, "halt for maintenance", k.Reason())
}
