package capital

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/ledger"
	"main/internal/model/enum"
)

func testWallets() []ledger.WalletConfig {
	return []ledger.WalletConfig{
		{
			ID:                 "main",
			Role:               enum.RoleMain,
			Chain:              "SIM",
			InitialBalance:     decimal.NewFromInt(1000),
			MinBalance:         decimal.NewFromInt(100),
			MaxRiskPctPerTrade: decimal.NewFromInt(5),
			MaxDailyLossPct:    decimal.NewFromInt(10),
			AllowOutflows:      true,
		},
		{
			ID:             "scalp",
			Role:           enum.RoleScalping,
			Chain:          "SIM",
			InitialBalance: decimal.NewFromInt(500),
			AllowOutflows:  true,
		},
		{
			ID:            "autofees",
			Role:          enum.RoleAutoFees,
			Chain:         "SIM",
			AllowOutflows: true,
			IsFeeReserve:  true,
		},
		{
			ID:             "vault",
			Role:           enum.RoleVault,
			Chain:          "SIM",
			InitialBalance: decimal.NewFromInt(200),
			AllowOutflows:  true,
		},
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	led, err := ledger.New(testWallets())
	require.NoError(t, err)
	return NewEngine(led, cfg)
}

func balance(t *testing.T, e *Engine, id string) decimal.Decimal {
	t.Helper()
	w, ok := e.Ledger().Wallet(id)
	require.True(t, ok)
	return w.Balance
}

type transferSpy struct {
	sources []string
	targets []string
	reasons []string
	results []ledger.TransferResult
}

func (s *transferSpy) RecordTransfer(sourceID, targetID, reason string, res ledger.TransferResult) {
	s.sources = append(s.sources, sourceID)
	s.targets = append(s.targets, targetID)
	s.reasons = append(s.reasons, reason)
	s.results = append(s.results, res)
}

func TestTransferJournalsMovedFunds(t *testing.T) {
	e := newTestEngine(t, Config{})
	spy := &transferSpy{}
	e.SetJournal(spy)

	res := e.Transfer("main", "vault", decimal.NewFromInt(50), "manual")
	require.Equal(t, ledger.SkipNone, res.Skip)

	require.Len(t, spy.results, 1)
	assert.Equal(t, "main", spy.sources[0])
	assert.Equal(t, "vault", spy.targets[0])
	assert.Equal(t, "manual", spy.reasons[0])
	assert.True(t, spy.results[0].Moved.Equal(decimal.NewFromInt(50)))

	// skips never reach the journal
	e.Transfer("vault", "vault", decimal.NewFromInt(10), "manual")
	e.Transfer("ghost", "main", decimal.NewFromInt(10), "manual")
	assert.Len(t, spy.results, 1)
}

func TestPolicyTransfersReachJournal(t *testing.T) {
	e := newTestEngine(t, Config{
		FeeReserveWalletID: "autofees",
		AutoFeeMinPct:      decimal.NewFromInt(10),
		AutoFeeMaxPct:      decimal.NewFromInt(10),
	})
	spy := &transferSpy{}
	e.SetJournal(spy)

	e.ApplyRealizedPnL("main", decimal.NewFromInt(200), decimal.Zero)
	e.RunPeriodicTasks(time.Now())

	require.NotEmpty(t, spy.results)
	assert.Equal(t, "main", spy.sources[0])
	assert.Equal(t, "autofees", spy.targets[0])
	assert.True(t, spy.results[0].Moved.Equal(decimal.NewFromInt(20)))
}

func TestApplyRealizedPnL(t *testing.T) {
	e := newTestEngine(t, Config{})

	out := e.ApplyRealizedPnL("main", decimal.NewFromInt(200), decimal.NewFromInt(4))
	assert.Equal(t, ledger.Applied, out)
	assert.True(t, balance(t, e, "main").Equal(decimal.NewFromInt(1196)))

	out = e.ApplyRealizedPnL("ghost", decimal.NewFromInt(200), decimal.Zero)
	assert.Equal(t, ledger.UnknownWallet, out)
}

func TestEvaluateTradeRequest(t *testing.T) {
	e := newTestEngine(t, Config{})
	now := time.Now()

	// 5% of 1000 caps the allowance at 50
	ok, allowed, _ := e.EvaluateTradeRequest("main", decimal.NewFromInt(200), now)
	assert.True(t, ok)
	assert.True(t, allowed.Equal(decimal.NewFromInt(50)), "allowed %s", allowed)

	// small requests pass through untouched
	ok, allowed, _ = e.EvaluateTradeRequest("main", decimal.NewFromInt(30), now)
	assert.True(t, ok)
	assert.True(t, allowed.Equal(decimal.NewFromInt(30)))

	// unknown wallet fails closed
	ok, allowed, _ = e.EvaluateTradeRequest("ghost", decimal.NewFromInt(30), now)
	assert.False(t, ok)
	assert.True(t, allowed.IsZero())

	// at the floor nothing is approved
	e.ApplyRealizedPnL("main", decimal.NewFromInt(-900), decimal.Zero)
	ok, _, reason := e.EvaluateTradeRequest("main", decimal.NewFromInt(10), now)
	assert.False(t, ok)
	assert.Contains(t, reason, "floor")
}

func TestEvaluateTradeRequestDailyLossGate(t *testing.T) {
	e := newTestEngine(t, Config{})
	now := time.Now().UTC()

	// -15% on a 10% cap blocks for the rest of the day
	e.ApplyRealizedPnL("main", decimal.NewFromInt(-150), decimal.Zero)
	ok, _, reason := e.EvaluateTradeRequest("main", decimal.NewFromInt(10), now)
	require.False(t, ok)
	assert.Contains(t, reason, "daily pnl")

	// after the day rolls over, yesterday's loss no longer gates even
	// before the periodic reset has run
	ok, allowed, _ := e.EvaluateTradeRequest("main", decimal.NewFromInt(10), now.Add(24*time.Hour))
	assert.True(t, ok)
	assert.True(t, allowed.Equal(decimal.NewFromInt(10)))
}

func TestAutoFeeSkim(t *testing.T) {
	e := newTestEngine(t, Config{
		FeeReserveWalletID: "autofees",
		AutoFeeMinPct:      decimal.NewFromInt(5),
		AutoFeeMaxPct:      decimal.NewFromInt(15),
	})

	e.ApplyRealizedPnL("main", decimal.NewFromInt(200), decimal.Zero)
	e.RunPeriodicTasks(time.Now())

	// 10% of 200 realized lands in the reserve
	assert.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(20)),
		"reserve %s", balance(t, e, "autofees"))

	// a second pass with no new pnl skims nothing more
	e.RunPeriodicTasks(time.Now())
	assert.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(20)))

	// more profit tops the skim up to the new ideal
	e.ApplyRealizedPnL("main", decimal.NewFromInt(100), decimal.Zero)
	e.RunPeriodicTasks(time.Now())
	assert.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(30)))
}

func TestAutoFeeSkimFloorsAtZero(t *testing.T) {
	e := newTestEngine(t, Config{
		FeeReserveWalletID: "autofees",
		AutoFeeMinPct:      decimal.NewFromInt(10),
		AutoFeeMaxPct:      decimal.NewFromInt(10),
	})

	e.ApplyRealizedPnL("main", decimal.NewFromInt(300), decimal.Zero)
	e.RunPeriodicTasks(time.Now())
	require.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(30)))

	// a loss shrinks the ideal below what was already skimmed;
	// nothing moves in either direction
	e.ApplyRealizedPnL("main", decimal.NewFromInt(-250), decimal.Zero)
	e.RunPeriodicTasks(time.Now())
	assert.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(30)))
}

func TestAutoFeeSkimSkipsReserveAndLockedWallets(t *testing.T) {
	led, err := ledger.New([]ledger.WalletConfig{
		{
			ID:             "locked",
			Role:           enum.RoleMain,
			InitialBalance: decimal.NewFromInt(1000),
			AllowOutflows:  false,
		},
		{
			ID:            "autofees",
			Role:          enum.RoleAutoFees,
			AllowOutflows: true,
			IsFeeReserve:  true,
		},
	})
	require.NoError(t, err)
	e := NewEngine(led, Config{
		AutoFeeMinPct: decimal.NewFromInt(10),
		AutoFeeMaxPct: decimal.NewFromInt(10),
	})

	e.ApplyRealizedPnL("locked", decimal.NewFromInt(100), decimal.Zero)
	e.RunPeriodicTasks(time.Now())
	assert.True(t, balance(t, e, "autofees").IsZero())
}

func TestProfitSplit(t *testing.T) {
	e := newTestEngine(t, Config{
		ProfitSplitRules: []ProfitSplitRule{
			{
				SourceWalletID:  "main",
				TargetWalletID:  "vault",
				TriggerPct:      decimal.NewFromInt(10),
				PercentOfProfit: decimal.NewFromInt(50),
			},
		},
	})

	// +200 on a 1000 baseline is +20%, over the 10% trigger
	e.ApplyRealizedPnL("main", decimal.NewFromInt(200), decimal.Zero)
	e.RunPeriodicTasks(time.Now())

	assert.True(t, balance(t, e, "main").Equal(decimal.NewFromInt(1100)),
		"main %s", balance(t, e, "main"))
	assert.True(t, balance(t, e, "vault").Equal(decimal.NewFromInt(300)),
		"vault %s", balance(t, e, "vault"))

	// baseline advanced to 1200; no further profit, no further split
	e.RunPeriodicTasks(time.Now())
	assert.True(t, balance(t, e, "main").Equal(decimal.NewFromInt(1100)))
}

func TestProfitSplitBelowTrigger(t *testing.T) {
	e := newTestEngine(t, Config{
		ProfitSplitRules: []ProfitSplitRule{
			{
				SourceWalletID:  "main",
				TargetWalletID:  "vault",
				TriggerPct:      decimal.NewFromInt(10),
				PercentOfProfit: decimal.NewFromInt(50),
			},
		},
	})

	e.ApplyRealizedPnL("main", decimal.NewFromInt(50), decimal.Zero)
	e.RunPeriodicTasks(time.Now())
	assert.True(t, balance(t, e, "vault").Equal(decimal.NewFromInt(200)))
}

func TestProfitSplitScalesOver100Pct(t *testing.T) {
	e := newTestEngine(t, Config{
		ProfitSplitRules: []ProfitSplitRule{
			{
				SourceWalletID:  "main",
				TargetWalletID:  "vault",
				TriggerPct:      decimal.NewFromInt(5),
				PercentOfProfit: decimal.NewFromInt(90),
			},
			{
				SourceWalletID:  "main",
				TargetWalletID:  "scalp",
				TriggerPct:      decimal.NewFromInt(5),
				PercentOfProfit: decimal.NewFromInt(60),
			},
		},
	})

	e.ApplyRealizedPnL("main", decimal.NewFromInt(100), decimal.Zero)
	e.RunPeriodicTasks(time.Now())

	// 90+60 scales to 60+40 of the 100 profit
	assert.True(t, balance(t, e, "vault").Equal(decimal.NewFromInt(260)),
		"vault %s", balance(t, e, "vault"))
	assert.True(t, balance(t, e, "scalp").Equal(decimal.NewFromInt(540)),
		"scalp %s", balance(t, e, "scalp"))
	assert.True(t, balance(t, e, "main").Equal(decimal.NewFromInt(1000)))
}

func TestFeeCapSweep(t *testing.T) {
	e := newTestEngine(t, Config{
		FeeReserveWalletID:     "autofees",
		FeeReserveMinBuffer:    decimal.NewFromInt(50),
		FeeReserveMaxEquityPct: decimal.NewFromInt(5),
		FeeOverflowSweepTarget: "vault",
	})

	// push the reserve well above 5% of total equity
	e.ApplyRealizedPnL("autofees", decimal.NewFromInt(300), decimal.Zero)
	e.RunPeriodicTasks(time.Now())

	// equity is 2000, cap = 100, excess 200 sweeps to the vault
	assert.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(100)),
		"reserve %s", balance(t, e, "autofees"))
	assert.True(t, balance(t, e, "vault").Equal(decimal.NewFromInt(400)),
		"vault %s", balance(t, e, "vault"))
}

func TestFeeCapSweepHonorsMinBuffer(t *testing.T) {
	e := newTestEngine(t, Config{
		FeeReserveWalletID:     "autofees",
		FeeReserveMinBuffer:    decimal.NewFromInt(500),
		FeeReserveMaxEquityPct: decimal.NewFromInt(5),
		FeeOverflowSweepTarget: "vault",
	})

	e.ApplyRealizedPnL("autofees", decimal.NewFromInt(300), decimal.Zero)
	e.RunPeriodicTasks(time.Now())

	// buffer 500 beats the 5% cap; 300 stays put
	assert.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(300)))
}

func TestCompounding(t *testing.T) {
	e := newTestEngine(t, Config{
		CompoundingEnabled:      true,
		CompoundPctFromVault:    decimal.NewFromInt(50),
		CompoundVaultMinBalance: decimal.NewFromInt(100),
		CompoundWeights: map[string]decimal.Decimal{
			"main": decimal.RequireFromString("0.5"),
			"scalp": decimal.RequireFromString("0.5"),
		},
	})

	e.RunPeriodicTasks(time.Now())

	// vault 200 over a 100 floor: 50% of the 100 excess splits evenly
	assert.True(t, balance(t, e, "vault").Equal(decimal.NewFromInt(150)),
		"vault %s", balance(t, e, "vault"))
	assert.True(t, balance(t, e, "main").Equal(decimal.NewFromInt(1025)))
	assert.True(t, balance(t, e, "scalp").Equal(decimal.NewFromInt(525)))
}

func TestCompoundingIntervalGate(t *testing.T) {
	e := newTestEngine(t, Config{
		CompoundingEnabled:   true,
		CompoundingInterval:  time.Hour,
		CompoundPctFromVault: decimal.NewFromInt(10),
	})

	now := time.Now()
	e.RunPeriodicTasks(now)
	first := balance(t, e, "vault")

	// inside the interval nothing more moves
	e.RunPeriodicTasks(now.Add(time.Minute))
	assert.True(t, balance(t, e, "vault").Equal(first))
}

func TestDailyResetClearsSkimTracking(t *testing.T) {
	e := newTestEngine(t, Config{
		FeeReserveWalletID: "autofees",
		AutoFeeMinPct:      decimal.NewFromInt(10),
		AutoFeeMaxPct:      decimal.NewFromInt(10),
	})

	day1 := time.Now().UTC()
	e.ApplyRealizedPnL("main", decimal.NewFromInt(100), decimal.Zero)
	e.RunPeriodicTasks(day1)
	require.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(10)))

	// a new day starts the skim accounting over
	day2 := day1.Add(24 * time.Hour)
	e.RunPeriodicTasks(day2)
	e.ApplyRealizedPnL("main", decimal.NewFromInt(100), decimal.Zero)
	e.RunPeriodicTasks(day2)
	assert.True(t, balance(t, e, "autofees").Equal(decimal.NewFromInt(20)))
}

func TestTransferConservationAcrossPolicies(t *testing.T) {
	e := newTestEngine(t, Config{
		FeeReserveWalletID:     "autofees",
		AutoFeeMinPct:          decimal.NewFromInt(5),
		AutoFeeMaxPct:          decimal.NewFromInt(15),
		FeeReserveMinBuffer:    decimal.NewFromInt(10),
		FeeReserveMaxEquityPct: decimal.NewFromInt(2),
		FeeOverflowSweepTarget: "vault",
		ProfitSplitRules: []ProfitSplitRule{
			{
				SourceWalletID:  "main",
				TargetWalletID:  "vault",
				TriggerPct:      decimal.NewFromInt(5),
				PercentOfProfit: decimal.NewFromInt(40),
			},
		},
	})

	e.ApplyRealizedPnL("main", decimal.NewFromInt(300), decimal.Zero)
	before := e.Ledger().Snapshot().TotalEquity()

	e.RunPeriodicTasks(time.Now())
	e.RunPeriodicTasks(time.Now())

	after := e.Ledger().Snapshot().TotalEquity()
	assert.True(t, after.Equal(before), "equity %s -> %s", before, after)
}
