package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sync"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
	"main/internal/capital"
	"main/internal/ledger"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/position"
	"main/internal/risk"
	"main/internal/runtime"
	"main/internal/settle"
	"main/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Printf("trader: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to JSON config")
	snapshotPath := flag.String("snapshot-path", "", "Ledger snapshot output (overrides config)")
	symbol := flag.String("symbol", "BTC-USDT", "Paper trading symbol")
	startPrice := flag.String("start-price", "100", "Paper feed starting price")
	tickInterval := flag.Duration("tick-interval", 250*time.Millisecond, "Paper feed tick interval")
	timerInterval := flag.Duration("timer-interval", 5*time.Second, "Periodic capital task interval")
	flag.Parse()

	if addr := os.Getenv("PYROSCOPE_SERVER_ADDRESS"); addr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   addr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	loaded, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *snapshotPath != "" {
		loaded.Runtime.SnapshotPath = *snapshotPath
	}

	led, err := ledger.New(loaded.Wallets)
	if err != nil {
		return err
	}

	metrics := obs.NewMetrics()
	capEng := capital.NewEngine(led, loaded.Capital)
	capEng.SetMetrics(metrics)
	riskEng := risk.NewEngine(loaded.Risk, led)
	kill := &risk.KillSwitch{ManualOnly: loaded.Risk.KillSwitchManualOnly}
	book := position.NewBook()
	queue := bus.NewQueue(loaded.Runtime.QueueCapacity)

	settler := settle.NewSettler(capEng)
	settler.SetMetrics(metrics)
	if loaded.Store.Enabled {
		journal, err := store.NewJournal(store.Option{
			Host:     loaded.Store.Host,
			Port:     loaded.Store.Port,
			User:     loaded.Store.User,
			Password: loaded.Store.Password,
			Database: loaded.Store.DBName,
			SSLMode:  loaded.Store.SSLMode,
		})
		if err != nil {
			return err
		}
		defer func() { _ = journal.Close() }()
		settler.SetJournal(journal)
		capEng.SetJournal(journal)
	}

	mgr := runtime.NewManager(runtime.Options{
		Kill:         kill,
		Risk:         riskEng,
		Capital:      capEng,
		Book:         book,
		Queue:        queue,
		Metrics:      metrics,
		Exit:         loaded.Exit,
		SnapshotPath: loaded.Runtime.SnapshotPath,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, settler.Handle)
	}()

	start, err := decimal.NewFromString(*startPrice)
	if err != nil {
		return err
	}
	feed := newPaperFeed(*symbol, start)

	tickTicker := time.NewTicker(*tickInterval)
	defer tickTicker.Stop()
	timerTicker := time.NewTicker(*timerInterval)
	defer timerTicker.Stop()

	logs.Infof("trader: running, symbol=%s wallets=%d", *symbol, len(loaded.Wallets))

loop:
	for {
		select {
		case <-sys.Shutdown():
			logs.Infof("trader: shutdown signal")
			break loop
		case now := <-timerTicker.C:
			mgr.OnTimer(now)
		case now := <-tickTicker.C:
			tick := feed.next(now)
			mgr.OnPriceTick(tick)
			feed.maybeTrade(mgr, tick)
		}
	}

	mgr.Close()
	wg.Wait()
	if err := mgr.PersistSnapshot(time.Now()); err != nil {
		logs.Errorf("trader: final snapshot failed: %+v", err)
	}

	snap := metrics.Snapshot()
	logs.Infof("trader: metrics decisions=%v events=%v settlements=%v transfers=%v drops=%d risk_eval=%+v",
		snap.DecisionCounts, snap.EventCounts, snap.SettlementCounts, snap.TransferCounts,
		snap.QueueDrops, snap.RiskEvalLatency)
	return nil
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Resolve(defaultFileConfig())
	}
	return ops.Load(path)
}

// defaultFileConfig is the zero-setup paper configuration: one trading
// wallet, a fee reserve and a vault, with a small profit split.
func defaultFileConfig() ops.FileConfig {
	return ops.FileConfig{
		Wallets: []ops.WalletConfig{
			{
				ID:                 "main",
				Role:               "MAIN",
				Chain:              "SIM",
				InitialBalance:     decimal.NewFromInt(10_000),
				MinBalance:         decimal.NewFromInt(1_000),
				MaxRiskPctPerTrade: decimal.NewFromInt(5),
				MaxDailyLossPct:    decimal.NewFromInt(10),
				MaxOpenPositions:   3,
				AllowOutflows:      true,
			},
			{
				ID:            "autofees",
				Role:          "AUTO_FEES",
				Chain:         "SIM",
				MinBalance:    decimal.NewFromInt(50),
				AllowOutflows: true,
				IsFeeReserve:  true,
			},
			{
				ID:            "vault",
				Role:          "VAULT",
				Chain:         "SIM",
				AllowOutflows: false,
			},
		},
		Risk: ops.RiskConfig{
			MaxGlobalDailyLossPct:      decimal.NewFromInt(15),
			MaxConsecutiveLosingTrades: 4,
			SafetyProfile:              "NORMAL",
		},
		Capital: ops.CapitalConfig{
			FeeReserveWalletID:     "autofees",
			AutoFeeMinPct:          decimal.NewFromInt(5),
			AutoFeeMaxPct:          decimal.NewFromInt(15),
			FeeReserveMinBuffer:    decimal.NewFromInt(100),
			FeeReserveMaxEquityPct: decimal.NewFromInt(5),
			FeeOverflowSweepTarget: "vault",
			ProfitSplits: []ops.ProfitSplitRule{
				{
					Source:          "main",
					Target:          "vault",
					TriggerPct:      decimal.NewFromInt(10),
					PercentOfProfit: decimal.NewFromInt(30),
				},
			},
		},
		Exit: position.ExitConfig{
			TP1Pct:                decimal.RequireFromString("0.02"),
			TP2Pct:                decimal.RequireFromString("0.04"),
			TP1SizePct:            decimal.RequireFromString("0.5"),
			TP2SizePct:            decimal.RequireFromString("0.3"),
			SLPct:                 decimal.RequireFromString("0.015"),
			TrailingActivationPct: decimal.RequireFromString("0.03"),
			TrailingPct:           decimal.RequireFromString("0.01"),
			BreakEvenAfterTP1:     true,
		},
		Runtime: ops.RuntimeConfig{
			SnapshotPath:  "testdata/ledger.json",
			QueueCapacity: 1024,
		},
	}
}

// paperFeed drives a deterministic oscillating price so exits fire
// without a live market.
type paperFeed struct {
	symbol string
	price  decimal.Decimal
	step   int
	openAt int
}

func newPaperFeed(symbol string, start decimal.Decimal) *paperFeed {
	return &paperFeed{symbol: symbol, price: start}
}

var (
	upDrift   = decimal.RequireFromString("1.004")
	downDrift = decimal.RequireFromString("0.997")
)

func (f *paperFeed) next(now time.Time) model.PriceTick {
	f.step++
	// 12 ticks up, 8 ticks down, repeating.
	if f.step%20 < 12 {
		f.price = f.price.Mul(upDrift)
	} else {
		f.price = f.price.Mul(downDrift)
	}
	return model.PriceTick{Symbol: f.symbol, Price: f.price, Timestamp: now}
}

// maybeTrade proposes one long every 25 ticks and opens it when the
// gate approves.
func (f *paperFeed) maybeTrade(mgr *runtime.Manager, tick model.PriceTick) {
	if f.step-f.openAt < 25 {
		return
	}
	f.openAt = f.step

	req := model.TradeRequest{
		WalletID:  "main",
		Symbol:    tick.Symbol,
		Side:      enum.SideLong,
		Notional:  decimal.NewFromInt(400),
		Timestamp: tick.Timestamp,
	}
	d := mgr.EvaluateTradeRequest(req)
	if d.Action.Blocks() {
		return
	}
	size := d.ApprovedNotional.Div(tick.Price)
	_, err := mgr.OnExecuted(model.ExecutedTrade{
		WalletID:   req.WalletID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		EntryPrice: tick.Price,
		Size:       size,
		Timestamp:  tick.Timestamp,
	})
	if err != nil {
		logs.Warnf("trader: open skipped: %+v", err)
	}
}
