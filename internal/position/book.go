package position

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
)

var (
	ErrPositionExists   = errors.New("position already open for wallet and symbol")
	ErrPositionNotFound = errors.New("position not found")
)

// Book holds every live position keyed by (wallet, symbol). At most one
// open position exists per key; a new trade on the same key is refused
// until the previous position reaches a terminal status.
type Book struct {
	mu        sync.Mutex
	positions map[string]*Position
}

func NewBook() *Book {
	return &Book{positions: make(map[string]*Position)}
}

// Open registers a position built from an executed trade.
func (b *Book) Open(trade model.ExecutedTrade, cfg ExitConfig) (*Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := model.PositionID(trade.WalletID, trade.Symbol)
	if _, ok := b.positions[id]; ok {
		return nil, errors.Wrap(ErrPositionExists, "open").
			With("wallet", trade.WalletID).
			With("symbol", trade.Symbol)
	}
	p := New(trade, cfg)
	b.positions[id] = p
	logs.Infof("position: opened %s side=%s entry=%s size=%s sl=%s tp1=%s tp2=%s",
		id, trade.Side, p.EntryPrice, p.InitialSize, p.StopPrice, p.TP1Price, p.TP2Price)
	return p, nil
}

// Get returns the live position for a key, if any.
func (b *Book) Get(walletID, symbol string) (*Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[model.PositionID(walletID, symbol)]
	return p, ok
}

// OpenCount counts live positions held by one wallet.
func (b *Book) OpenCount(walletID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.positions {
		if p.WalletID == walletID {
			n++
		}
	}
	return n
}

// Len returns the number of live positions.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.positions)
}

// Tick feeds one price to every position on the symbol and collects the
// emitted events. Terminal positions leave the book.
func (b *Book) Tick(symbol string, price decimal.Decimal, now time.Time) []model.PositionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	var events []model.PositionEvent
	for id, p := range b.positions {
		if p.Symbol != symbol {
			continue
		}
		events = append(events, p.UpdateWithPrice(price, now)...)
		if p.Status.IsTerminal() {
			logs.Infof("position: %s terminal status=%s realized_pnl=%s", id, p.Status, p.RealizedPnL)
			delete(b.positions, id)
		}
	}
	return events
}

// Close force-closes one position at the given price.
func (b *Book) Close(walletID, symbol string, price decimal.Decimal, now time.Time) (model.PositionEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := model.PositionID(walletID, symbol)
	p, ok := b.positions[id]
	if !ok {
		return model.PositionEvent{}, errors.Wrap(ErrPositionNotFound, "close").
			With("wallet", walletID).
			With("symbol", symbol)
	}
	ev, ok := p.CloseRemaining(price, now)
	if ok {
		logs.Infof("position: %s runner closed qty=%s pnl=%s", id, ev.CloseQty, ev.PnL)
	}
	delete(b.positions, id)
	return ev, nil
}
