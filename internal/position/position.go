// Package position implements the exit state machine for one open
// trade: take-profit tiers, stop-loss, trailing stop and partial
// closes. A position mutates only through its own tick evaluation.
package position

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
	"main/internal/model/enum"
)

// qtyPlaces is the minimal size increment (1e-8) all close quantities
// are truncated to, so partial closes never leave residual dust.
const qtyPlaces = 8

var one = decimal.NewFromInt(1)

// ExitConfig carries the exit levels as fractions of entry price
// (0.2 means 20%). Trailing is armed only when both trailing fields
// are positive.
type ExitConfig struct {
	TP1Pct     decimal.Decimal `json:"tp1_pct"`
	TP2Pct     decimal.Decimal `json:"tp2_pct"`
	TP1SizePct decimal.Decimal `json:"tp1_size_pct"`
	TP2SizePct decimal.Decimal `json:"tp2_size_pct"`
	SLPct      decimal.Decimal `json:"sl_pct"`

	TrailingActivationPct decimal.Decimal `json:"trailing_activation_pct"`
	TrailingPct           decimal.Decimal `json:"trailing_pct"`

	// BreakEvenAfterTP1 moves the stop-loss to entry once TP1 fills.
	BreakEvenAfterTP1 bool `json:"break_even_after_tp1"`
}

// Position is the lifecycle state for one (wallet, symbol) trade.
type Position struct {
	ID       string
	WalletID string
	Symbol   string
	Side     enum.Side
	Status   enum.PositionStatus

	EntryPrice    decimal.Decimal
	InitialSize   decimal.Decimal
	RemainingSize decimal.Decimal
	RealizedPnL   decimal.Decimal

	TP1Price  decimal.Decimal
	TP2Price  decimal.Decimal
	StopPrice decimal.Decimal
	TP1Filled bool
	TP2Filled bool

	TrailingActive bool
	TrailingRef    decimal.Decimal
	TrailingStop   decimal.Decimal

	cfg      ExitConfig
	OpenedAt time.Time
}

// New builds a position from an executed trade. Long offsets move up
// for profit targets and down for stops; short offsets invert.
func New(trade model.ExecutedTrade, cfg ExitConfig) *Position {
	p := &Position{
		ID:            model.PositionID(trade.WalletID, trade.Symbol),
		WalletID:      trade.WalletID,
		Symbol:        trade.Symbol,
		Side:          trade.Side,
		Status:        enum.PositionOpen,
		EntryPrice:    trade.EntryPrice,
		InitialSize:   trade.Size.Truncate(qtyPlaces),
		RemainingSize: trade.Size.Truncate(qtyPlaces),
		cfg:           cfg,
		OpenedAt:      trade.Timestamp,
	}
	switch trade.Side {
	case enum.SideLong:
		p.TP1Price = trade.EntryPrice.Mul(one.Add(cfg.TP1Pct))
		p.TP2Price = trade.EntryPrice.Mul(one.Add(cfg.TP2Pct))
		p.StopPrice = trade.EntryPrice.Mul(one.Sub(cfg.SLPct))
	case enum.SideShort:
		p.TP1Price = trade.EntryPrice.Mul(one.Sub(cfg.TP1Pct))
		p.TP2Price = trade.EntryPrice.Mul(one.Sub(cfg.TP2Pct))
		p.StopPrice = trade.EntryPrice.Mul(one.Add(cfg.SLPct))
	}
	return p
}

// direction is +1 for longs, -1 for shorts.
func (p *Position) direction() decimal.Decimal {
	return decimal.NewFromInt(p.Side.Direction())
}

// favorable reports whether price is at or past target in the
// profit direction.
func (p *Position) favorable(price, target decimal.Decimal) bool {
	if p.Side == enum.SideLong {
		return price.GreaterThanOrEqual(target)
	}
	return price.LessThanOrEqual(target)
}

// adverse reports whether price is at or past a stop level.
func (p *Position) adverse(price, stop decimal.Decimal) bool {
	if p.Side == enum.SideLong {
		return price.LessThanOrEqual(stop)
	}
	return price.GreaterThanOrEqual(stop)
}

func (p *Position) trailingConfigured() bool {
	return p.cfg.TrailingActivationPct.IsPositive() && p.cfg.TrailingPct.IsPositive()
}

// trailingStopFrom derives the stop level from a reference price.
func (p *Position) trailingStopFrom(ref decimal.Decimal) decimal.Decimal {
	if p.Side == enum.SideLong {
		return ref.Mul(one.Sub(p.cfg.TrailingPct))
	}
	return ref.Mul(one.Add(p.cfg.TrailingPct))
}

// UpdateWithPrice runs one tick through the exit checks in strict
// priority order: trailing activation, trailing reference update,
// trailing stop, stop-loss, TP1, TP2. Stop events short-circuit the
// rest of the tick. Returns the events emitted, possibly none.
func (p *Position) UpdateWithPrice(price decimal.Decimal, now time.Time) []model.PositionEvent {
	if p.Status.IsTerminal() || !p.RemainingSize.IsPositive() {
		return nil
	}

	var events []model.PositionEvent

	if !p.TrailingActive && p.trailingConfigured() {
		var activation decimal.Decimal
		if p.Side == enum.SideLong {
			activation = p.EntryPrice.Mul(one.Add(p.cfg.TrailingActivationPct))
		} else {
			activation = p.EntryPrice.Mul(one.Sub(p.cfg.TrailingActivationPct))
		}
		if p.favorable(price, activation) {
			p.TrailingActive = true
			p.TrailingRef = price
			p.TrailingStop = p.trailingStopFrom(price)
			events = append(events, p.event(enum.EventTrailingActivated, price, decimal.Zero, decimal.Zero, now))
		}
	}

	if p.TrailingActive {
		// Reference is monotonic: it only moves in the profit direction.
		if p.favorable(price, p.TrailingRef) {
			p.TrailingRef = price
			p.TrailingStop = p.trailingStopFrom(price)
		}
		if p.adverse(price, p.TrailingStop) {
			events = append(events, p.close(enum.EventTrailingStopHit, price, p.RemainingSize, now))
			return events
		}
	}

	if p.adverse(price, p.StopPrice) {
		events = append(events, p.close(enum.EventSLHit, price, p.RemainingSize, now))
		return events
	}

	if !p.TP1Filled && p.favorable(price, p.TP1Price) {
		p.TP1Filled = true
		qty := decimal.Min(p.RemainingSize, p.InitialSize.Mul(p.cfg.TP1SizePct))
		events = append(events, p.close(enum.EventTP1Hit, price, qty, now))
		if p.cfg.BreakEvenAfterTP1 && !p.Status.IsTerminal() {
			p.StopPrice = p.EntryPrice
		}
	}
	if !p.TP2Filled && !p.Status.IsTerminal() && p.favorable(price, p.TP2Price) {
		p.TP2Filled = true
		qty := decimal.Min(p.RemainingSize, p.InitialSize.Mul(p.cfg.TP2SizePct))
		events = append(events, p.close(enum.EventTP2Hit, price, qty, now))
	}

	return events
}

// CloseRemaining closes whatever is left at the given price, emitting
// a RUNNER_CLOSED event. Used for operator-initiated exits.
func (p *Position) CloseRemaining(price decimal.Decimal, now time.Time) (model.PositionEvent, bool) {
	if p.Status.IsTerminal() || !p.RemainingSize.IsPositive() {
		return model.PositionEvent{}, false
	}
	return p.close(enum.EventRunnerClosed, price, p.RemainingSize, now), true
}

// close books a partial or full close and settles the state machine:
// remaining floors at zero, PnL accrues by direction, and the status
// transition follows from the event kind and what is left.
func (p *Position) close(kind enum.EventKind, price, qty decimal.Decimal, now time.Time) model.PositionEvent {
	qty = decimal.Min(qty, p.RemainingSize).Truncate(qtyPlaces)
	pnl := p.direction().Mul(price.Sub(p.EntryPrice)).Mul(qty)

	p.RemainingSize = p.RemainingSize.Sub(qty)
	if p.RemainingSize.IsNegative() {
		p.RemainingSize = decimal.Zero
	}
	p.RealizedPnL = p.RealizedPnL.Add(pnl)

	switch {
	case kind.IsStop():
		p.Status = enum.PositionStoppedOut
	case p.RemainingSize.IsZero():
		p.Status = enum.PositionClosed
	default:
		p.Status = enum.PositionPartiallyClosed
	}

	return p.event(kind, price, qty, pnl, now)
}

func (p *Position) event(kind enum.EventKind, price, qty, pnl decimal.Decimal, now time.Time) model.PositionEvent {
	return model.PositionEvent{
		PositionID: p.ID,
		WalletID:   p.WalletID,
		Symbol:     p.Symbol,
		Kind:       kind,
		Price:      price,
		CloseQty:   qty,
		PnL:        pnl,
		Fees:       decimal.Zero,
		Timestamp:  now,
	}
}
