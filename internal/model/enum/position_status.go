package enum

// PositionStatus tracks a position through its lifecycle. Transitions are
// one-directional: Open -> PartiallyClosed -> Closed, or a stop event moves
// any non-terminal status straight to StoppedOut.
type PositionStatus uint8

const (
	_position_status_beg PositionStatus = iota
	PositionOpen
	PositionPartiallyClosed
	PositionClosed
	PositionStoppedOut
	_position_status_end
)

func (s PositionStatus) IsAvailable() bool {
	return s > _position_status_beg && s < _position_status_end
}

func (s PositionStatus) IsTerminal() bool {
	return s == PositionClosed || s == PositionStoppedOut
}

func (s PositionStatus) String() string {
	switch s {
	case PositionOpen:
		return "OPEN"
	case PositionPartiallyClosed:
		return "PARTIALLY_CLOSED"
	case PositionClosed:
		return "CLOSED"
	case PositionStoppedOut:
		return "STOPPED_OUT"
	default:
		return "UNKNOWN"
	}
}
