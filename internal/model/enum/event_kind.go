package enum

// EventKind identifies a position lifecycle event.
type EventKind uint8

const (
	_event_kind_beg EventKind = iota
	EventTP1Hit
	EventTP2Hit
	EventRunnerClosed
	EventSLHit
	EventTrailingActivated
	EventTrailingStopHit
	_event_kind_end
)

func (k EventKind) IsAvailable() bool {
	return k > _event_kind_beg && k < _event_kind_end
}

// ClosesSize reports whether the event reduces the position's remaining
// size. TrailingActivated is informational only.
func (k EventKind) ClosesSize() bool {
	switch k {
	case EventTP1Hit, EventTP2Hit, EventRunnerClosed, EventSLHit, EventTrailingStopHit:
		return true
	default:
		return false
	}
}

// IsStop reports whether the event terminates the position as STOPPED_OUT.
func (k EventKind) IsStop() bool {
	return k == EventSLHit || k == EventTrailingStopHit
}

func (k EventKind) String() string {
	switch k {
	case EventTP1Hit:
		return "TP1_HIT"
	case EventTP2Hit:
		return "TP2_HIT"
	case EventRunnerClosed:
		return "RUNNER_CLOSED"
	case EventSLHit:
		return "SL_HIT"
	case EventTrailingActivated:
		return "TRAILING_ACTIVATED"
	case EventTrailingStopHit:
		return "TRAILING_STOP_HIT"
	default:
		return "UNKNOWN"
	}
}
