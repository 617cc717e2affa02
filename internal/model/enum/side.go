package enum

import "strings"

// Side is the direction of a trade or position.
type Side uint8

const (
	_side_beg Side = iota
	SideLong
	SideShort
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	switch s {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "unknown"
	}
}

// Direction returns +1 for long and -1 for short, used in PnL math.
func (s Side) Direction() int64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// ParseSide accepts the wire spellings used by the strategy layer.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long":
		return SideLong, true
	case "sell", "short":
		return SideShort, true
	default:
		return 0, false
	}
}
