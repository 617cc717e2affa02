package enum

// RiskAction is the outcome of one risk evaluation.
//
//   - Accept: execute as requested.
//   - Adjust: execute with the reduced notional.
//   - Reject: drop this order, wallet-level breach.
//   - Eject:  global circuit breaker, drop everything until reset.
type RiskAction uint8

const (
	_risk_action_beg RiskAction = iota
	RiskAccept
	RiskAdjust
	RiskReject
	RiskEject
	_risk_action_end
)

func (a RiskAction) IsAvailable() bool {
	return a > _risk_action_beg && a < _risk_action_end
}

// Blocks reports whether the order must not execute at all.
func (a RiskAction) Blocks() bool {
	return a == RiskReject || a == RiskEject
}

func (a RiskAction) String() string {
	switch a {
	case RiskAccept:
		return "ACCEPT"
	case RiskAdjust:
		return "ADJUST"
	case RiskReject:
		return "REJECT"
	case RiskEject:
		return "EJECT"
	default:
		return "UNKNOWN"
	}
}
