package enum

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SafetyProfile scales risk limits uniformly at engine construction.
type SafetyProfile uint8

const (
	_safety_profile_beg SafetyProfile = iota
	SafetySafe
	SafetyNormal
	SafetyDegen
	_safety_profile_end
)

var (
	factorSafe  = decimal.RequireFromString("0.5")
	factorDegen = decimal.RequireFromString("1.5")
)

func (p SafetyProfile) IsAvailable() bool {
	return p > _safety_profile_beg && p < _safety_profile_end
}

// Factor returns the multiplier applied to percentage limits.
func (p SafetyProfile) Factor() decimal.Decimal {
	switch p {
	case SafetySafe:
		return factorSafe
	case SafetyDegen:
		return factorDegen
	default:
		return decimal.NewFromInt(1)
	}
}

func (p SafetyProfile) String() string {
	switch p {
	case SafetySafe:
		return "SAFE"
	case SafetyNormal:
		return "NORMAL"
	case SafetyDegen:
		return "DEGEN"
	default:
		return "UNKNOWN"
	}
}

// ParseSafetyProfile defaults to NORMAL for empty or unrecognized input.
func ParseSafetyProfile(raw string) SafetyProfile {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SAFE":
		return SafetySafe
	case "DEGEN":
		return SafetyDegen
	default:
		return SafetyNormal
	}
}
